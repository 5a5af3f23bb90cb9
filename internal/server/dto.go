package server

import (
	"encoding/json"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/domain"
	"github.com/bmarone2002/legalcalendar/internal/engine"
	"github.com/bmarone2002/legalcalendar/internal/rules"
)

// Request payloads

type EventRequest struct {
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	StartAt           string         `json:"start_at" format:"date-time"`
	EndAt             string         `json:"end_at,omitempty" format:"date-time"`
	Type              string         `json:"type,omitempty" enum:"udienza,notifica,deposito,scadenza,altro"`
	Tags              []string       `json:"tags,omitempty"`
	CaseID            string         `json:"case_id,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	Color             string         `json:"color,omitempty"`
	GenerateSubEvents bool           `json:"generate_sub_events,omitempty"`
	RuleID            string         `json:"rule_id,omitempty"`
	RuleParams        map[string]any `json:"rule_params,omitempty"`
	ActionType        string         `json:"action_type,omitempty" enum:"CITAZIONE,RICORSO_OPPOSIZIONE,RICORSO_TRIBUTARIO,APPELLO_CIVILE,APPELLO_TRIBUTARIO,RICORSO_CASSAZIONE"`
	ActionMode        string         `json:"action_mode,omitempty" enum:"DA_NOTIFICARE,COSTITUZIONE"`
	Inputs            map[string]any `json:"inputs,omitempty"`
}

func (r EventRequest) options() engine.EventOptions {
	return engine.EventOptions{
		Title:             r.Title,
		Description:       r.Description,
		StartAt:           r.StartAt,
		EndAt:             r.EndAt,
		Type:              r.Type,
		Tags:              r.Tags,
		CaseID:            r.CaseID,
		Notes:             r.Notes,
		Color:             r.Color,
		GenerateSubEvents: r.GenerateSubEvents,
		RuleID:            r.RuleID,
		RuleParams:        r.RuleParams,
		ActionType:        r.ActionType,
		ActionMode:        r.ActionMode,
		Inputs:            r.Inputs,
	}
}

type CreateSubEventRequest struct {
	Title       string `json:"title"`
	Kind        string `json:"kind,omitempty" enum:"termine,promemoria,attivita"`
	DueAt       string `json:"due_at" format:"date-time"`
	Priority    int    `json:"priority,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

type UpdateSubEventRequest struct {
	Status *string `json:"status,omitempty" enum:"pending,done,cancelled"`
	Locked *bool   `json:"locked,omitempty"`
	Title  *string `json:"title,omitempty"`
	DueAt  *string `json:"due_at,omitempty" format:"date-time"`
}

// Response payloads

type EventResponse struct {
	domain.Event
	ActionTypeLabel string `json:"action_type_label,omitempty"`
	ActionModeLabel string `json:"action_mode_label,omitempty"`
	AnchorStart     string `json:"anchor_start,omitempty" format:"date-time"`
	AnchorEnd       string `json:"anchor_end,omitempty" format:"date-time"`
}

type EventDetailResponse struct {
	EventResponse
	SubEvents []domain.SubEvent `json:"sub_events"`
}

type CandidateResponse struct {
	Title       string                `json:"title"`
	Kind        domain.SubEventKind   `json:"kind" enum:"termine,promemoria,attivita"`
	DueAt       string                `json:"due_at" format:"date-time"`
	Status      domain.SubEventStatus `json:"status" enum:"pending,done,cancelled"`
	Priority    int                   `json:"priority"`
	RuleID      string                `json:"rule_id,omitempty"`
	RuleParams  map[string]any        `json:"rule_params,omitempty"`
	Explanation string                `json:"explanation,omitempty"`
}

type RuleResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type AuditEntryResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Conversion helpers

func eventResponse(ev domain.Event) EventResponse {
	resp := EventResponse{Event: ev}
	if ev.ActionType == "" {
		return resp
	}
	resp.ActionTypeLabel = domain.ActionTypeLabels[ev.ActionType]
	resp.ActionModeLabel = domain.ActionModeLabels[ev.ActionMode]
	if start, end, ok := rules.AnchorWindow(ev.ActionType, ev.ActionMode, ev.Inputs); ok {
		resp.AnchorStart = start.Format(time.RFC3339)
		resp.AnchorEnd = end.Format(time.RFC3339)
	}
	return resp
}

func mapEvents(items []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(items))
	for _, ev := range items {
		out = append(out, eventResponse(ev))
	}
	return out
}

func candidateResponse(c domain.SubEventCandidate) CandidateResponse {
	return CandidateResponse{
		Title:       c.Title,
		Kind:        c.Kind,
		DueAt:       c.DueAt.Format(time.RFC3339),
		Status:      c.Status,
		Priority:    c.Priority,
		RuleID:      c.RuleID,
		RuleParams:  c.RuleParams,
		Explanation: c.Explanation,
	}
}

func mapCandidates(items []domain.SubEventCandidate) []CandidateResponse {
	out := make([]CandidateResponse, 0, len(items))
	for _, c := range items {
		out = append(out, candidateResponse(c))
	}
	return out
}

func auditResponse(a domain.AuditEvent) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         a.ID,
		TS:         a.TS,
		Type:       a.Type,
		EntityKind: a.EntityKind,
		EntityID:   a.EntityID,
		Payload:    decodeJSONMap(a.Payload),
	}
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}

func nonNilSubEvents(in []domain.SubEvent) []domain.SubEvent {
	if in == nil {
		return []domain.SubEvent{}
	}
	return in
}
