package domain

import "time"

// EventType is the macro category of a calendar event.
type EventType string

const (
	EventUdienza  EventType = "udienza"
	EventNotifica EventType = "notifica"
	EventDeposito EventType = "deposito"
	EventScadenza EventType = "scadenza"
	EventAltro    EventType = "altro"
)

var EventTypes = []EventType{EventUdienza, EventNotifica, EventDeposito, EventScadenza, EventAltro}

// SubEventKind distinguishes binding deadlines from advance notices and tasks.
type SubEventKind string

const (
	KindTermine    SubEventKind = "termine"
	KindPromemoria SubEventKind = "promemoria"
	KindAttivita   SubEventKind = "attivita"
)

type SubEventStatus string

const (
	StatusPending   SubEventStatus = "pending"
	StatusDone      SubEventStatus = "done"
	StatusCancelled SubEventStatus = "cancelled"
)

type CreatedBy string

const (
	CreatedAutomatico CreatedBy = "automatico"
	CreatedManuale    CreatedBy = "manuale"
)

// ActionType classifies the filed legal act.
type ActionType string

const (
	ActCitazione          ActionType = "CITAZIONE"
	ActRicorsoOpposizione ActionType = "RICORSO_OPPOSIZIONE"
	ActRicorsoTributario  ActionType = "RICORSO_TRIBUTARIO"
	ActAppelloCivile      ActionType = "APPELLO_CIVILE"
	ActAppelloTributario  ActionType = "APPELLO_TRIBUTARIO"
	ActRicorsoCassazione  ActionType = "RICORSO_CASSAZIONE"
)

var ActionTypes = []ActionType{
	ActCitazione,
	ActRicorsoOpposizione,
	ActRicorsoTributario,
	ActAppelloCivile,
	ActAppelloTributario,
	ActRicorsoCassazione,
}

var ActionTypeLabels = map[ActionType]string{
	ActCitazione:          "Citazione",
	ActRicorsoOpposizione: "Ricorso in opposizione a decreto ingiuntivo",
	ActRicorsoTributario:  "Ricorso tributario",
	ActAppelloCivile:      "Appello civile",
	ActAppelloTributario:  "Appello tributario",
	ActRicorsoCassazione:  "Ricorso per Cassazione",
}

// ActionMode is the procedural posture: the party serving the act or the one
// appearing in response to it.
type ActionMode string

const (
	ModeDaNotificare ActionMode = "DA_NOTIFICARE"
	ModeCostituzione ActionMode = "COSTITUZIONE"
)

var ActionModes = []ActionMode{ModeDaNotificare, ModeCostituzione}

var ActionModeLabels = map[ActionMode]string{
	ModeDaNotificare: "Da notificare",
	ModeCostituzione: "Costituzione",
}

// Short/long appeal term election. Never inferred from the inputs.
const (
	TermineBreve = "BREVE"
	TermineLungo = "LUNGO"
)

// RuleIDAttoGiuridico must be the event's rule id whenever an action type and
// mode are set.
const RuleIDAttoGiuridico = "atto-giuridico"

type Event struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	StartAt           string         `json:"start_at" format:"date-time"`
	EndAt             string         `json:"end_at" format:"date-time"`
	Type              EventType      `json:"type" enum:"udienza,notifica,deposito,scadenza,altro"`
	Tags              []string       `json:"tags,omitempty"`
	CaseID            string         `json:"case_id,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	Color             string         `json:"color,omitempty"`
	GenerateSubEvents bool           `json:"generate_sub_events"`
	RuleID            string         `json:"rule_id,omitempty"`
	RuleParams        map[string]any `json:"rule_params,omitempty"`
	ActionType        ActionType     `json:"action_type,omitempty"`
	ActionMode        ActionMode     `json:"action_mode,omitempty"`
	Inputs            map[string]any `json:"inputs,omitempty"`
	CreatedAt         string         `json:"created_at" format:"date-time"`
	UpdatedAt         string         `json:"updated_at" format:"date-time"`
}

type SubEvent struct {
	ID            string         `json:"id"`
	ParentEventID string         `json:"parent_event_id"`
	Title         string         `json:"title"`
	Kind          SubEventKind   `json:"kind" enum:"termine,promemoria,attivita"`
	DueAt         string         `json:"due_at" format:"date-time"`
	Status        SubEventStatus `json:"status" enum:"pending,done,cancelled"`
	Priority      int            `json:"priority"`
	RuleID        string         `json:"rule_id,omitempty"`
	RuleParams    map[string]any `json:"rule_params,omitempty"`
	Explanation   string         `json:"explanation,omitempty"`
	CreatedBy     CreatedBy      `json:"created_by" enum:"automatico,manuale"`
	Locked        bool           `json:"locked"`
	CreatedAt     string         `json:"created_at" format:"date-time"`
	UpdatedAt     string         `json:"updated_at" format:"date-time"`
}

// SubEventCandidate is a derived deadline before persistence. Rules produce
// candidates; the orchestrator decides what reaches storage.
type SubEventCandidate struct {
	Title       string
	Kind        SubEventKind
	DueAt       time.Time
	Status      SubEventStatus
	Priority    int
	RuleID      string
	RuleParams  map[string]any
	Explanation string
	CreatedBy   CreatedBy
}

// MemoriaLibera is a free-form extra deadline accepted by every act/mode pair.
type MemoriaLibera struct {
	Titolo   string `json:"titolo"`
	Scadenza string `json:"scadenza"`
}

// AuditEvent is one row of the append-only change log.
type AuditEvent struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
