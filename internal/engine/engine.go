package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bmarone2002/legalcalendar/internal/calendar"
	"github.com/bmarone2002/legalcalendar/internal/config"
	"github.com/bmarone2002/legalcalendar/internal/domain"
	"github.com/bmarone2002/legalcalendar/internal/events"
	"github.com/bmarone2002/legalcalendar/internal/repo"
	"github.com/bmarone2002/legalcalendar/internal/rules"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Rules  *rules.Registry
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Rules:  rules.Builtin(),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Settings returns defaults overlaid with the stored document.
func (e Engine) Settings(ctx context.Context) (*config.Settings, error) {
	raw, err := e.Repo.GetSettingsJSON(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.FromJSON(raw)
}

// SaveSettings overlays a partial JSON document on the current settings,
// validates and persists the full result.
func (e Engine) SaveSettings(ctx context.Context, patch []byte) (*config.Settings, error) {
	s, err := e.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Merge(patch); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, e.persistSettings(ctx, s)
}

// ImportSettings replaces the stored settings with a full document.
func (e Engine) ImportSettings(ctx context.Context, s *config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return e.persistSettings(ctx, s)
}

func (e Engine) persistSettings(ctx context.Context, s *config.Settings) error {
	full, err := s.ToJSON()
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.SaveSettingsJSON(ctx, tx, full); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "settings.updated", "settings", "", events.Payload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// EventOptions carries the writable fields of an event.
type EventOptions struct {
	Title             string
	Description       string
	StartAt           string
	EndAt             string
	Type              string
	Tags              []string
	CaseID            string
	Notes             string
	Color             string
	GenerateSubEvents bool
	RuleID            string
	RuleParams        map[string]any
	ActionType        string
	ActionMode        string
	Inputs            map[string]any
}

func (e Engine) CreateEvent(ctx context.Context, opts EventOptions) (domain.Event, error) {
	ev, err := e.buildEvent(opts)
	if err != nil {
		return domain.Event{}, err
	}
	ev.ID = uuid.New().String()
	now := e.now().UTC().Format(time.RFC3339)
	ev.CreatedAt = now
	ev.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Event{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertEvent(ctx, tx, ev); err != nil {
		return domain.Event{}, fmt.Errorf("insert event: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "event.created", "event", ev.ID, events.Payload{"title": ev.Title, "type": string(ev.Type)}); err != nil {
		return domain.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Event{}, err
	}

	if ev.GenerateSubEvents && ev.RuleID != "" {
		if _, err := e.Regenerate(ctx, ev.ID); err != nil {
			return ev, fmt.Errorf("derive sub-events: %w", err)
		}
	}
	return ev, nil
}

func (e Engine) UpdateEvent(ctx context.Context, id string, opts EventOptions) (domain.Event, error) {
	if _, err := e.Repo.GetEvent(ctx, id); err != nil {
		return domain.Event{}, err
	}
	ev, err := e.buildEvent(opts)
	if err != nil {
		return domain.Event{}, err
	}
	ev.ID = id
	ev.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Event{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateEvent(ctx, tx, ev); err != nil {
		return domain.Event{}, err
	}
	if err := e.Events.Append(ctx, tx, "event.updated", "event", ev.ID, events.Payload{"title": ev.Title}); err != nil {
		return domain.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Event{}, err
	}

	if ev.GenerateSubEvents && ev.RuleID != "" {
		if _, err := e.Regenerate(ctx, ev.ID); err != nil {
			return ev, fmt.Errorf("derive sub-events: %w", err)
		}
	}
	return e.Repo.GetEvent(ctx, id)
}

// buildEvent validates options into a storable event.
func (e Engine) buildEvent(opts EventOptions) (domain.Event, error) {
	if opts.Title == "" {
		return domain.Event{}, errors.New("title is required")
	}
	startAt, err := normalizeTimestamp(opts.StartAt)
	if err != nil {
		return domain.Event{}, fmt.Errorf("start: %w", err)
	}
	endAt := opts.EndAt
	if endAt == "" {
		endAt = startAt
	}
	endAt, err = normalizeTimestamp(endAt)
	if err != nil {
		return domain.Event{}, fmt.Errorf("end: %w", err)
	}
	startT, _ := time.Parse(time.RFC3339, startAt)
	endT, _ := time.Parse(time.RFC3339, endAt)
	if endT.Before(startT) {
		return domain.Event{}, errors.New("event ends before it starts")
	}
	evType := domain.EventType(opts.Type)
	if opts.Type == "" {
		evType = domain.EventAltro
	} else if !validEventType(evType) {
		return domain.Event{}, fmt.Errorf("unknown event type %q", opts.Type)
	}

	actType := domain.ActionType(opts.ActionType)
	actMode := domain.ActionMode(opts.ActionMode)
	ruleID := opts.RuleID
	if opts.ActionType != "" || opts.ActionMode != "" {
		if opts.ActionType == "" || opts.ActionMode == "" {
			return domain.Event{}, errors.New("action type and mode go together")
		}
		if _, ok := domain.ActionTypeLabels[actType]; !ok {
			return domain.Event{}, fmt.Errorf("unknown action type %q", opts.ActionType)
		}
		if _, ok := domain.ActionModeLabels[actMode]; !ok {
			return domain.Event{}, fmt.Errorf("unknown action mode %q", opts.ActionMode)
		}
		if ruleID == "" {
			ruleID = domain.RuleIDAttoGiuridico
		} else if ruleID != domain.RuleIDAttoGiuridico {
			return domain.Event{}, fmt.Errorf("legal acts require rule %s, got %s", domain.RuleIDAttoGiuridico, ruleID)
		}
	}
	if ruleID != "" {
		if _, ok := e.Rules.Get(ruleID); !ok {
			return domain.Event{}, fmt.Errorf("unknown rule %q", ruleID)
		}
	}

	return domain.Event{
		Title:             opts.Title,
		Description:       opts.Description,
		StartAt:           startAt,
		EndAt:             endAt,
		Type:              evType,
		Tags:              opts.Tags,
		CaseID:            opts.CaseID,
		Notes:             opts.Notes,
		Color:             opts.Color,
		GenerateSubEvents: opts.GenerateSubEvents,
		RuleID:            ruleID,
		RuleParams:        opts.RuleParams,
		ActionType:        actType,
		ActionMode:        actMode,
		Inputs:            opts.Inputs,
	}, nil
}

func (e Engine) GetEvent(ctx context.Context, id string) (domain.Event, []domain.SubEvent, error) {
	ev, err := e.Repo.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, nil, err
	}
	subs, err := e.Repo.ListSubEvents(ctx, id)
	if err != nil {
		return domain.Event{}, nil, err
	}
	return ev, subs, nil
}

func (e Engine) ListEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.ListEvents(ctx, f)
}

func (e Engine) DeleteEvent(ctx context.Context, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteEvent(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "event.deleted", "event", id, events.Payload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// derive runs the event's rule, producing the candidates that regeneration
// would persist. Legal-act candidates additionally pass through the slot
// scheduler, spreading same-day deadlines across hours; the generic rules
// keep the times they computed (reminder and deadline times are user knobs).
func (e Engine) derive(ev domain.Event, s *config.Settings) []domain.SubEventCandidate {
	sel := ev.RuleParams
	if ev.RuleID == domain.RuleIDAttoGiuridico {
		sel = ev.Inputs
	}
	candidates := e.Rules.Generate(ev.RuleID, rules.Input{
		Event:          &ev,
		Settings:       s,
		UserSelections: sel,
	})
	if ev.RuleID == domain.RuleIDAttoGiuridico {
		return calendar.AssignTimeSlots(candidates)
	}
	return candidates
}

// Regenerate rebuilds the derived sub-events of an event: unlocked rows are
// replaced by freshly derived ones in a single transaction, locked rows are
// preserved byte for byte. Returns the resulting list ordered by due date.
func (e Engine) Regenerate(ctx context.Context, id string) ([]domain.SubEvent, error) {
	ev, err := e.Repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	// Nothing to derive: existing rows, manual ones included, are untouched.
	if !ev.GenerateSubEvents || ev.RuleID == "" {
		return nil, nil
	}
	s, err := e.Settings(ctx)
	if err != nil {
		return nil, err
	}
	candidates := e.derive(ev, s)

	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	deleted, err := e.Repo.DeleteUnlockedSubEvents(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("clear sub-events: %w", err)
	}
	for _, c := range candidates {
		se := domain.SubEvent{
			ID:            uuid.New().String(),
			ParentEventID: id,
			Title:         c.Title,
			Kind:          c.Kind,
			DueAt:         c.DueAt.Format(time.RFC3339),
			Status:        c.Status,
			Priority:      c.Priority,
			RuleID:        c.RuleID,
			RuleParams:    c.RuleParams,
			Explanation:   c.Explanation,
			CreatedBy:     c.CreatedBy,
			Locked:        false,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := e.Repo.InsertSubEvent(ctx, tx, se); err != nil {
			return nil, fmt.Errorf("insert sub-event: %w", err)
		}
	}
	if err := e.Events.Append(ctx, tx, "subevents.regenerated", "event", id, events.Payload{
		"rule_id": ev.RuleID,
		"deleted": deleted,
		"created": len(candidates),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.Repo.ListSubEvents(ctx, id)
}

// Preview derives the sub-events a regeneration would produce, without
// touching storage.
func (e Engine) Preview(ctx context.Context, id string) ([]domain.SubEventCandidate, error) {
	ev, err := e.Repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.PreviewEvent(ctx, ev)
}

// PreviewOptions validates options and derives sub-events without storing
// anything, for previewing an event before it exists.
func (e Engine) PreviewOptions(ctx context.Context, opts EventOptions) ([]domain.SubEventCandidate, error) {
	ev, err := e.buildEvent(opts)
	if err != nil {
		return nil, err
	}
	return e.PreviewEvent(ctx, ev)
}

// PreviewEvent derives sub-events for an event that need not be stored.
func (e Engine) PreviewEvent(ctx context.Context, ev domain.Event) ([]domain.SubEventCandidate, error) {
	if !ev.GenerateSubEvents || ev.RuleID == "" {
		return nil, nil
	}
	s, err := e.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return e.derive(ev, s), nil
}

// SubEventOptions carries the fields of a manually added sub-event.
type SubEventOptions struct {
	ParentEventID string
	Title         string
	Kind          string
	DueAt         string
	Priority      int
	Explanation   string
}

// AddSubEvent stores a manual sub-event. Manual rows regenerate like any
// unlocked row unless locked afterwards.
func (e Engine) AddSubEvent(ctx context.Context, opts SubEventOptions) (domain.SubEvent, error) {
	if opts.Title == "" {
		return domain.SubEvent{}, errors.New("title is required")
	}
	if _, err := e.Repo.GetEvent(ctx, opts.ParentEventID); err != nil {
		return domain.SubEvent{}, err
	}
	dueAt, err := normalizeTimestamp(opts.DueAt)
	if err != nil {
		return domain.SubEvent{}, fmt.Errorf("due: %w", err)
	}
	kind := domain.SubEventKind(opts.Kind)
	if opts.Kind == "" {
		kind = domain.KindAttivita
	} else if !validSubEventKind(kind) {
		return domain.SubEvent{}, fmt.Errorf("unknown sub-event kind %q", opts.Kind)
	}
	now := e.now().UTC().Format(time.RFC3339)
	se := domain.SubEvent{
		ID:            uuid.New().String(),
		ParentEventID: opts.ParentEventID,
		Title:         opts.Title,
		Kind:          kind,
		DueAt:         dueAt,
		Status:        domain.StatusPending,
		Priority:      opts.Priority,
		Explanation:   opts.Explanation,
		CreatedBy:     domain.CreatedManuale,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SubEvent{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSubEvent(ctx, tx, se); err != nil {
		return domain.SubEvent{}, err
	}
	if err := e.Events.Append(ctx, tx, "subevent.created", "subevent", se.ID, events.Payload{"title": se.Title, "parent": se.ParentEventID}); err != nil {
		return domain.SubEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SubEvent{}, err
	}
	return se, nil
}

func (e Engine) SetSubEventStatus(ctx context.Context, id string, status domain.SubEventStatus) (domain.SubEvent, error) {
	if !validSubEventStatus(status) {
		return domain.SubEvent{}, fmt.Errorf("unknown status %q", status)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SubEvent{}, err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateSubEventStatus(ctx, tx, id, status, now); err != nil {
		return domain.SubEvent{}, err
	}
	if err := e.Events.Append(ctx, tx, "subevent.status", "subevent", id, events.Payload{"status": string(status)}); err != nil {
		return domain.SubEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SubEvent{}, err
	}
	return e.Repo.GetSubEvent(ctx, id)
}

// SetSubEventLocked pins or releases a row with respect to regeneration.
func (e Engine) SetSubEventLocked(ctx context.Context, id string, locked bool) (domain.SubEvent, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SubEvent{}, err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.SetSubEventLocked(ctx, tx, id, locked, now); err != nil {
		return domain.SubEvent{}, err
	}
	evtType := "subevent.locked"
	if !locked {
		evtType = "subevent.unlocked"
	}
	if err := e.Events.Append(ctx, tx, evtType, "subevent", id, events.Payload{}); err != nil {
		return domain.SubEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SubEvent{}, err
	}
	return e.Repo.GetSubEvent(ctx, id)
}

func (e Engine) UpdateSubEvent(ctx context.Context, id, title, dueAt string) (domain.SubEvent, error) {
	if dueAt != "" {
		var err error
		dueAt, err = normalizeTimestamp(dueAt)
		if err != nil {
			return domain.SubEvent{}, fmt.Errorf("due: %w", err)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SubEvent{}, err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateSubEvent(ctx, tx, id, title, dueAt, now); err != nil {
		return domain.SubEvent{}, err
	}
	if err := e.Events.Append(ctx, tx, "subevent.updated", "subevent", id, events.Payload{}); err != nil {
		return domain.SubEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SubEvent{}, err
	}
	return e.Repo.GetSubEvent(ctx, id)
}

func (e Engine) DeleteSubEvent(ctx context.Context, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteSubEvent(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "subevent.deleted", "subevent", id, events.Payload{}); err != nil {
		return err
	}
	return tx.Commit()
}

func validEventType(t domain.EventType) bool {
	for _, v := range domain.EventTypes {
		if v == t {
			return true
		}
	}
	return false
}

func validSubEventKind(k domain.SubEventKind) bool {
	switch k {
	case domain.KindTermine, domain.KindPromemoria, domain.KindAttivita:
		return true
	}
	return false
}

func validSubEventStatus(s domain.SubEventStatus) bool {
	switch s {
	case domain.StatusPending, domain.StatusDone, domain.StatusCancelled:
		return true
	}
	return false
}

// normalizeTimestamp accepts RFC3339 or a bare date, which lands at local
// noon, and returns RFC3339.
func normalizeTimestamp(v string) (string, error) {
	if v == "" {
		return "", errors.New("timestamp required")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Format(time.RFC3339), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		return t.Add(12 * time.Hour).Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("invalid timestamp %q", v)
}
