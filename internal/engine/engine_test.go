package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/db"
	"github.com/bmarone2002/legalcalendar/internal/domain"
	"github.com/bmarone2002/legalcalendar/internal/engine"
	"github.com/bmarone2002/legalcalendar/internal/migrate"
	"github.com/bmarone2002/legalcalendar/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func citazioneOptions() engine.EventOptions {
	return engine.EventOptions{
		Title:             "Causa Rossi c. Bianchi",
		StartAt:           "2026-03-01",
		Type:              "notifica",
		GenerateSubEvents: true,
		ActionType:        "CITAZIONE",
		ActionMode:        "DA_NOTIFICARE",
		Inputs: map[string]any{
			"dataNotifica": "2026-03-01",
		},
	}
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{StartAt: "2026-03-01"}); err == nil {
		t.Error("expected error for missing title")
	}
	if _, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title: "x", StartAt: "2026-03-02", EndAt: "2026-03-01",
	}); err == nil {
		t.Error("expected error for end before start")
	}
	if _, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title: "x", StartAt: "2026-03-01", RuleID: "no-such-rule",
	}); err == nil {
		t.Error("expected error for unknown rule")
	}
	if _, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title: "x", StartAt: "2026-03-01", ActionType: "CITAZIONE",
	}); err == nil {
		t.Error("expected error for action type without mode")
	}
	if _, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title: "x", StartAt: "2026-03-01",
		ActionType: "CITAZIONE", ActionMode: "DA_NOTIFICARE", RuleID: "reminder",
	}); err == nil {
		t.Error("expected error for legal act with mismatched rule")
	}

	// A legal act without an explicit rule id gets the act rule.
	ev, err := env.Engine.CreateEvent(env.Ctx, citazioneOptions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ev.RuleID != domain.RuleIDAttoGiuridico {
		t.Errorf("rule id = %q", ev.RuleID)
	}
}

func TestRegenerateDerivesAndOrders(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, citazioneOptions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	subs, err := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// dataNotifica alone derives the filing deadline and its reminder.
	if len(subs) != 2 {
		t.Fatalf("got %d sub-events, want 2", len(subs))
	}
	for i := 1; i < len(subs); i++ {
		if subs[i-1].DueAt > subs[i].DueAt {
			t.Errorf("sub-events not ordered by due date: %s after %s", subs[i-1].DueAt, subs[i].DueAt)
		}
	}
	for _, se := range subs {
		if se.CreatedBy != domain.CreatedAutomatico || se.Locked {
			t.Errorf("derived row has wrong provenance: %+v", se)
		}
	}

	audit, err := env.Engine.Repo.LatestAudit(env.Ctx, repo.AuditFilters{Type: "subevents.regenerated"})
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(audit) == 0 {
		t.Error("no regeneration audit row")
	}
}

func TestRegenerateNoopWithoutRule(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title:   "Riunione studio",
		StartAt: "2026-03-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	manual, err := env.Engine.AddSubEvent(env.Ctx, engine.SubEventOptions{
		ParentEventID: ev.ID,
		Title:         "Preparare fascicolo",
		DueAt:         "2026-02-25",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	subs, err := env.Engine.Regenerate(env.Ctx, ev.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("no-op regeneration produced %d rows", len(subs))
	}
	// Existing rows, manual ones included, stay put.
	stored, err := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != manual.ID {
		t.Errorf("stored rows after no-op = %+v", stored)
	}
}

func TestRegenerateMissingEvent(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Regenerate(env.Ctx, "nope")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLockedRowsSurviveRegeneration(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, citazioneOptions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	subs, _ := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	if len(subs) == 0 {
		t.Fatal("no sub-events derived")
	}
	locked := subs[0]
	if _, err := env.Engine.SetSubEventLocked(env.Ctx, locked.ID, true); err != nil {
		t.Fatalf("lock: %v", err)
	}

	after, err := env.Engine.Regenerate(env.Ctx, ev.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	// The locked row keeps identity and content; everything else is fresh.
	found := false
	for _, se := range after {
		if se.ID == locked.ID {
			found = true
			if se.Title != locked.Title || se.DueAt != locked.DueAt || !se.Locked {
				t.Errorf("locked row changed: %+v", se)
			}
		}
	}
	if !found {
		t.Fatal("locked row deleted by regeneration")
	}
	// Derived set is rebuilt alongside the pinned row.
	if len(after) != len(subs)+1 {
		t.Errorf("got %d rows after regeneration, want %d", len(after), len(subs)+1)
	}
	for _, se := range after {
		if se.ID != locked.ID && se.ID == subs[1].ID {
			t.Error("unlocked row kept its old identity")
		}
	}
}

func TestPreviewDoesNotWrite(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, citazioneOptions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)

	candidates, err := env.Engine.Preview(env.Ctx, ev.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(candidates) != len(before) {
		t.Errorf("preview derived %d, stored %d", len(candidates), len(before))
	}
	after, _ := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	if len(after) != len(before) {
		t.Errorf("preview changed storage: %d -> %d rows", len(before), len(after))
	}
	for i := range after {
		if after[i].ID != before[i].ID {
			t.Error("preview replaced stored rows")
		}
	}
}

func TestTimeSlotsOnLegalActs(t *testing.T) {
	env := newTestEnv(t)
	// Two memorie libere on the same date collide on one calendar day.
	ev, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title:             "Causa Verdi c. Neri",
		StartAt:           "2026-03-01",
		GenerateSubEvents: true,
		ActionType:        "CITAZIONE",
		ActionMode:        "DA_NOTIFICARE",
		Inputs: map[string]any{
			"memorieLibere": []any{
				map[string]any{"titolo": "Nota spese", "scadenza": "2026-06-10"},
				map[string]any{"titolo": "Replica", "scadenza": "2026-06-10"},
			},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	subs, _ := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	hours := map[int]bool{}
	for _, se := range subs {
		at, err := time.Parse(time.RFC3339, se.DueAt)
		if err != nil {
			t.Fatalf("due_at %q: %v", se.DueAt, err)
		}
		if at.Format("2006-01-02") != "2026-06-10" {
			continue
		}
		hours[at.Hour()] = true
	}
	if !hours[12] || !hours[13] {
		t.Errorf("slot hours = %v, want 12 and 13", hours)
	}
}

func TestReminderTimeKept(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title:             "Udienza",
		StartAt:           "2026-03-20",
		GenerateSubEvents: true,
		RuleID:            "reminder",
		RuleParams:        map[string]any{"reminderTime": "08:30"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	subs, _ := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	if len(subs) != 2 {
		t.Fatalf("got %d reminders, want 2", len(subs))
	}
	for _, se := range subs {
		at, err := time.Parse(time.RFC3339, se.DueAt)
		if err != nil {
			t.Fatalf("due_at %q: %v", se.DueAt, err)
		}
		if at.Hour() != 8 || at.Minute() != 30 {
			t.Errorf("reminder at %s, want 08:30", at.Format("15:04"))
		}
	}
}

func TestChecklistDueAtEventStart(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{
		Title:             "Udienza",
		StartAt:           "2026-03-20T10:00:00Z",
		GenerateSubEvents: true,
		RuleID:            "checklist",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	start, _ := time.Parse(time.RFC3339, ev.StartAt)
	subs, _ := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	if len(subs) != 2 {
		t.Fatalf("got %d activities, want 2", len(subs))
	}
	for _, se := range subs {
		at, err := time.Parse(time.RFC3339, se.DueAt)
		if err != nil {
			t.Fatalf("due_at %q: %v", se.DueAt, err)
		}
		if !at.Equal(start) {
			t.Errorf("activity due %s, want event start %s", se.DueAt, ev.StartAt)
		}
	}
}

func TestManualSubEventLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{Title: "Pratica", StartAt: "2026-03-01"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	se, err := env.Engine.AddSubEvent(env.Ctx, engine.SubEventOptions{
		ParentEventID: ev.ID,
		Title:         "Telefonata cliente",
		DueAt:         "2026-03-05",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if se.CreatedBy != domain.CreatedManuale || se.Kind != domain.KindAttivita {
		t.Errorf("manual defaults wrong: %+v", se)
	}

	se, err = env.Engine.SetSubEventStatus(env.Ctx, se.ID, domain.StatusDone)
	if err != nil || se.Status != domain.StatusDone {
		t.Fatalf("status: %v (%+v)", err, se)
	}
	if _, err := env.Engine.SetSubEventStatus(env.Ctx, se.ID, "bogus"); err == nil {
		t.Error("expected error for invalid status")
	}

	se, err = env.Engine.UpdateSubEvent(env.Ctx, se.ID, "Telefonata urgente", "2026-03-06")
	if err != nil || se.Title != "Telefonata urgente" {
		t.Fatalf("update: %v (%+v)", err, se)
	}

	if err := env.Engine.DeleteSubEvent(env.Ctx, se.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetSubEvent(env.Ctx, se.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteEventCascades(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.Engine.CreateEvent(env.Ctx, citazioneOptions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.Engine.DeleteEvent(env.Ctx, ev.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, err := env.Engine.Repo.ListSubEvents(env.Ctx, ev.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("%d orphan sub-events after delete", len(subs))
	}
}

func TestSettingsMerge(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.Settings(env.Ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.DefaultReminderTime != "09:00" || s.TermineComparizioneCitazioneIt != 120 {
		t.Errorf("unexpected defaults: %+v", s)
	}

	s, err = env.Engine.SaveSettings(env.Ctx, []byte(`{"defaultReminderTime":"08:00"}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.DefaultReminderTime != "08:00" {
		t.Errorf("patch not applied: %+v", s)
	}
	// Unspecified fields keep their values across the round trip.
	s, err = env.Engine.Settings(env.Ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.DefaultReminderTime != "08:00" || s.DefaultTimeForDeadlines != "18:00" || s.TermineComparizioneCitazioneEst != 150 {
		t.Errorf("merge lost fields: %+v", s)
	}

	if _, err := env.Engine.SaveSettings(env.Ctx, []byte(`{"defaultReminderTime":"25:99"}`)); err == nil {
		t.Error("expected validation error")
	}
}

func TestListEventsWindow(t *testing.T) {
	env := newTestEnv(t)
	for _, d := range []string{"2026-03-10", "2026-03-20", "2026-04-02"} {
		if _, err := env.Engine.CreateEvent(env.Ctx, engine.EventOptions{Title: "E " + d, StartAt: d}); err != nil {
			t.Fatalf("create %s: %v", d, err)
		}
	}
	list, err := env.Engine.ListEvents(env.Ctx, repo.EventFilters{From: "2026-03-01", To: "2026-04-01"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("window returned %d events, want 2", len(list))
	}
	if list[0].StartAt > list[1].StartAt {
		t.Error("events not ordered by start")
	}
}
