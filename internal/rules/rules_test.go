package rules

import (
	"testing"

	"github.com/bmarone2002/legalcalendar/internal/config"
	"github.com/bmarone2002/legalcalendar/internal/domain"
)

func TestBuiltinRegistry(t *testing.T) {
	r := Builtin()
	for _, id := range []string{"atto-giuridico", "reminder", "generic-deadline", "checklist"} {
		if _, ok := r.Get(id); !ok {
			t.Errorf("builtin rule %s not registered", id)
		}
	}
	list := r.List()
	if len(list) != 4 {
		t.Fatalf("List() returned %d rules, want 4", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID() >= list[i].ID() {
			t.Errorf("List() not sorted: %s before %s", list[i-1].ID(), list[i].ID())
		}
	}
}

func TestUnknownRuleYieldsNothing(t *testing.T) {
	r := Builtin()
	out := r.Generate("no-such-rule", Input{Event: &domain.Event{}, Settings: config.Default()})
	if len(out) != 0 {
		t.Errorf("unknown rule derived %d candidates", len(out))
	}
}

func TestReminderRule(t *testing.T) {
	out := Builtin().Generate("reminder", Input{
		Event:    &domain.Event{Title: "Udienza Rossi", StartAt: "2026-03-20T10:00:00+01:00"},
		Settings: config.Default(),
	})
	if len(out) != 2 {
		t.Fatalf("got %d reminders, want 2", len(out))
	}
	if out[0].Title != "Promemoria: Udienza Rossi (T-7)" {
		t.Errorf("title = %q", out[0].Title)
	}
	if got := out[0].DueAt.Format("2006-01-02 15:04"); got != "2026-03-13 09:00" {
		t.Errorf("first reminder at %s, want 2026-03-13 09:00", got)
	}
	if got := out[1].DueAt.Format("2006-01-02 15:04"); got != "2026-03-19 09:00" {
		t.Errorf("second reminder at %s, want 2026-03-19 09:00", got)
	}
}

func TestReminderRuleSelections(t *testing.T) {
	out := Builtin().Generate("reminder", Input{
		Event:    &domain.Event{Title: "Scadenza fiscale", StartAt: "2026-03-20T10:00:00+01:00"},
		Settings: config.Default(),
		UserSelections: map[string]any{
			"reminderOffsets": []any{float64(3)},
			"reminderTime":    "08:30",
		},
	})
	if len(out) != 1 {
		t.Fatalf("got %d reminders, want 1", len(out))
	}
	if got := out[0].DueAt.Format("2006-01-02 15:04"); got != "2026-03-17 08:30" {
		t.Errorf("reminder at %s, want 2026-03-17 08:30", got)
	}
}

func TestGenericDeadlineRule(t *testing.T) {
	out := Builtin().Generate("generic-deadline", Input{
		Event:    &domain.Event{Title: "Contratto", EndAt: "2026-03-01T16:00:00+01:00"},
		Settings: config.Default(),
	})
	if len(out) != 1 {
		t.Fatalf("got %d candidates, want 1", len(out))
	}
	c := out[0]
	if c.Title != "Scadenza: Contratto (T+30)" {
		t.Errorf("title = %q", c.Title)
	}
	if got := c.DueAt.Format("2006-01-02 15:04"); got != "2026-03-31 18:00" {
		t.Errorf("due at %s, want 2026-03-31 18:00", got)
	}
	if c.Kind != domain.KindTermine || c.Priority != 1 {
		t.Errorf("unexpected shape: %+v", c)
	}
}

func TestChecklistRule(t *testing.T) {
	out := Builtin().Generate("checklist", Input{
		Event:    &domain.Event{Title: "Udienza", StartAt: "2026-03-20T10:00:00+01:00"},
		Settings: config.Default(),
	})
	if len(out) != 2 {
		t.Fatalf("got %d activities, want 2", len(out))
	}
	if out[0].Title != "Preparazione documenti" || out[1].Title != "Verifica citazioni" {
		t.Errorf("default items = %q, %q", out[0].Title, out[1].Title)
	}
	for i, c := range out {
		if c.Kind != domain.KindAttivita {
			t.Errorf("item %d kind = %s", i, c.Kind)
		}
		if got := c.DueAt.Format("2006-01-02"); got != "2026-03-20" {
			t.Errorf("item %d due %s, want event start date", i, got)
		}
	}
}

func TestAnchorWindow(t *testing.T) {
	start, end, ok := AnchorWindow(domain.ActCitazione, domain.ModeDaNotificare, map[string]any{
		"dataNotifica":            "2026-03-01",
		"dataUdienzaComparizione": "2026-09-15",
	})
	if !ok {
		t.Fatal("no anchor found")
	}
	if got := start.Format("2006-01-02"); got != "2026-03-01" {
		t.Errorf("anchor %s, want earliest input 2026-03-01", got)
	}
	if end.Sub(start).Hours() != 1 {
		t.Errorf("window span = %s, want 1h", end.Sub(start))
	}

	if _, _, ok := AnchorWindow(domain.ActCitazione, domain.ModeDaNotificare, map[string]any{}); ok {
		t.Error("anchor reported for empty inputs")
	}
}
