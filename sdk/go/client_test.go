package legalcalsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bmarone2002/legalcalendar/internal/db"
	"github.com/bmarone2002/legalcalendar/internal/engine"
	"github.com/bmarone2002/legalcalendar/internal/migrate"
	"github.com/bmarone2002/legalcalendar/internal/server"
)

const testSecret = "sdk-test-secret"

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	handler, err := server.New(server.Config{
		Engine: engine.New(conn),
		Auth:   server.AuthConfig{JWTSecret: testSecret},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func mintToken(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "avv.rossi",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestClientAgainstServer(t *testing.T) {
	srv := newTestAPI(t)
	c := New(srv.URL, mintToken(t))
	ctx := context.Background()

	ev, err := c.CreateEvent(ctx, map[string]any{
		"title":               "Causa Verdi c. Neri",
		"start_at":            "2026-05-04",
		"type":                "udienza",
		"generate_sub_events": true,
		"action_type":         "CITAZIONE",
		"action_mode":         "DA_NOTIFICARE",
		"inputs":              map[string]any{"dataNotifica": "2026-01-10"},
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if ev.ID == "" || ev.ActionTypeLabel != "Citazione" {
		t.Fatalf("event = %+v", ev)
	}

	detail, err := c.Event(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if len(detail.SubEvents) == 0 {
		t.Fatal("expected derived sub-events")
	}

	subs, err := c.Regenerate(ctx, ev.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(subs) != len(detail.SubEvents) {
		t.Fatalf("regenerate count = %d, want %d", len(subs), len(detail.SubEvents))
	}

	candidates, err := c.PreviewDraft(ctx, map[string]any{
		"title":               "Promemoria",
		"start_at":            "2026-06-01",
		"generate_sub_events": true,
		"rule_id":             "reminder",
	})
	if err != nil {
		t.Fatalf("preview draft: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}

	rules, err := c.Rules(ctx)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("rules = %d, want 4", len(rules))
	}

	settings, err := c.PatchSettings(ctx, map[string]any{"defaultReminderTime": "08:30"})
	if err != nil {
		t.Fatalf("patch settings: %v", err)
	}
	if settings["defaultReminderTime"] != "08:30" {
		t.Fatalf("defaultReminderTime = %v", settings["defaultReminderTime"])
	}

	audit, err := c.Audit(ctx, 10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(audit) == 0 {
		t.Fatal("expected audit entries")
	}

	if err := c.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if _, err := c.Event(ctx, ev.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestClientUnauthorized(t *testing.T) {
	srv := newTestAPI(t)
	c := New(srv.URL, "")

	_, err := c.Events(context.Background(), EventFilters{})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
}
