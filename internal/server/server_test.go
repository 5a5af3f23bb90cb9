package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bmarone2002/legalcalendar/internal/db"
	"github.com/bmarone2002/legalcalendar/internal/domain"
	"github.com/bmarone2002/legalcalendar/internal/engine"
	"github.com/bmarone2002/legalcalendar/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	token  string
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		token:  mintToken(t, "avv.rossi"),
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	res, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestHealthOpenAndAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, err := srv.Client().Get(srv.URL + "/v1/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d, want 200", res.StatusCode)
	}

	res, err = srv.Client().Get(srv.URL + "/v1/events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list status %d, want 401", res.StatusCode)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Errorf("error code %q, want unauthorized", envelope.Error.Code)
	}
}

func TestBadTokenRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/events", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status %d, want 401", res.StatusCode)
	}
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := srv.doJSON(t, http.MethodPost, "/v1/events", map[string]any{
		"title":               "Causa Rossi c. Bianchi",
		"start_at":            "2026-03-01",
		"type":                "notifica",
		"generate_sub_events": true,
		"action_type":         "CITAZIONE",
		"action_mode":         "DA_NOTIFICARE",
		"inputs": map[string]any{
			"dataNotifica": "2026-03-01",
		},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create event status %d: %s", res.StatusCode, string(data))
	}
	var created EventResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if created.RuleID != domain.RuleIDAttoGiuridico {
		t.Errorf("rule id %q, want %s", created.RuleID, domain.RuleIDAttoGiuridico)
	}
	if created.ActionTypeLabel != "Citazione" {
		t.Errorf("action type label %q", created.ActionTypeLabel)
	}
	if created.AnchorStart == "" {
		t.Error("anchor window missing on legal act")
	}

	res, data = srv.doJSON(t, http.MethodGet, "/v1/events/"+created.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get event status %d: %s", res.StatusCode, string(data))
	}
	var detail EventDetailResponse
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if len(detail.SubEvents) == 0 {
		t.Fatal("no sub-events derived on create")
	}
	for i := 1; i < len(detail.SubEvents); i++ {
		if detail.SubEvents[i-1].DueAt > detail.SubEvents[i].DueAt {
			t.Errorf("sub-events out of order at %d", i)
		}
	}

	res, data = srv.doJSON(t, http.MethodPost, "/v1/events/"+created.ID+"/regenerate", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("regenerate status %d: %s", res.StatusCode, string(data))
	}
	var regenerated []domain.SubEvent
	if err := json.Unmarshal(data, &regenerated); err != nil {
		t.Fatalf("unmarshal regenerate: %v", err)
	}
	if len(regenerated) != len(detail.SubEvents) {
		t.Errorf("regenerate produced %d rows, want %d", len(regenerated), len(detail.SubEvents))
	}

	res, data = srv.doJSON(t, http.MethodDelete, "/v1/events/"+created.ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, _ = srv.doJSON(t, http.MethodGet, "/v1/events/"+created.ID, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status %d, want 404", res.StatusCode)
	}
}

func TestPreviewDraftDoesNotWrite(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := srv.doJSON(t, http.MethodPost, "/v1/events/preview", map[string]any{
		"title":               "Promemoria udienza",
		"start_at":            "2026-03-20",
		"generate_sub_events": true,
		"rule_id":             "reminder",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("preview status %d: %s", res.StatusCode, string(data))
	}
	var candidates []CandidateResponse
	if err := json.Unmarshal(data, &candidates); err != nil {
		t.Fatalf("unmarshal preview: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("preview derived %d candidates, want 2", len(candidates))
	}

	res, data = srv.doJSON(t, http.MethodGet, "/v1/events", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var events []EventResponse
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("preview persisted %d events", len(events))
	}
}

func TestSubEventPatch(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := srv.doJSON(t, http.MethodPost, "/v1/events", map[string]any{
		"title":    "Deposito memoria",
		"start_at": "2026-04-10",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create event status %d: %s", res.StatusCode, string(data))
	}
	var ev EventResponse
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}

	res, data = srv.doJSON(t, http.MethodPost, "/v1/events/"+ev.ID+"/subevents", map[string]any{
		"title":  "Richiedere copie",
		"due_at": "2026-04-08",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create sub-event status %d: %s", res.StatusCode, string(data))
	}
	var se domain.SubEvent
	if err := json.Unmarshal(data, &se); err != nil {
		t.Fatalf("unmarshal sub-event: %v", err)
	}
	if se.CreatedBy != domain.CreatedManuale {
		t.Errorf("created_by %q, want manuale", se.CreatedBy)
	}

	res, data = srv.doJSON(t, http.MethodPatch, "/v1/subevents/"+se.ID, map[string]any{
		"status": "done",
		"locked": true,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	var patched domain.SubEvent
	if err := json.Unmarshal(data, &patched); err != nil {
		t.Fatalf("unmarshal patched: %v", err)
	}
	if patched.Status != domain.StatusDone || !patched.Locked {
		t.Errorf("patch not applied: %+v", patched)
	}

	res, data = srv.doJSON(t, http.MethodPatch, "/v1/subevents/"+se.ID, map[string]any{})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty patch status %d: %s", res.StatusCode, string(data))
	}

	res, data = srv.doJSON(t, http.MethodDelete, "/v1/subevents/"+se.ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete sub-event status %d: %s", res.StatusCode, string(data))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := srv.doJSON(t, http.MethodPatch, "/v1/settings", map[string]any{
		"defaultReminderTime": "08:00",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch settings status %d: %s", res.StatusCode, string(data))
	}

	res, data = srv.doJSON(t, http.MethodGet, "/v1/settings", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get settings status %d: %s", res.StatusCode, string(data))
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings["defaultReminderTime"] != "08:00" {
		t.Errorf("defaultReminderTime = %v, want 08:00", settings["defaultReminderTime"])
	}
	if settings["defaultTimeForDeadlines"] != "18:00" {
		t.Errorf("defaultTimeForDeadlines = %v, want untouched default", settings["defaultTimeForDeadlines"])
	}

	res, data = srv.doJSON(t, http.MethodPatch, "/v1/settings", map[string]any{
		"defaultReminderTime": "25:99",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid patch status %d: %s", res.StatusCode, string(data))
	}
}

func TestAuditRecordsActor(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := srv.doJSON(t, http.MethodPost, "/v1/events", map[string]any{
		"title":    "Udienza di comparizione",
		"start_at": "2026-05-11",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create event status %d: %s", res.StatusCode, string(data))
	}

	res, data = srv.doJSON(t, http.MethodGet, "/v1/audit?type=event.created", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("audit status %d: %s", res.StatusCode, string(data))
	}
	var entries []AuditEntryResponse
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unmarshal audit: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no audit entry for event.created")
	}
	if actor := entries[0].Payload["actor"]; actor != "avv.rossi" {
		t.Errorf("audit actor = %v, want token subject", actor)
	}
}

func TestRulesListed(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := srv.doJSON(t, http.MethodGet, "/v1/rules", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("rules status %d: %s", res.StatusCode, string(data))
	}
	var rules []RuleResponse
	if err := json.Unmarshal(data, &rules); err != nil {
		t.Fatalf("unmarshal rules: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("listed %d rules, want 4", len(rules))
	}
	found := false
	for _, r := range rules {
		if r.ID == domain.RuleIDAttoGiuridico && r.Label != "" {
			found = true
		}
	}
	if !found {
		t.Error("atto-giuridico rule missing from listing")
	}
}
