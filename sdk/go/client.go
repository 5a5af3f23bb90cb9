package legalcalsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Legal Calendar HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, bearerToken string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BearerToken: bearerToken,
		Timeout:     10 * time.Second,
	}
}

// Event represents the API event model (partial).
type Event struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	StartAt         string         `json:"start_at"`
	EndAt           string         `json:"end_at"`
	Type            string         `json:"type"`
	Tags            []string       `json:"tags,omitempty"`
	CaseID          string         `json:"case_id,omitempty"`
	RuleID          string         `json:"rule_id,omitempty"`
	ActionType      string         `json:"action_type,omitempty"`
	ActionMode      string         `json:"action_mode,omitempty"`
	Inputs          map[string]any `json:"inputs,omitempty"`
	ActionTypeLabel string         `json:"action_type_label,omitempty"`
	AnchorStart     string         `json:"anchor_start,omitempty"`
	AnchorEnd       string         `json:"anchor_end,omitempty"`
}

// SubEvent represents a derived or manual deadline row.
type SubEvent struct {
	ID            string `json:"id"`
	ParentEventID string `json:"parent_event_id"`
	Title         string `json:"title"`
	Kind          string `json:"kind"`
	DueAt         string `json:"due_at"`
	Status        string `json:"status"`
	Locked        bool   `json:"locked"`
	Priority      int    `json:"priority"`
	CreatedBy     string `json:"created_by"`
	Explanation   string `json:"explanation,omitempty"`
}

// EventDetail pairs an event with its sub-events.
type EventDetail struct {
	Event
	SubEvents []SubEvent `json:"sub_events"`
}

// Candidate is a derivation preview row.
type Candidate struct {
	Title       string `json:"title"`
	Kind        string `json:"kind"`
	DueAt       string `json:"due_at"`
	Priority    int    `json:"priority"`
	RuleID      string `json:"rule_id"`
	Explanation string `json:"explanation,omitempty"`
}

// Rule identifies a derivation rule.
type Rule struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AuditEntry represents a log entry.
type AuditEntry struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateEvent creates an event. The body follows the API event request
// shape, e.g. map[string]any{"title": ..., "start_at": ...}.
func (c *Client) CreateEvent(ctx context.Context, body map[string]any) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodPost, "events", body, &resp)
	return resp, err
}

// EventFilters narrow an event listing.
type EventFilters struct {
	From   string
	To     string
	Type   string
	CaseID string
	Limit  int
}

// Events lists events in a window.
func (c *Client) Events(ctx context.Context, f EventFilters) ([]Event, error) {
	q := url.Values{}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.CaseID != "" {
		q.Set("case_id", f.CaseID)
	}
	if f.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", f.Limit))
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Event fetches an event with its sub-events.
func (c *Client) Event(ctx context.Context, id string) (EventDetail, error) {
	var resp EventDetail
	err := c.do(ctx, http.MethodGet, "events/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// UpdateEvent replaces an event. Unlocked sub-events are rederived.
func (c *Client) UpdateEvent(ctx context.Context, id string, body map[string]any) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodPut, "events/"+url.PathEscape(id), body, &resp)
	return resp, err
}

// DeleteEvent removes an event and its sub-events.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "events/"+url.PathEscape(id), nil, nil)
}

// Regenerate rederives sub-events for an event, keeping locked rows.
func (c *Client) Regenerate(ctx context.Context, id string) ([]SubEvent, error) {
	var resp []SubEvent
	err := c.do(ctx, http.MethodPost, "events/"+url.PathEscape(id)+"/regenerate", nil, &resp)
	return resp, err
}

// Preview shows what regeneration would derive for a stored event.
func (c *Client) Preview(ctx context.Context, id string) ([]Candidate, error) {
	var resp []Candidate
	err := c.do(ctx, http.MethodPost, "events/"+url.PathEscape(id)+"/preview", nil, &resp)
	return resp, err
}

// PreviewDraft derives candidates for an unsaved event request.
func (c *Client) PreviewDraft(ctx context.Context, body map[string]any) ([]Candidate, error) {
	var resp []Candidate
	err := c.do(ctx, http.MethodPost, "events/preview", body, &resp)
	return resp, err
}

// SubEvents lists the sub-events of an event.
func (c *Client) SubEvents(ctx context.Context, eventID string) ([]SubEvent, error) {
	var resp []SubEvent
	err := c.do(ctx, http.MethodGet, "events/"+url.PathEscape(eventID)+"/subevents", nil, &resp)
	return resp, err
}

// AddSubEvent stores a manual sub-event under an event.
func (c *Client) AddSubEvent(ctx context.Context, eventID string, body map[string]any) (SubEvent, error) {
	var resp SubEvent
	err := c.do(ctx, http.MethodPost, "events/"+url.PathEscape(eventID)+"/subevents", body, &resp)
	return resp, err
}

// PatchSubEvent applies a partial update (status, locked, title, due_at).
func (c *Client) PatchSubEvent(ctx context.Context, id string, body map[string]any) (SubEvent, error) {
	var resp SubEvent
	err := c.do(ctx, http.MethodPatch, "subevents/"+url.PathEscape(id), body, &resp)
	return resp, err
}

// DeleteSubEvent removes a sub-event.
func (c *Client) DeleteSubEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "subevents/"+url.PathEscape(id), nil, nil)
}

// Rules lists the available derivation rules.
func (c *Client) Rules(ctx context.Context) ([]Rule, error) {
	var resp []Rule
	err := c.do(ctx, http.MethodGet, "rules", nil, &resp)
	return resp, err
}

// Settings returns the effective settings document.
func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodGet, "settings", nil, &resp)
	return resp, err
}

// PatchSettings merges a partial settings document.
func (c *Client) PatchSettings(ctx context.Context, patch map[string]any) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodPatch, "settings", patch, &resp)
	return resp, err
}

// Audit returns recent audit entries.
func (c *Client) Audit(ctx context.Context, limit int) ([]AuditEntry, error) {
	endpoint := "audit"
	if limit > 0 {
		endpoint = fmt.Sprintf("audit?limit=%d", limit)
	}
	var resp []AuditEntry
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
