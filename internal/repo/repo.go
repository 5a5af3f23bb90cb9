package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const eventColumns = `id,title,description,start_at,end_at,type,tags_json,case_id,notes,color,generate_sub_events,rule_id,rule_params_json,action_type,action_mode,inputs_json,created_at,updated_at`

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var description, tagsJSON, caseID, notes, color, ruleID, ruleParamsJSON, actionType, actionMode, inputsJSON sql.NullString
	var generate int
	err := scan(&e.ID, &e.Title, &description, &e.StartAt, &e.EndAt, &e.Type, &tagsJSON, &caseID, &notes, &color,
		&generate, &ruleID, &ruleParamsJSON, &actionType, &actionMode, &inputsJSON, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.GenerateSubEvents = generate != 0
	if description.Valid {
		e.Description = description.String
	}
	if caseID.Valid {
		e.CaseID = caseID.String
	}
	if notes.Valid {
		e.Notes = notes.String
	}
	if color.Valid {
		e.Color = color.String
	}
	if ruleID.Valid {
		e.RuleID = ruleID.String
	}
	if actionType.Valid {
		e.ActionType = domain.ActionType(actionType.String)
	}
	if actionMode.Valid {
		e.ActionMode = domain.ActionMode(actionMode.String)
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &e.Tags); err != nil {
			return e, fmt.Errorf("event %s tags: %w", e.ID, err)
		}
	}
	if ruleParamsJSON.Valid && ruleParamsJSON.String != "" {
		if err := json.Unmarshal([]byte(ruleParamsJSON.String), &e.RuleParams); err != nil {
			return e, fmt.Errorf("event %s rule params: %w", e.ID, err)
		}
	}
	if inputsJSON.Valid && inputsJSON.String != "" {
		if err := json.Unmarshal([]byte(inputsJSON.String), &e.Inputs); err != nil {
			return e, fmt.Errorf("event %s inputs: %w", e.ID, err)
		}
	}
	return e, nil
}

func (r Repo) InsertEvent(ctx context.Context, tx *sql.Tx, e domain.Event) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO events(`+eventColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Title, nullable(e.Description), e.StartAt, e.EndAt, e.Type, jsonNullable(e.Tags), nullable(e.CaseID),
		nullable(e.Notes), nullable(e.Color), boolInt(e.GenerateSubEvents), nullable(e.RuleID), jsonNullable(e.RuleParams),
		nullable(string(e.ActionType)), nullable(string(e.ActionMode)), jsonNullable(e.Inputs), e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) UpdateEvent(ctx context.Context, tx *sql.Tx, e domain.Event) error {
	res, err := tx.ExecContext(ctx, `UPDATE events SET title=?, description=?, start_at=?, end_at=?, type=?, tags_json=?, case_id=?, notes=?, color=?, generate_sub_events=?, rule_id=?, rule_params_json=?, action_type=?, action_mode=?, inputs_json=?, updated_at=? WHERE id=?`,
		e.Title, nullable(e.Description), e.StartAt, e.EndAt, e.Type, jsonNullable(e.Tags), nullable(e.CaseID),
		nullable(e.Notes), nullable(e.Color), boolInt(e.GenerateSubEvents), nullable(e.RuleID), jsonNullable(e.RuleParams),
		nullable(string(e.ActionType)), nullable(string(e.ActionMode)), jsonNullable(e.Inputs), e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=?`, id)
	return scanEvent(row.Scan)
}

func (r Repo) GetEventTx(ctx context.Context, tx *sql.Tx, id string) (domain.Event, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=?`, id)
	return scanEvent(row.Scan)
}

func (r Repo) DeleteEvent(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type EventFilters struct {
	From   string
	To     string
	Type   string
	CaseID string
	Limit  int
}

// ListEvents returns events ordered by start date. From/To bound the event
// start, inclusive on From and exclusive on To.
func (r Repo) ListEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	var clauses []string
	var args []any
	if f.From != "" {
		clauses = append(clauses, "start_at>=?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "start_at<?")
		args = append(args, f.To)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.CaseID != "" {
		clauses = append(clauses, "case_id=?")
		args = append(args, f.CaseID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + eventColumns + ` FROM events ` + where + ` ORDER BY start_at ASC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

const subEventColumns = `id,parent_event_id,title,kind,due_at,status,priority,rule_id,rule_params_json,explanation,created_by,locked,created_at,updated_at`

func scanSubEvent(scan func(dest ...any) error) (domain.SubEvent, error) {
	var se domain.SubEvent
	var ruleID, ruleParamsJSON, explanation sql.NullString
	var locked int
	err := scan(&se.ID, &se.ParentEventID, &se.Title, &se.Kind, &se.DueAt, &se.Status, &se.Priority,
		&ruleID, &ruleParamsJSON, &explanation, &se.CreatedBy, &locked, &se.CreatedAt, &se.UpdatedAt)
	if err == sql.ErrNoRows {
		return se, ErrNotFound
	}
	if err != nil {
		return se, err
	}
	se.Locked = locked != 0
	if ruleID.Valid {
		se.RuleID = ruleID.String
	}
	if explanation.Valid {
		se.Explanation = explanation.String
	}
	if ruleParamsJSON.Valid && ruleParamsJSON.String != "" {
		if err := json.Unmarshal([]byte(ruleParamsJSON.String), &se.RuleParams); err != nil {
			return se, fmt.Errorf("sub-event %s rule params: %w", se.ID, err)
		}
	}
	return se, nil
}

func (r Repo) InsertSubEvent(ctx context.Context, tx *sql.Tx, se domain.SubEvent) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sub_events(`+subEventColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		se.ID, se.ParentEventID, se.Title, se.Kind, se.DueAt, se.Status, se.Priority, nullable(se.RuleID),
		jsonNullable(se.RuleParams), nullable(se.Explanation), se.CreatedBy, boolInt(se.Locked), se.CreatedAt, se.UpdatedAt)
	return err
}

func (r Repo) GetSubEvent(ctx context.Context, id string) (domain.SubEvent, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+subEventColumns+` FROM sub_events WHERE id=?`, id)
	return scanSubEvent(row.Scan)
}

// ListSubEvents returns the sub-events of an event ordered by due date.
func (r Repo) ListSubEvents(ctx context.Context, parentEventID string) ([]domain.SubEvent, error) {
	return listSubEvents(ctx, r.DB.QueryContext, parentEventID)
}

func (r Repo) ListSubEventsTx(ctx context.Context, tx *sql.Tx, parentEventID string) ([]domain.SubEvent, error) {
	return listSubEvents(ctx, tx.QueryContext, parentEventID)
}

func listSubEvents(ctx context.Context, query func(ctx context.Context, query string, args ...any) (*sql.Rows, error), parentEventID string) ([]domain.SubEvent, error) {
	rows, err := query(ctx, `SELECT `+subEventColumns+` FROM sub_events WHERE parent_event_id=? ORDER BY due_at ASC, id ASC`, parentEventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SubEvent
	for rows.Next() {
		se, err := scanSubEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, se)
	}
	return res, rows.Err()
}

// DeleteUnlockedSubEvents removes the regenerable rows of an event. Locked
// rows survive untouched.
func (r Repo) DeleteUnlockedSubEvents(ctx context.Context, tx *sql.Tx, parentEventID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM sub_events WHERE parent_event_id=? AND locked=0`, parentEventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) UpdateSubEventStatus(ctx context.Context, tx *sql.Tx, id string, status domain.SubEventStatus, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE sub_events SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetSubEventLocked(ctx context.Context, tx *sql.Tx, id string, locked bool, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE sub_events SET locked=?, updated_at=? WHERE id=?`, boolInt(locked), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSubEvent edits title and due date. Empty values keep the stored ones.
func (r Repo) UpdateSubEvent(ctx context.Context, tx *sql.Tx, id, title, dueAt, updatedAt string) error {
	var fields []string
	var args []any
	if title != "" {
		fields = append(fields, "title=?")
		args = append(args, title)
	}
	if dueAt != "" {
		fields = append(fields, "due_at=?")
		args = append(args, dueAt)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE sub_events SET %s WHERE id=?`, strings.Join(fields, ", ")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteSubEvent(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM sub_events WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSettingsJSON returns the stored settings document. ErrNotFound when no
// row has ever been saved.
func (r Repo) GetSettingsJSON(ctx context.Context) ([]byte, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT data_json FROM settings WHERE id=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

func (r Repo) SaveSettingsJSON(ctx context.Context, tx *sql.Tx, raw []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO settings(id,data_json,updated_at) VALUES (1,?,?)
ON CONFLICT(id) DO UPDATE SET data_json=excluded.data_json, updated_at=excluded.updated_at`, string(raw), now)
	return err
}

type AuditFilters struct {
	EntityKind string
	EntityID   string
	Type       string
	Limit      int
	Cursor     int64
}

// LatestAudit returns audit rows, newest first.
func (r Repo) LatestAudit(ctx context.Context, f AuditFilters) ([]domain.AuditEvent, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.Cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Cursor)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,payload_json FROM audit_log %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditEvent
	for rows.Next() {
		var a domain.AuditEvent
		var entityID, payload sql.NullString
		if err := rows.Scan(&a.ID, &a.TS, &a.Type, &a.EntityKind, &entityID, &payload); err != nil {
			return nil, err
		}
		if entityID.Valid {
			a.EntityID = entityID.String
		}
		if payload.Valid {
			a.Payload = payload.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func jsonNullable(v any) any {
	switch vv := v.(type) {
	case []string:
		if len(vv) == 0 {
			return nil
		}
	case map[string]any:
		if len(vv) == 0 {
			return nil
		}
	case nil:
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}
