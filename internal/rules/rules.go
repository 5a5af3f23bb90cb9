// Package rules hosts the derivation rules. A rule turns an event, the
// current settings and the user's selections into sub-event candidates; it
// never touches storage and never fails on incomplete inputs, it just derives
// what the inputs allow.
package rules

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/config"
	"github.com/bmarone2002/legalcalendar/internal/domain"
)

type Input struct {
	Event          *domain.Event
	Settings       *config.Settings
	UserSelections map[string]any
}

type Rule interface {
	ID() string
	Label() string
	Generate(in Input) []domain.SubEventCandidate
}

// Registry maps rule ids to rules. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID()] = rule
}

func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

// List returns the registered rules ordered by id.
func (r *Registry) List() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Generate runs the rule with the given id. An unknown id yields no
// candidates; callers that need strictness check Get first.
func (r *Registry) Generate(id string, in Input) []domain.SubEventCandidate {
	rule, ok := r.Get(id)
	if !ok {
		return nil
	}
	return rule.Generate(in)
}

// Builtin returns a registry with every built-in rule registered.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(attoGiuridicoRule{})
	r.Register(reminderRule{})
	r.Register(genericDeadlineRule{})
	r.Register(checklistRule{})
	return r
}

// selections resolves the input map a rule reads: the event's structured
// inputs when present, the caller's selections otherwise.
func selections(in Input) map[string]any {
	if in.Event != nil && len(in.Event.Inputs) > 0 {
		return in.Event.Inputs
	}
	if in.UserSelections != nil {
		return in.UserSelections
	}
	return map[string]any{}
}

// dateInput reads a date value from an input map. Strings are read as
// YYYY-MM-DD (longer strings are truncated first) and anchored at local noon
// so business-day arithmetic cannot slip across midnight.
func dateInput(m map[string]any, key string) (time.Time, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch s := v.(type) {
	case string:
		if len(s) < 10 {
			return time.Time{}, false
		}
		d, err := time.ParseInLocation("2006-01-02", s[:10], time.Local)
		if err != nil {
			return time.Time{}, false
		}
		return d.Add(12 * time.Hour), true
	case time.Time:
		return s, true
	}
	return time.Time{}, false
}

func intInput(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func intSliceInput(m map[string]any, key string) ([]int, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	switch vs := v.(type) {
	case []int:
		return vs, true
	case []any:
		out := make([]int, 0, len(vs))
		for _, e := range vs {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

func strInput(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func boolInput(m map[string]any, key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// parseEventTime reads a stored event timestamp. Accepts RFC3339 or a bare
// date, which lands at local noon.
func parseEventTime(v string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(time.Local), true
	}
	if len(v) >= 10 {
		if t, err := time.ParseInLocation("2006-01-02", v[:10], time.Local); err == nil {
			return t.Add(12 * time.Hour), true
		}
	}
	return time.Time{}, false
}
