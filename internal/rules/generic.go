package rules

import (
	"fmt"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/calendar"
	"github.com/bmarone2002/legalcalendar/internal/domain"
)

// reminderRule schedules plain reminders ahead of the event start. Offsets
// and time of day come from the user's selections, falling back to settings.
type reminderRule struct{}

func (reminderRule) ID() string    { return "reminder" }
func (reminderRule) Label() string { return "Promemoria standard" }

func (reminderRule) Generate(in Input) []domain.SubEventCandidate {
	if in.Event == nil {
		return nil
	}
	start, ok := parseEventTime(in.Event.StartAt)
	if !ok {
		return nil
	}

	offsets := []int{7, 1}
	if v, ok := intSliceInput(in.UserSelections, "reminderOffsets"); ok {
		offsets = v
	} else if in.Settings != nil && len(in.Settings.DefaultReminderOffsets) > 0 {
		offsets = in.Settings.DefaultReminderOffsets
	}
	timeStr := "09:00"
	if v, ok := strInput(in.UserSelections, "reminderTime"); ok {
		timeStr = v
	} else if in.Settings != nil && in.Settings.DefaultReminderTime != "" {
		timeStr = in.Settings.DefaultReminderTime
	}
	hh, mm, err := calendar.ParseTimeOfDay(timeStr)
	if err != nil {
		hh, mm = 9, 0
	}

	out := make([]domain.SubEventCandidate, 0, len(offsets))
	for _, daysBefore := range offsets {
		d := start.AddDate(0, 0, -daysBefore)
		due := time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, d.Location())
		out = append(out, domain.SubEventCandidate{
			Title:      fmt.Sprintf("Promemoria: %s (T-%d)", in.Event.Title, daysBefore),
			Kind:       domain.KindPromemoria,
			DueAt:      due,
			Status:     domain.StatusPending,
			Priority:   0,
			RuleID:     "reminder",
			RuleParams: map[string]any{"daysBefore": daysBefore, "time": timeStr},
			Explanation: fmt.Sprintf("Promemoria %d giorni prima dell'evento (%s alle %s)",
				daysBefore, due.Format("02/01/2006"), timeStr),
			CreatedBy: domain.CreatedAutomatico,
		})
	}
	return out
}

// genericDeadlineRule derives a single catch-all deadline a number of days
// after the event end.
type genericDeadlineRule struct{}

func (genericDeadlineRule) ID() string    { return "generic-deadline" }
func (genericDeadlineRule) Label() string { return "Scadenza generica" }

func (genericDeadlineRule) Generate(in Input) []domain.SubEventCandidate {
	if in.Event == nil {
		return nil
	}
	end, ok := parseEventTime(in.Event.EndAt)
	if !ok {
		return nil
	}

	daysAfter := 30
	if v, ok := intInput(in.UserSelections, "deadlineDays"); ok {
		daysAfter = v
	}
	timeStr := "18:00"
	if v, ok := strInput(in.UserSelections, "deadlineTime"); ok {
		timeStr = v
	}
	hh, mm, err := calendar.ParseTimeOfDay(timeStr)
	if err != nil {
		hh, mm = 18, 0
	}

	d := end.AddDate(0, 0, daysAfter)
	due := time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, d.Location())
	return []domain.SubEventCandidate{{
		Title:      fmt.Sprintf("Scadenza: %s (T+%d)", in.Event.Title, daysAfter),
		Kind:       domain.KindTermine,
		DueAt:      due,
		Status:     domain.StatusPending,
		Priority:   1,
		RuleID:     "generic-deadline",
		RuleParams: map[string]any{"daysAfter": daysAfter, "time": timeStr},
		Explanation: fmt.Sprintf("Scadenza %d giorni dopo la fine dell'evento (%s alle %s)",
			daysAfter, due.Format("02/01/2006"), timeStr),
		CreatedBy: domain.CreatedAutomatico,
	}}
}

// checklistRule attaches preparation activities to the event start.
type checklistRule struct{}

func (checklistRule) ID() string    { return "checklist" }
func (checklistRule) Label() string { return "Checklist" }

type checklistItem struct {
	Title string
	Order int
}

var defaultChecklist = []checklistItem{
	{Title: "Preparazione documenti", Order: 0},
	{Title: "Verifica citazioni", Order: 1},
}

func (checklistRule) Generate(in Input) []domain.SubEventCandidate {
	if in.Event == nil {
		return nil
	}
	start, ok := parseEventTime(in.Event.StartAt)
	if !ok {
		return nil
	}

	items := defaultChecklist
	if v, ok := in.UserSelections["checklistItems"]; ok {
		if parsed := parseChecklistItems(v); len(parsed) > 0 {
			items = parsed
		}
	}

	out := make([]domain.SubEventCandidate, 0, len(items))
	for i, item := range items {
		out = append(out, domain.SubEventCandidate{
			Title:       item.Title,
			Kind:        domain.KindAttivita,
			DueAt:       start,
			Status:      domain.StatusPending,
			Priority:    i,
			RuleID:      "checklist",
			RuleParams:  map[string]any{"order": item.Order},
			Explanation: fmt.Sprintf("Attività collegata all'evento del %s", start.Format("02/01/2006")),
			CreatedBy:   domain.CreatedAutomatico,
		})
	}
	return out
}

func parseChecklistItems(v any) []checklistItem {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]checklistItem, 0, len(items))
	for _, e := range items {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		if title == "" {
			continue
		}
		order := len(out)
		if n, ok := intInput(m, "order"); ok {
			order = n
		}
		out = append(out, checklistItem{Title: title, Order: order})
	}
	return out
}
