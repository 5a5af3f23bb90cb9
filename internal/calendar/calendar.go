// Package calendar implements the date arithmetic behind deadline derivation:
// Italian holiday and court-recess predicates, business-day rollforward and
// per-day time slots. All functions are pure; policy comes in through
// config.Settings.
package calendar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/config"
	"github.com/bmarone2002/legalcalendar/internal/domain"
)

// EasterSunday computes Gregorian Easter for a year (anonymous algorithm).
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
}

// fixedHolidays are the national Italian holidays with a fixed date, MM-DD.
var fixedHolidays = []string{
	"01-01", // Capodanno
	"01-06", // Epifania
	"04-25", // Liberazione
	"05-01", // Festa del Lavoro
	"06-02", // Festa della Repubblica
	"08-15", // Ferragosto
	"11-01", // Ognissanti
	"12-08", // Immacolata
	"12-25", // Natale
	"12-26", // Santo Stefano
}

func monthDay(t time.Time) string {
	return fmt.Sprintf("%02d-%02d", int(t.Month()), t.Day())
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsItalianHoliday reports whether t falls on a national holiday, an extra
// holiday configured in settings, or Easter Sunday or Monday.
func IsItalianHoliday(t time.Time, s *config.Settings) bool {
	md := monthDay(t)
	for _, h := range fixedHolidays {
		if md == h {
			return true
		}
	}
	if s != nil {
		for _, h := range s.ItalianHolidays {
			if md == h {
				return true
			}
		}
	}
	easter := EasterSunday(t.Year())
	if sameDate(t, easter) || sameDate(t, easter.AddDate(0, 0, 1)) {
		return true
	}
	return false
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// InFerialeSuspension reports whether t falls inside the August court recess
// window configured in settings (inclusive on both ends).
func InFerialeSuspension(t time.Time, s *config.Settings) bool {
	start, end := "08-01", "08-31"
	if s != nil {
		if s.FerialeSuspensionStart != "" {
			start = s.FerialeSuspensionStart
		}
		if s.FerialeSuspensionEnd != "" {
			end = s.FerialeSuspensionEnd
		}
	}
	md := monthDay(t)
	if start <= end {
		return md >= start && md <= end
	}
	// window wrapping the year boundary
	return md >= start || md <= end
}

// IsNonBusinessDay reports whether a deadline may not land on t.
func IsNonBusinessDay(t time.Time, s *config.Settings) bool {
	return IsWeekend(t) || IsItalianHoliday(t, s)
}

// AdjustToNextBusinessDay rolls t forward, one day at a time, until it lands
// on a business day. The time of day is preserved.
func AdjustToNextBusinessDay(t time.Time, s *config.Settings) time.Time {
	for IsNonBusinessDay(t, s) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddTermDays adds a day-count term to base. When the recess suspension is
// enabled and the term is positive, every suspended day the term runs through
// extends the result by one day; the extension itself can run into the window
// and is re-checked until the result is stable.
func AddTermDays(base time.Time, days int, s *config.Settings) time.Time {
	raw := base.AddDate(0, 0, days)
	if s == nil || !s.ApplicaSospensioneFeriale || days <= 0 {
		return raw
	}
	for d := base.AddDate(0, 0, 1); !d.After(raw); d = d.AddDate(0, 0, 1) {
		if InFerialeSuspension(d, s) {
			raw = raw.AddDate(0, 0, 1)
		}
	}
	return raw
}

// ApplyDeadlineTime stamps the configured wall-clock deadline time onto the
// date of t. Falls back to 18:00 when the setting is absent or malformed.
func ApplyDeadlineTime(t time.Time, s *config.Settings) time.Time {
	hh, mm := 18, 0
	if s != nil && s.DefaultTimeForDeadlines != "" {
		if h, m, err := ParseTimeOfDay(s.DefaultTimeForDeadlines); err == nil {
			hh, mm = h, m
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hh, mm, 0, 0, t.Location())
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(v string) (hour, minute int, err error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time of day %q", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time of day %q", v)
	}
	return hour, minute, nil
}

// AssignTimeSlots spreads candidates sharing a calendar day across hourly
// slots starting at 12:00, preserving each candidate's date. Input order is
// kept; only times change.
func AssignTimeSlots(candidates []domain.SubEventCandidate) []domain.SubEventCandidate {
	counts := make(map[string]int)
	out := make([]domain.SubEventCandidate, len(candidates))
	for i, c := range candidates {
		day := c.DueAt.Format("2006-01-02")
		hour := (12 + counts[day]) % 24
		counts[day]++
		c.DueAt = time.Date(c.DueAt.Year(), c.DueAt.Month(), c.DueAt.Day(), hour, 0, 0, 0, c.DueAt.Location())
		out[i] = c
	}
	return out
}

// SortByDueDate orders candidates by due date ascending, stable.
func SortByDueDate(candidates []domain.SubEventCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DueAt.Before(candidates[j].DueAt)
	})
}
