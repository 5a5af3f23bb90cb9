package calendar

import (
	"testing"
	"time"

	"github.com/bmarone2002/legalcalendar/internal/config"
	"github.com/bmarone2002/legalcalendar/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.Local)
}

func TestEasterSunday(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		day   int
	}{
		{2024, time.March, 31},
		{2025, time.April, 20},
		{2026, time.April, 5},
	}
	for _, c := range cases {
		got := EasterSunday(c.year)
		if got.Month() != c.month || got.Day() != c.day {
			t.Errorf("EasterSunday(%d) = %s, want %d-%02d", c.year, got.Format("2006-01-02"), c.month, c.day)
		}
	}
}

func TestIsItalianHoliday(t *testing.T) {
	s := config.Default()
	if !IsItalianHoliday(date(2026, time.December, 25), s) {
		t.Error("Natale should be a holiday")
	}
	if !IsItalianHoliday(date(2026, time.April, 6), s) {
		t.Error("Easter Monday 2026 should be a holiday")
	}
	if IsItalianHoliday(date(2026, time.March, 11), s) {
		t.Error("2026-03-11 is an ordinary Wednesday")
	}
	s.ItalianHolidays = []string{"07-15"}
	if !IsItalianHoliday(date(2026, time.July, 15), s) {
		t.Error("extra holiday from settings not honored")
	}
}

func TestAdjustToNextBusinessDay(t *testing.T) {
	s := config.Default()
	// Saturday before Easter 2026: Sat, Easter Sunday, Easter Monday all skip.
	got := AdjustToNextBusinessDay(date(2026, time.April, 4), s)
	if got.Format("2006-01-02") != "2026-04-07" {
		t.Errorf("rolled to %s, want 2026-04-07", got.Format("2006-01-02"))
	}
	if got.Hour() != 12 {
		t.Errorf("time of day changed during roll: %s", got.Format(time.RFC3339))
	}
	// A plain business day is untouched.
	got = AdjustToNextBusinessDay(date(2026, time.March, 11), s)
	if got.Format("2006-01-02") != "2026-03-11" {
		t.Errorf("business day moved to %s", got.Format("2006-01-02"))
	}
}

func TestAddTermDaysWithoutSuspension(t *testing.T) {
	s := config.Default()
	got := AddTermDays(date(2026, time.July, 30), 5, s)
	if got.Format("2006-01-02") != "2026-08-04" {
		t.Errorf("got %s, want 2026-08-04", got.Format("2006-01-02"))
	}
}

func TestAddTermDaysWithSuspension(t *testing.T) {
	s := config.Default()
	s.ApplicaSospensioneFeriale = true
	// Five-day term starting 30 July pauses for all of August.
	got := AddTermDays(date(2026, time.July, 30), 5, s)
	if got.Format("2006-01-02") != "2026-09-04" {
		t.Errorf("got %s, want 2026-09-04", got.Format("2006-01-02"))
	}
	// Negative offsets are never extended.
	got = AddTermDays(date(2026, time.September, 10), -20, s)
	if got.Format("2006-01-02") != "2026-08-21" {
		t.Errorf("got %s, want 2026-08-21", got.Format("2006-01-02"))
	}
}

func TestApplyDeadlineTime(t *testing.T) {
	s := config.Default()
	s.DefaultTimeForDeadlines = "12:00"
	got := ApplyDeadlineTime(date(2026, time.March, 11), s)
	if got.Hour() != 12 || got.Minute() != 0 {
		t.Errorf("got %s, want 12:00", got.Format("15:04"))
	}
	s.DefaultTimeForDeadlines = "bogus"
	got = ApplyDeadlineTime(date(2026, time.March, 11), s)
	if got.Hour() != 18 {
		t.Errorf("fallback hour = %d, want 18", got.Hour())
	}
}

func TestAssignTimeSlots(t *testing.T) {
	in := []domain.SubEventCandidate{
		{Title: "a", DueAt: date(2026, time.March, 11)},
		{Title: "b", DueAt: date(2026, time.March, 11)},
		{Title: "c", DueAt: date(2026, time.March, 11)},
		{Title: "d", DueAt: date(2026, time.March, 12)},
	}
	out := AssignTimeSlots(in)
	wantHours := []int{12, 13, 14, 12}
	for i, c := range out {
		if c.DueAt.Hour() != wantHours[i] || c.DueAt.Minute() != 0 {
			t.Errorf("%s slot = %s, want %02d:00", c.Title, c.DueAt.Format("15:04"), wantHours[i])
		}
		if c.DueAt.Format("2006-01-02") != in[i].DueAt.Format("2006-01-02") {
			t.Errorf("%s date moved to %s", c.Title, c.DueAt.Format("2006-01-02"))
		}
	}
}
