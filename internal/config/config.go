package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Settings are the tunable knobs of deadline derivation. They are persisted as
// a single JSON document and merged over Default() on load, so partial saves
// and old rows keep working as fields are added.
type Settings struct {
	DefaultReminderTime               string   `json:"defaultReminderTime" yaml:"default_reminder_time"`
	DefaultReminderOffsets            []int    `json:"defaultReminderOffsets" yaml:"default_reminder_offsets"`
	DefaultTimeForDeadlines           string   `json:"defaultTimeForDeadlines" yaml:"default_time_for_deadlines"`
	DefaultReminderOffsetsAtto        []int    `json:"defaultReminderOffsetsAtto" yaml:"default_reminder_offsets_atto"`
	NotificaEsteroDefault             bool     `json:"notificaEsteroDefault" yaml:"notifica_estero_default"`
	TermineComparizioneCitazioneIt    int      `json:"termineComparizioneCitazioneItalia" yaml:"termine_comparizione_citazione_italia"`
	TermineComparizioneCitazioneEst   int      `json:"termineComparizioneCitazioneEstero" yaml:"termine_comparizione_citazione_estero"`
	FerialeSuspensionStart            string   `json:"ferialeSuspensionStart" yaml:"feriale_suspension_start"`
	FerialeSuspensionEnd              string   `json:"ferialeSuspensionEnd" yaml:"feriale_suspension_end"`
	ApplicaSospensioneFeriale         bool     `json:"applicaSospensioneFeriale" yaml:"applica_sospensione_feriale"`
	ItalianHolidays                   []string `json:"italianHolidays" yaml:"italian_holidays"`
}

// Default returns the process defaults applied when no settings row exists.
func Default() *Settings {
	return &Settings{
		DefaultReminderTime:             "09:00",
		DefaultReminderOffsets:          []int{7, 1},
		DefaultTimeForDeadlines:         "18:00",
		DefaultReminderOffsetsAtto:      []int{-30, -7, -1},
		NotificaEsteroDefault:           false,
		TermineComparizioneCitazioneIt:  120,
		TermineComparizioneCitazioneEst: 150,
		FerialeSuspensionStart:          "08-01",
		FerialeSuspensionEnd:            "08-31",
		ApplicaSospensioneFeriale:       false,
		ItalianHolidays:                 []string{},
	}
}

var (
	timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	monthDayRe  = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
)

// Validate ensures times are HH:MM and recurring dates are MM-DD.
func (s *Settings) Validate() error {
	if !timeOfDayRe.MatchString(s.DefaultReminderTime) {
		return fmt.Errorf("invalid defaultReminderTime %q: want HH:MM", s.DefaultReminderTime)
	}
	if !timeOfDayRe.MatchString(s.DefaultTimeForDeadlines) {
		return fmt.Errorf("invalid defaultTimeForDeadlines %q: want HH:MM", s.DefaultTimeForDeadlines)
	}
	if !monthDayRe.MatchString(s.FerialeSuspensionStart) {
		return fmt.Errorf("invalid ferialeSuspensionStart %q: want MM-DD", s.FerialeSuspensionStart)
	}
	if !monthDayRe.MatchString(s.FerialeSuspensionEnd) {
		return fmt.Errorf("invalid ferialeSuspensionEnd %q: want MM-DD", s.FerialeSuspensionEnd)
	}
	for _, d := range s.ItalianHolidays {
		if !monthDayRe.MatchString(d) {
			return fmt.Errorf("invalid italianHolidays entry %q: want MM-DD", d)
		}
	}
	if s.TermineComparizioneCitazioneIt <= 0 || s.TermineComparizioneCitazioneEst <= 0 {
		return fmt.Errorf("termineComparizioneCitazione terms must be positive")
	}
	return nil
}

// Merge overlays a stored JSON document on top of the receiver. Keys absent
// from the document keep their current value.
func (s *Settings) Merge(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("invalid settings json: %w", err)
	}
	return nil
}

// FromJSON returns defaults overlaid with the stored document.
func FromJSON(raw []byte) (*Settings, error) {
	s := Default()
	if err := s.Merge(raw); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromYAML parses and validates a settings import document. Missing keys fall
// back to defaults, same as the JSON path.
func FromYAML(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("invalid settings yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromFile reads a YAML settings document from the given path.
func FromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ToJSON serializes the full settings document for storage.
func (s *Settings) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// ToYAML serializes settings for a deployment override file.
func (s *Settings) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
