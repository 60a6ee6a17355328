// Package seed loads the initial event collection a schedule is built from.
// Seed files are read-only input; nothing is ever written back to them.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"daybook/internal/ics"
	appLog "daybook/internal/log"
	"daybook/internal/model"
)

var (
	// ErrInvalidEvent marks an event without a date or title.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrUnsupportedFormat is returned for seed files whose extension is
	// neither YAML nor iCalendar.
	ErrUnsupportedFormat = errors.New("unsupported seed format")
)

// File is the YAML seed document layout:
//
//	events:
//	  - date: 2024-01-01
//	    title: New Year
//	    location: Home
type File struct {
	Events []model.Event `yaml:"events"`
}

// Validate checks the fields a schedule keys events by.
func Validate(e model.Event) error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: missing title (date %s)", ErrInvalidEvent, e.Date)
	}
	return nil
}

// Load reads events from path. The format is chosen by extension:
// .yaml/.yml for a File document, .ics for iCalendar. Events are returned
// in file order so that inserting them preserves same-day ordering.
func Load(path string) ([]model.Event, error) {
	if path == "" {
		return nil, errors.New("seed path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var events []model.Event
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		events, err = decodeYAML(data)
	case ".ics", ".ical":
		events, err = ics.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}

	for i, e := range events {
		if err := Validate(e); err != nil {
			return nil, fmt.Errorf("seed %s: event %d: %w", path, i, err)
		}
	}

	appLog.Info("seed loaded", "path", path, "event_count", len(events))
	return events, nil
}

func decodeYAML(data []byte) ([]model.Event, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Events == nil {
		return []model.Event{}, nil
	}
	return f.Events, nil
}
