// Package ics converts between iCalendar (RFC 5545) data and model.Event.
//
// Only the date of each VEVENT is kept. Recurring events are not expanded;
// they are skipped on decode.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "daybook/internal/log"
	"daybook/internal/model"
)

var (
	errMissingSummary = errors.New("missing SUMMARY")
	errMissingDtStart = errors.New("missing DTSTART")
	errRecurring      = errors.New("recurring events are not supported")
)

// Decode parses an iCalendar stream into events, one per VEVENT, in the
// order they appear. VEVENTs that cannot be represented (no SUMMARY, no
// DTSTART, RRULE or RECURRENCE-ID present) are logged and skipped.
func Decode(r io.Reader) ([]model.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	events := make([]model.Event, 0)
	skipped := 0
	for _, ve := range cal.Events() {
		e, perr := decodeVEvent(ve)
		if perr != nil {
			skipped++
			appLog.Warn("ics vevent skipped", "uid", ve.Id(), "reason", perr.Error())
			continue
		}
		events = append(events, e)
	}

	appLog.Debug("ics decode completed", "event_count", len(events), "skipped", skipped)
	return events, nil
}

func decodeVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	if ve.GetProperty(ical.ComponentPropertyRrule) != nil || ve.GetProperty("RECURRENCE-ID") != nil {
		return out, errRecurring
	}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = strings.TrimSpace(p.Value)
	}
	if out.Title == "" {
		return out, errMissingSummary
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	d, err := startDate(ve)
	if err != nil {
		return out, err
	}
	out.Date = d

	return out, nil
}

// startDate returns the calendar date of DTSTART as written, without
// converting between timezones.
func startDate(ve *ical.VEvent) (model.Date, error) {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil || strings.TrimSpace(prop.Value) == "" {
		return model.Date{}, errMissingDtStart
	}

	var (
		start time.Time
		err   error
	)
	if isDateValue(prop) {
		start, err = ve.GetAllDayStartAt()
	} else {
		start, err = ve.GetStartAt()
	}
	if err != nil {
		return model.Date{}, fmt.Errorf("DTSTART %q: %w", prop.Value, err)
	}
	return model.DateOf(start), nil
}

// isDateValue reports whether a property carries a DATE (not DATE-TIME)
// value, either via VALUE=DATE or a value without a time part.
func isDateValue(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}
