// Package schedule implements an in-memory store of calendar events grouped
// by date.
//
// A Schedule is not safe for concurrent use. Callers that share one between
// goroutines must serialize access themselves.
package schedule

import (
	"sort"

	"daybook/internal/model"
)

// Schedule maps each calendar date to the events occurring on it, in
// insertion order.
type Schedule struct {
	eventsByDate map[model.Date][]model.Event
}

// New returns an empty Schedule.
func New() *Schedule {
	return &Schedule{eventsByDate: make(map[model.Date][]model.Event)}
}

// NewFrom returns a Schedule pre-loaded with events, inserted in slice order.
func NewFrom(events []model.Event) *Schedule {
	s := New()
	for _, e := range events {
		s.Insert(e)
	}
	return s
}

// Insert appends e to the events of its date and returns s for chaining.
// Duplicate (date, title) pairs are accepted; lookups and single removals
// resolve them by taking the first match. The event's date is normalized
// before it is stored.
func (s *Schedule) Insert(e model.Event) *Schedule {
	e.Date = e.Date.Normalize()
	s.eventsByDate[e.Date] = append(s.eventsByDate[e.Date], e)
	return s
}

// Get returns the first event on d whose title equals title.
func (s *Schedule) Get(d model.Date, title string) (model.Event, bool) {
	d = d.Normalize()
	for _, e := range s.eventsByDate[d] {
		if e.Title == title {
			return e, true
		}
	}
	return model.Event{}, false
}

// Len returns the number of stored events.
func (s *Schedule) Len() int {
	n := 0
	for _, events := range s.eventsByDate {
		n += len(events)
	}
	return n
}

// ExportAll returns every stored event sorted by date. Events sharing a date
// keep their insertion order.
func (s *Schedule) ExportAll() []model.Event {
	out := make([]model.Event, 0, s.Len())
	for _, events := range s.eventsByDate {
		out = append(out, events...)
	}
	return sortByDate(out)
}

// ExportDateRange returns the events dated from..to, both inclusive. The
// range is walked one calendar day at a time, so the cost grows with the
// number of days spanned rather than the number of stored events. An
// inverted range (from after to) yields an empty result.
func (s *Schedule) ExportDateRange(from, to model.Date) []model.Event {
	from, to = from.Normalize(), to.Normalize()
	out := make([]model.Event, 0)
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, s.eventsByDate[d]...)
	}
	return sortByDate(out)
}

// ExportTitle returns every event titled title across all dates, sorted by
// date.
func (s *Schedule) ExportTitle(title string) []model.Event {
	out := make([]model.Event, 0)
	for _, events := range s.eventsByDate {
		for _, e := range events {
			if e.Title == title {
				out = append(out, e)
			}
		}
	}
	return sortByDate(out)
}

// Remove deletes and returns the first event on d titled title. When that
// was the last event of the day, the date entry itself is dropped.
func (s *Schedule) Remove(d model.Date, title string) (model.Event, bool) {
	d = d.Normalize()
	events, ok := s.eventsByDate[d]
	if !ok {
		return model.Event{}, false
	}
	for i, e := range events {
		if e.Title != title {
			continue
		}
		rest := append(events[:i:i], events[i+1:]...)
		if len(rest) == 0 {
			delete(s.eventsByDate, d)
		} else {
			s.eventsByDate[d] = rest
		}
		return e, true
	}
	return model.Event{}, false
}

// RemoveDateRange deletes every date entry from..to, both inclusive, and
// returns the removed events sorted by date. Like ExportDateRange it walks
// the range day by day, and an inverted range removes nothing.
func (s *Schedule) RemoveDateRange(from, to model.Date) []model.Event {
	from, to = from.Normalize(), to.Normalize()
	out := make([]model.Event, 0)
	for d := from; !d.After(to); d = d.AddDays(1) {
		events, ok := s.eventsByDate[d]
		if !ok {
			continue
		}
		out = append(out, events...)
		delete(s.eventsByDate, d)
	}
	return sortByDate(out)
}

// RemoveTitle deletes every event titled title on every date and returns
// them sorted by date.
//
// Unlike Remove, a date whose events are all removed keeps an empty entry.
// Empty entries are invisible to every export and lookup.
func (s *Schedule) RemoveTitle(title string) []model.Event {
	out := make([]model.Event, 0)
	for d, events := range s.eventsByDate {
		kept := events[:0:0]
		for _, e := range events {
			if e.Title == title {
				out = append(out, e)
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) != len(events) {
			s.eventsByDate[d] = kept
		}
	}
	return sortByDate(out)
}

// RemoveAll clears the schedule and returns what ExportAll would have
// returned just before.
func (s *Schedule) RemoveAll() []model.Event {
	out := s.ExportAll()
	clear(s.eventsByDate)
	return out
}

func sortByDate(events []model.Event) []model.Event {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}
