package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"daybook/internal/model"
)

// ProductID is written as the PRODID of every encoded calendar.
const ProductID = "-//daybook//schedule export//EN"

// uidNamespace seeds the name-based UUIDs generated for events without one.
var uidNamespace = uuid.MustParse("6f0d3c1e-5a0b-4f3e-9a57-2d1c8b7e4a90")

// Encode writes events as a PUBLISH calendar with one all-day VEVENT per
// event, in slice order. Events without a UID get a stable one derived from
// their date, title and position among identical (date, title) pairs.
func Encode(w io.Writer, events []model.Event) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	stamp := time.Now().UTC()
	seen := make(map[string]int)

	for _, e := range events {
		uid := e.UID
		if uid == "" {
			key := e.Date.String() + "|" + e.Title
			uid = derivedUID(key, seen[key])
			seen[key]++
		}

		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(stamp)
		ve.SetAllDayStartAt(e.Date.Time())
		ve.SetAllDayEndAt(e.Date.AddDays(1).Time())
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("ics: serialize calendar: %w", err)
	}
	return nil
}

func derivedUID(key string, n int) string {
	name := fmt.Sprintf("%s|%d", key, n)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@daybook"
}
