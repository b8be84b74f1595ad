// Package calendar exports events as iCalendar documents.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/eventhub/internal/application"
)

const (
	productID       = "-//eventhub//ES"
	uidDomain       = "eventhub"
	defaultDuration = time.Hour
)

// Exporter renders events as single-VEVENT calendars.
type Exporter struct {
	location *time.Location
	duration time.Duration
	now      func() time.Time
}

// NewExporter constructs an exporter. Event dates and times are interpreted in
// loc (UTC when nil) and each event lasts duration (one hour when zero).
func NewExporter(loc *time.Location, duration time.Duration, now func() time.Time) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	if duration <= 0 {
		duration = defaultDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Exporter{location: loc, duration: duration, now: now}
}

// Filename returns the download name for event.
func Filename(event application.Event) string {
	return fmt.Sprintf("%s.ics", event.ID)
}

// Write encodes event to w.
func (e *Exporter) Write(w io.Writer, event application.Event) error {
	ve, err := e.toICal(event)
	if err != nil {
		return err
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, ve)

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	return nil
}

func (e *Exporter) toICal(event application.Event) (*ical.Component, error) {
	clock := event.Time
	if clock == "" {
		clock = application.DefaultEventTime
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", event.Date+" "+clock, e.location)
	if err != nil {
		return nil, fmt.Errorf("invalid event schedule %q %q: %w", event.Date, event.Time, err)
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", event.ID, uidDomain))
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, e.now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(e.duration).UTC())

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.Category != "" {
		ve.Props.SetText(ical.PropCategories, event.Category)
	}
	if event.Status == application.EventStatusCancelled {
		ve.Props.SetText(ical.PropStatus, "CANCELLED")
	} else {
		ve.Props.SetText(ical.PropStatus, "CONFIRMED")
	}
	if event.OrganizerEmail != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", event.OrganizerEmail))
		ve.Props.Add(p)
	}
	for _, participant := range event.Participants {
		if participant.UserEmail == "" {
			continue
		}
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", participant.UserEmail))
		ve.Props.Add(p)
	}
	return ve, nil
}
