package export

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Event is a single VEVENT.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Cancelled   bool
	Tentative   bool
	UpdatedAt   time.Time
}

// Calendar is the content of an iCalendar feed.
type Calendar struct {
	Name   string
	Events []Event
}

// ICSExporter renders calendars as RFC 5545 text.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter constructs an ICS exporter with the given PRODID.
func NewICSExporter(productID string) *ICSExporter {
	return &ICSExporter{productID: productID, now: time.Now}
}

// Render serialises the calendar. Event times are written in UTC.
func (e *ICSExporter) Render(c Calendar) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.productID)
	if c.Name != "" {
		cal.SetXWRCalName(c.Name)
	}

	stamp := e.now().UTC()
	for _, ev := range c.Events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event requires a uid")
		}
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("ics event %s ends before it starts", ev.UID)
		}
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		if !ev.UpdatedAt.IsZero() {
			vevent.SetModifiedAt(ev.UpdatedAt.UTC())
		}
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		switch {
		case ev.Cancelled:
			vevent.SetStatus(ical.ObjectStatusCancelled)
		case ev.Tentative:
			vevent.SetStatus(ical.ObjectStatusTentative)
		default:
			vevent.SetStatus(ical.ObjectStatusConfirmed)
		}
	}

	return []byte(cal.Serialize()), nil
}
