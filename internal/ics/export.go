// Package ics serializes expanded event instances into an iCalendar
// document consumable by any calendar application.
package ics

import (
	"errors"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hadronomy/scheduler/internal/model"
)

const prodID = "-//hadronomy//scheduler//EN"

// Export renders the instances as a VCALENDAR. Every DTSTART/DTEND is a
// TZID-tagged local time in the schedule's zone; no offset arithmetic
// happens here. UIDs are derived from the stable instance key so
// re-imports update rather than duplicate.
func Export(tz model.TimeZoneID, instances []model.EventInstance) (string, error) {
	if tz == "" {
		return "", errors.New("ics: timezone is required")
	}

	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetMethod(ical.MethodPublish)

	tzParam := &ical.KeyValues{Key: "TZID", Value: []string{string(tz)}}
	now := time.Now().UTC()

	for _, inst := range instances {
		ev := cal.AddEvent(uidFor(inst))
		ev.SetDtStampTime(now)
		ev.SetSummary(inst.Title)
		if inst.Location != "" {
			ev.SetLocation(inst.Location)
		}
		if inst.Description != "" {
			ev.SetDescription(inst.Description)
		}
		ev.SetProperty(ical.ComponentPropertyDtStart, compactLocal(inst.StartDateTimeLocal), tzParam)
		ev.SetProperty(ical.ComponentPropertyDtEnd, compactLocal(inst.EndDateTimeLocal), tzParam)
	}

	return cal.Serialize(), nil
}

// WriteFile exports the instances to an .ics file with 0644 perms.
func WriteFile(path string, tz model.TimeZoneID, instances []model.EventInstance) error {
	body, err := Export(tz, instances)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}

// compactLocal converts YYYY-MM-DDTHH:MM:SS into the iCalendar local
// form YYYYMMDDTHHMMSS.
func compactLocal(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, ":", "")
}

// uidFor derives a calendar UID from the stable instance key. Spaces
// are squeezed out to keep the UID a single token.
func uidFor(inst model.EventInstance) string {
	key := strings.ReplaceAll(inst.Key(), " ", "-")
	return key + "@scheduler"
}
