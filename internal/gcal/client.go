package gcal

import (
	"context"
	"fmt"
	"net/http"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	appLog "github.com/hadronomy/scheduler/internal/log"
	"github.com/hadronomy/scheduler/internal/model"
)

// instanceKeyProp is the private extended property tying a Google event
// back to the expanded instance that produced it. Reconciliation across
// runs is keyed entirely on this value.
const instanceKeyProp = "schedulerKey"

// Client wraps the Google Calendar API service.
type Client struct {
	service *calendar.Service
}

// NewClient builds a calendar client on an authenticated HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("gcal: create calendar service: %w", err)
	}
	return &Client{service: service}, nil
}

// FindOrCreateCalendar finds a calendar by name or creates it, returning
// its id. The color id is applied on creation only; a failure to set it
// is logged, not fatal.
func (c *Client) FindOrCreateCalendar(name, colorID string) (string, error) {
	list, err := c.service.CalendarList.List().Do()
	if err != nil {
		return "", fmt.Errorf("gcal: list calendars: %w", err)
	}
	for _, cal := range list.Items {
		if cal.Summary == name {
			return cal.Id, nil
		}
	}

	created, err := c.service.Calendars.Insert(&calendar.Calendar{
		Summary:     name,
		Description: "Expanded timetable instances",
	}).Do()
	if err != nil {
		return "", fmt.Errorf("gcal: create calendar: %w", err)
	}

	if colorID != "" {
		if _, err := c.service.CalendarList.Patch(created.Id, &calendar.CalendarListEntry{
			ColorId: colorID,
		}).Do(); err != nil {
			appLog.Error("gcal: set calendar color failed", err, "calendar_id", created.Id)
		}
	}
	return created.Id, nil
}

// SyncInstances reconciles the calendar against the expanded instance
// list: new instances are inserted, changed ones updated, and events
// whose instance key no longer exists are deleted. Local datetimes are
// sent verbatim with the schedule's IANA zone; Google applies the zone,
// never this code.
func (c *Client) SyncInstances(calendarID string, tz model.TimeZoneID, instances []model.EventInstance) error {
	existing, err := c.listByInstanceKey(calendarID)
	if err != nil {
		return err
	}

	var inserted, updated, deleted int

	seen := make(map[string]bool, len(instances))
	for _, inst := range instances {
		key := inst.Key()
		seen[key] = true
		want := prepareEvent(inst, tz)

		cur, ok := existing[key]
		if !ok {
			if _, err := c.service.Events.Insert(calendarID, want).SendUpdates("none").Do(); err != nil {
				return fmt.Errorf("gcal: insert event %q: %w", key, err)
			}
			inserted++
			continue
		}
		if !eventsEqual(cur, want) {
			if _, err := c.service.Events.Update(calendarID, cur.Id, want).SendUpdates("none").Do(); err != nil {
				return fmt.Errorf("gcal: update event %q: %w", key, err)
			}
			updated++
		}
	}

	for key, ev := range existing {
		if seen[key] {
			continue
		}
		if err := c.service.Events.Delete(calendarID, ev.Id).SendUpdates("none").Do(); err != nil {
			return fmt.Errorf("gcal: delete stale event %q: %w", key, err)
		}
		deleted++
	}

	appLog.Info("gcal: sync complete",
		"calendar_id", calendarID,
		"instances", len(instances),
		"inserted", inserted,
		"updated", updated,
		"deleted", deleted,
	)
	return nil
}

// listByInstanceKey indexes every previously synced event by its
// instance key. Events without the property were created by hand and
// are left alone.
func (c *Client) listByInstanceKey(calendarID string) (map[string]*calendar.Event, error) {
	out := make(map[string]*calendar.Event)
	pageToken := ""
	for {
		call := c.service.Events.List(calendarID).SingleEvents(false).MaxResults(2500)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("gcal: list events: %w", err)
		}
		for _, ev := range list.Items {
			if ev.ExtendedProperties == nil || ev.ExtendedProperties.Private == nil {
				continue
			}
			if key := ev.ExtendedProperties.Private[instanceKeyProp]; key != "" {
				out[key] = ev
			}
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

// prepareEvent maps one expanded instance onto a Google event. The
// datetime strings already match what the API accepts when a TimeZone
// is given alongside (offset-less local time).
func prepareEvent(inst model.EventInstance, tz model.TimeZoneID) *calendar.Event {
	return &calendar.Event{
		Summary:     inst.Title,
		Location:    inst.Location,
		Description: inst.Description,
		Start: &calendar.EventDateTime{
			DateTime: inst.StartDateTimeLocal,
			TimeZone: string(tz),
		},
		End: &calendar.EventDateTime{
			DateTime: inst.EndDateTimeLocal,
			TimeZone: string(tz),
		},
		Reminders: &calendar.EventReminders{UseDefault: true},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{instanceKeyProp: inst.Key()},
		},
	}
}

// eventsEqual compares the properties SyncInstances manages.
func eventsEqual(a, b *calendar.Event) bool {
	if a.Summary != b.Summary || a.Location != b.Location || a.Description != b.Description {
		return false
	}
	if a.Start == nil || b.Start == nil || a.Start.DateTime != b.Start.DateTime || a.Start.TimeZone != b.Start.TimeZone {
		return false
	}
	if a.End == nil || b.End == nil || a.End.DateTime != b.End.DateTime || a.End.TimeZone != b.End.TimeZone {
		return false
	}
	return true
}
