package model

import (
	"encoding/json"
)

// RuleKind discriminates the recurrence variants. Exactly one variant is
// active per rule; decoding rejects unknown kinds.
type RuleKind string

const (
	RuleNone             RuleKind = "none"
	RuleDaily            RuleKind = "daily"
	RuleWeekly           RuleKind = "weekly"
	RuleSimpleWeekly     RuleKind = "simpleWeekly"
	RuleMonthlyByDay     RuleKind = "monthlyByDay"
	RuleMonthlyByWeekday RuleKind = "monthlyByWeekday"
	RuleXDays            RuleKind = "xDays"
)

// RecurrenceRule is the tagged union of recurrence patterns. Only the
// fields belonging to Kind are populated; the rest stay at their zero
// values and are omitted when marshalled.
type RecurrenceRule struct {
	Kind RuleKind

	// Interval is the step between occurrences in the rule's own unit
	// (days, weeks or months). Zero means the default of 1.
	Interval int
	// Until is an optional inclusive upper date bound.
	Until Date

	// ByDays is the weekday subset for weekly and simpleWeekly rules.
	ByDays []Weekday

	// StartTime / EndTime are carried only by simpleWeekly, which bundles
	// one time window shared by all its weekdays.
	StartTime TimeOfDay
	EndTime   TimeOfDay

	// Day is the day-of-month (1..31) for monthlyByDay.
	Day int

	// Position / Weekday select e.g. "last Friday" for monthlyByWeekday.
	Position WeekdayPosition
	Weekday  Weekday

	// Dates is the explicit enumeration for xDays.
	Dates []Date
}

// EffectiveInterval returns Interval with the default of 1 applied.
func (r RecurrenceRule) EffectiveInterval() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

// NeedsWeekdaySet reports whether the kind requires a non-empty ByDays.
func (r RecurrenceRule) NeedsWeekdaySet() bool {
	return r.Kind == RuleWeekly || r.Kind == RuleSimpleWeekly
}

// SelfBounding reports whether the rule enumerates its own dates and
// therefore needs no window bound (only xDays).
func (r RecurrenceRule) SelfBounding() bool {
	return r.Kind == RuleXDays
}

type recurrenceJSON struct {
	Kind      RuleKind        `json:"kind"`
	Interval  *int            `json:"interval,omitempty"`
	Until     Date            `json:"until,omitempty"`
	ByDays    []Weekday       `json:"byDays,omitempty"`
	StartTime TimeOfDay       `json:"startTime,omitempty"`
	EndTime   TimeOfDay       `json:"endTime,omitempty"`
	Day       int             `json:"day,omitempty"`
	Position  WeekdayPosition `json:"position,omitempty"`
	Weekday   Weekday         `json:"weekday,omitempty"`
	Dates     []Date          `json:"dates,omitempty"`
}

func (r *RecurrenceRule) UnmarshalJSON(data []byte) error {
	var raw recurrenceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case RuleNone:
	case RuleDaily:
	case RuleWeekly:
		if len(raw.ByDays) == 0 {
			return errSchema("rule.byDays", "weekly rule requires a non-empty weekday set")
		}
	case RuleSimpleWeekly:
		if len(raw.ByDays) == 0 {
			return errSchema("rule.byDays", "simpleWeekly rule requires a non-empty weekday set")
		}
		if raw.StartTime == "" || raw.EndTime == "" {
			return errSchema("rule.startTime", "simpleWeekly rule requires startTime and endTime")
		}
	case RuleMonthlyByDay:
		if raw.Day < 1 || raw.Day > 31 {
			return errSchema("rule.day", "monthlyByDay requires day in [1,31], got %d", raw.Day)
		}
	case RuleMonthlyByWeekday:
		if raw.Position == "" || raw.Weekday == "" {
			return errSchema("rule.position", "monthlyByWeekday requires position and weekday")
		}
	case RuleXDays:
		if len(raw.Dates) == 0 {
			return errSchema("rule.dates", "xDays rule requires a non-empty date list")
		}
		if raw.Interval != nil || raw.Until != "" {
			return errSchema("rule.interval", "xDays rule carries neither interval nor until")
		}
	default:
		return errSchema("rule.kind", "unknown recurrence kind %q", string(raw.Kind))
	}

	if raw.Interval != nil && *raw.Interval < 1 {
		return errSchema("rule.interval", "interval must be a positive integer, got %d", *raw.Interval)
	}

	*r = RecurrenceRule{
		Kind:      raw.Kind,
		Until:     raw.Until,
		ByDays:    raw.ByDays,
		StartTime: raw.StartTime,
		EndTime:   raw.EndTime,
		Day:       raw.Day,
		Position:  raw.Position,
		Weekday:   raw.Weekday,
		Dates:     raw.Dates,
	}
	if raw.Interval != nil {
		r.Interval = *raw.Interval
	}
	return nil
}

func (r RecurrenceRule) MarshalJSON() ([]byte, error) {
	raw := recurrenceJSON{
		Kind:      r.Kind,
		Until:     r.Until,
		ByDays:    r.ByDays,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Day:       r.Day,
		Position:  r.Position,
		Weekday:   r.Weekday,
		Dates:     r.Dates,
	}
	if r.Interval > 0 {
		raw.Interval = &r.Interval
	}
	return json.Marshal(raw)
}
