package model

import (
	"encoding/json"
	"strings"
)

// ItemType discriminates the two schedule item variants.
type ItemType string

const (
	ItemSingle    ItemType = "single"
	ItemRecurring ItemType = "recurring"
)

// Classroom is an optional structured location. Room is the only
// required field.
type Classroom struct {
	Campus   string   `json:"campus,omitempty"`
	Building string   `json:"building,omitempty"`
	Room     string   `json:"room"`
	Capacity int      `json:"capacity,omitempty"`
	Features []string `json:"features,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

func (c *Classroom) UnmarshalJSON(data []byte) error {
	type plain Classroom
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Room == "" {
		return errSchema("classroom.room", "classroom requires a room")
	}
	if raw.Features == nil {
		raw.Features = []string{}
	}
	*c = Classroom(raw)
	return nil
}

// String renders the classroom as a display location, most specific
// part last: "Campus, Building, Room".
func (c Classroom) String() string {
	parts := make([]string, 0, 3)
	if c.Campus != "" {
		parts = append(parts, c.Campus)
	}
	if c.Building != "" {
		parts = append(parts, c.Building)
	}
	parts = append(parts, c.Room)
	return strings.Join(parts, ", ")
}

// WeekdayOverride adjusts base times or location for one weekday of a
// weekly item without creating a new item. Empty fields keep the base
// value.
type WeekdayOverride struct {
	Weekday     Weekday   `json:"weekday"`
	StartTime   TimeOfDay `json:"startTime,omitempty"`
	EndTime     TimeOfDay `json:"endTime,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// OccurrenceOverride is either a cancellation marker or a shallow patch
// applied to one expanded occurrence. Pointer fields distinguish
// "absent" from "present but empty"; time fields use "" as absent since
// a valid TimeOfDay is never empty.
type OccurrenceOverride struct {
	Cancelled   bool      `json:"cancelled,omitempty"`
	Start       TimeOfDay `json:"start,omitempty"`
	End         TimeOfDay `json:"end,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Description *string   `json:"description,omitempty"`
	Color       *string   `json:"color,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// ScheduleItem is the tagged union of single and recurring events. The
// single variant carries Start/End; the recurring variant carries the
// rule, base times, optional date bounds, exclusions and overrides.
type ScheduleItem struct {
	Type ItemType

	ID          string
	Title       string
	Description string
	Location    string
	Color       string
	Tags        []string
	Classroom   *Classroom

	// SeriesID and Variant are both present or both absent; referential
	// integrity against the registry is checked by the validator, not
	// here (the binding is a weak reference, not an owning link).
	SeriesID string
	Variant  *VariantInfo

	// Single.
	Start LocalDateTime
	End   LocalDateTime

	// Recurring.
	Rule             RecurrenceRule
	StartTime        TimeOfDay
	EndTime          TimeOfDay
	StartOn          Date
	EndOn            Date
	ExcludedDates    []Date
	Overrides        map[Date]OccurrenceOverride
	WeekdayOverrides []WeekdayOverride
}

type scheduleItemJSON struct {
	Type ItemType `json:"type"`

	ID          string       `json:"id,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	Color       string       `json:"color,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Classroom   *Classroom   `json:"classroom,omitempty"`
	SeriesID    string       `json:"seriesId,omitempty"`
	Variant     *VariantInfo `json:"variant,omitempty"`

	Start LocalDateTime `json:"start,omitempty"`
	End   LocalDateTime `json:"end,omitempty"`

	Rule             *RecurrenceRule               `json:"rule,omitempty"`
	StartTime        TimeOfDay                     `json:"startTime,omitempty"`
	EndTime          TimeOfDay                     `json:"endTime,omitempty"`
	StartOn          Date                          `json:"startOn,omitempty"`
	EndOn            Date                          `json:"endOn,omitempty"`
	ExcludedDates    []Date                        `json:"excludedDates,omitempty"`
	Overrides        map[string]OccurrenceOverride `json:"overrides,omitempty"`
	WeekdayOverrides []WeekdayOverride             `json:"weekdayOverrides,omitempty"`
}

func (it *ScheduleItem) UnmarshalJSON(data []byte) error {
	var raw scheduleItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case ItemSingle:
		if raw.Start == "" || raw.End == "" {
			return errSchema("start", "single item requires start and end")
		}
	case ItemRecurring:
		if raw.Rule == nil {
			return errSchema("rule", "recurring item requires a recurrence rule")
		}
		if raw.Rule.Kind == RuleNone {
			return errSchema("rule.kind", "recurring item requires a non-none recurrence rule")
		}
		if raw.Rule.Kind != RuleSimpleWeekly && (raw.StartTime == "" || raw.EndTime == "") {
			return errSchema("startTime", "recurring item requires startTime and endTime")
		}
	default:
		return errSchema("type", "unknown item type %q", string(raw.Type))
	}

	// JSON object keys bypass Date's UnmarshalJSON, so override keys are
	// validated here.
	var overrides map[Date]OccurrenceOverride
	if len(raw.Overrides) > 0 {
		overrides = make(map[Date]OccurrenceOverride, len(raw.Overrides))
		for k, v := range raw.Overrides {
			d, err := ParseDate(k)
			if err != nil {
				return errSchema("overrides", "override key %q is not a date", k)
			}
			overrides[d] = v
		}
	}

	*it = ScheduleItem{
		Type:             raw.Type,
		ID:               raw.ID,
		Title:            raw.Title,
		Description:      raw.Description,
		Location:         raw.Location,
		Color:            raw.Color,
		Tags:             raw.Tags,
		Classroom:        raw.Classroom,
		SeriesID:         raw.SeriesID,
		Variant:          raw.Variant,
		Start:            raw.Start,
		End:              raw.End,
		StartTime:        raw.StartTime,
		EndTime:          raw.EndTime,
		StartOn:          raw.StartOn,
		EndOn:            raw.EndOn,
		ExcludedDates:    raw.ExcludedDates,
		Overrides:        overrides,
		WeekdayOverrides: raw.WeekdayOverrides,
	}
	if raw.Rule != nil {
		it.Rule = *raw.Rule
	}
	return nil
}

func (it ScheduleItem) MarshalJSON() ([]byte, error) {
	raw := scheduleItemJSON{
		Type:             it.Type,
		ID:               it.ID,
		Title:            it.Title,
		Description:      it.Description,
		Location:         it.Location,
		Color:            it.Color,
		Tags:             it.Tags,
		Classroom:        it.Classroom,
		SeriesID:         it.SeriesID,
		Variant:          it.Variant,
		Start:            it.Start,
		End:              it.End,
		StartTime:        it.StartTime,
		EndTime:          it.EndTime,
		StartOn:          it.StartOn,
		EndOn:            it.EndOn,
		ExcludedDates:    it.ExcludedDates,
		WeekdayOverrides: it.WeekdayOverrides,
	}
	if it.Type == ItemRecurring {
		rule := it.Rule
		raw.Rule = &rule
	}
	if len(it.Overrides) > 0 {
		raw.Overrides = make(map[string]OccurrenceOverride, len(it.Overrides))
		for k, v := range it.Overrides {
			raw.Overrides[string(k)] = v
		}
	}
	return json.Marshal(raw)
}

// IsExcluded reports whether date d is in the item's exclusion set.
func (it ScheduleItem) IsExcluded(d Date) bool {
	for _, ex := range it.ExcludedDates {
		if ex == d {
			return true
		}
	}
	return false
}

// WeekdayOverrideFor returns the per-weekday override matching w, if any.
func (it ScheduleItem) WeekdayOverrideFor(w Weekday) *WeekdayOverride {
	for i := range it.WeekdayOverrides {
		if it.WeekdayOverrides[i].Weekday == w {
			return &it.WeekdayOverrides[i]
		}
	}
	return nil
}

// Schedule is the root document: one IANA zone applied uniformly to
// every local time in the document, optional term bounds, the series
// registry and the ordered item list. Documents are constructed once by
// the extraction step and never mutated afterwards.
type Schedule struct {
	TimeZone  TimeZoneID     `json:"timeZone"`
	TermStart Date           `json:"termStart,omitempty"`
	TermEnd   Date           `json:"termEnd,omitempty"`
	Series    SeriesRegistry `json:"series,omitempty"`
	Items     []ScheduleItem `json:"items"`
}

// ParseSchedule decodes and shape-checks a schedule document. Primitive
// and schema errors surface here; cross-field consistency is a separate
// validator pass.
func ParseSchedule(data []byte) (*Schedule, error) {
	var s Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.TimeZone == "" {
		return nil, errSchema("timeZone", "schedule requires a timeZone")
	}
	if s.Series == nil {
		s.Series = SeriesRegistry{}
	}
	return &s, nil
}
