package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date in strict YYYY-MM-DD form. The zero value ""
// means "absent"; a non-empty Date is always well-formed after ParseDate
// or JSON decoding. Because the form is fixed-width and zero-padded,
// plain string comparison orders Dates chronologically.
type Date string

// TimeOfDay is a wall-clock time in strict HH:MM:SS form (seconds
// mandatory, no fractional part, no offset). As with Date, lexical
// comparison is chronological.
type TimeOfDay string

// LocalDateTime is a timezone-less local timestamp in strict
// YYYY-MM-DDTHH:MM:SS form, interpreted in the schedule's single zone.
type LocalDateTime string

// TimeZoneID is an IANA zone identifier with at least one
// Area/Location segment (e.g. "Europe/Madrid"). Zones are never
// inferred or defaulted; the schedule root always carries one.
type TimeZoneID string

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// ParseDate validates s as a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	// time.Parse alone is too lenient (accepts unpadded fields), so the
	// shape is checked first and the parse only verifies the calendar.
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return "", errInvalidPrimitive("date", s, "want YYYY-MM-DD")
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", errInvalidPrimitive("date", s, "not a calendar date")
	}
	return Date(s), nil
}

// ParseTimeOfDay validates s as a strict HH:MM:SS wall-clock time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 8 || s[2] != ':' || s[5] != ':' {
		return "", errInvalidPrimitive("time", s, "want HH:MM:SS")
	}
	if _, err := time.Parse(timeLayout, s); err != nil {
		return "", errInvalidPrimitive("time", s, "not a wall-clock time")
	}
	return TimeOfDay(s), nil
}

// ParseLocalDateTime validates s as strict YYYY-MM-DDTHH:MM:SS.
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	if len(s) != 19 || s[10] != 'T' {
		return "", errInvalidPrimitive("datetime", s, "want YYYY-MM-DDTHH:MM:SS")
	}
	if _, err := ParseDate(s[:10]); err != nil {
		return "", errInvalidPrimitive("datetime", s, "bad date component")
	}
	if _, err := ParseTimeOfDay(s[11:]); err != nil {
		return "", errInvalidPrimitive("datetime", s, "bad time component")
	}
	return LocalDateTime(s), nil
}

// ParseTimeZone validates s as a loadable IANA identifier carrying at
// least one Area/Location segment. Bare abbreviations ("UTC", "CET")
// are rejected even though the platform zone database resolves them.
func ParseTimeZone(s string) (TimeZoneID, error) {
	if !strings.Contains(s, "/") {
		return "", errInvalidPrimitive("timezone", s, "want an Area/Location IANA identifier")
	}
	if _, err := time.LoadLocation(s); err != nil {
		return "", errInvalidPrimitive("timezone", s, "unknown zone")
	}
	return TimeZoneID(s), nil
}

// Time returns the date as a UTC midnight instant. Expansion does all
// date arithmetic on these instants; the schedule's zone only tags the
// emitted local datetimes.
func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

// Weekday reports the ISO weekday code of the date.
func (d Date) Weekday() Weekday {
	return weekdayFromTime(d.Time().Weekday())
}

func (d Date) IsZero() bool { return d == "" }

// HourMinute returns the HH:MM prefix of the time.
func (t TimeOfDay) HourMinute() string { return string(t)[:5] }

// Date returns the date component.
func (dt LocalDateTime) Date() Date { return Date(string(dt)[:10]) }

// TimeOfDay returns the time component.
func (dt LocalDateTime) TimeOfDay() TimeOfDay { return TimeOfDay(string(dt)[11:]) }

// Location resolves the zone via the platform database.
func (z TimeZoneID) Location() (*time.Location, error) {
	return time.LoadLocation(string(z))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (dt *LocalDateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseLocalDateTime(s)
	if err != nil {
		return err
	}
	*dt = v
	return nil
}

func (z *TimeZoneID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimeZone(s)
	if err != nil {
		return err
	}
	*z = v
	return nil
}

// Weekday is an ISO 8601 two-letter weekday code. Codes are
// case-sensitive; anything but the seven constants below is rejected.
type Weekday string

const (
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
	Sunday    Weekday = "SU"
)

// ParseWeekday validates an ISO weekday code.
func ParseWeekday(s string) (Weekday, error) {
	switch Weekday(s) {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return Weekday(s), nil
	}
	return "", errInvalidPrimitive("weekday", s, "want one of MO TU WE TH FR SA SU")
}

func (w *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*w = v
	return nil
}

func weekdayFromTime(w time.Weekday) Weekday {
	switch w {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// WeekdayPosition selects the nth occurrence of a weekday within a
// month: 1 through 4, or last.
type WeekdayPosition string

const PositionLast WeekdayPosition = "last"

// Nth returns the position as an rrule-style ordinal: 1..4, or -1 for last.
func (p WeekdayPosition) Nth() int {
	switch p {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	default:
		return -1
	}
}

func (p *WeekdayPosition) UnmarshalJSON(data []byte) error {
	// Accept both the JSON number form (1..4) and the string "last".
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 1 || n > 4 {
			return errInvalidPrimitive("weekdayPosition", fmt.Sprint(n), "want 1..4 or \"last\"")
		}
		*p = WeekdayPosition(fmt.Sprint(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "1", "2", "3", "4", string(PositionLast):
		*p = WeekdayPosition(s)
		return nil
	}
	return errInvalidPrimitive("weekdayPosition", s, "want 1..4 or \"last\"")
}

func (p WeekdayPosition) MarshalJSON() ([]byte, error) {
	if p == PositionLast {
		return json.Marshal(string(p))
	}
	return []byte(string(p)), nil
}
