package model

// EventInstance is one concrete dated, timed materialization of an
// item, as produced by expansion. The local datetime strings carry no
// timezone suffix and always match YYYY-MM-DDTHH:MM:00 (whole-minute
// resolution). Instances are pure derived data, recomputable at any
// time from the schedule.
type EventInstance struct {
	ClassID            string `json:"classId,omitempty"`
	Title              string `json:"title"`
	Date               Date   `json:"date"`
	StartDateTimeLocal string `json:"startDateTimeLocal"`
	EndDateTimeLocal   string `json:"endDateTimeLocal"`
	Location           string `json:"location,omitempty"`
	Description        string `json:"description,omitempty"`
}

// Key returns a stable per-instance identifier used by the calendar
// sink and the ICS exporter to reconcile repeated runs.
func (e EventInstance) Key() string {
	if e.ClassID != "" {
		return e.ClassID + "/" + e.StartDateTimeLocal
	}
	return e.Title + "/" + e.StartDateTimeLocal
}
