package schedule

import (
	"fmt"
	"sort"

	"github.com/teambition/rrule-go"

	"github.com/hadronomy/scheduler/internal/model"
)

// defaultMaxInstancesPerItem caps expansion of a single item. Hitting
// the cap almost always signals a misconfigured (effectively unbounded)
// window, so it fails the expansion instead of truncating.
const defaultMaxInstancesPerItem = 5000

// ExpandOptions controls occurrence expansion.
type ExpandOptions struct {
	// MaxInstancesPerItem overrides the per-item safety cap. Zero means
	// defaultMaxInstancesPerItem.
	MaxInstancesPerItem int
}

// Expand turns a validated schedule into the ordered, deduplicated list
// of concrete event instances. Instances are emitted by item position
// in the source list, then by ascending date within an item, then by
// ascending start time for same-day instances. No cross-item sorting by
// date happens here; a caller wanting one chronological timeline sorts
// the output itself.
//
// Expansion either fully succeeds or fully fails: any item-scoped error
// aborts the whole run so partial calendars are never produced. The
// function is pure; expanding the same schedule twice yields identical
// output.
func Expand(s *model.Schedule) ([]model.EventInstance, error) {
	return ExpandWithOptions(s, ExpandOptions{})
}

// ExpandWithOptions is Expand with an explicit per-item instance cap.
func ExpandWithOptions(s *model.Schedule, opts ExpandOptions) ([]model.EventInstance, error) {
	maxPerItem := opts.MaxInstancesPerItem
	if maxPerItem <= 0 {
		maxPerItem = defaultMaxInstancesPerItem
	}

	out := make([]model.EventInstance, 0)
	for i, it := range s.Items {
		instances, err := expandItem(s, i, it, maxPerItem)
		if err != nil {
			return nil, err
		}
		out = append(out, instances...)
	}
	return out, nil
}

func expandItem(s *model.Schedule, idx int, it model.ScheduleItem, maxPerItem int) ([]model.EventInstance, error) {
	switch it.Type {
	case model.ItemSingle:
		return []model.EventInstance{singleInstance(s, it)}, nil
	case model.ItemRecurring:
		return expandRecurring(s, idx, it, maxPerItem)
	default:
		// Unreachable after decoding; defensive for hand-built values.
		return nil, itemError(idx, model.KindSchemaViolation, "unknown item type %q", it.Type)
	}
}

// singleInstance emits the one fixed occurrence of a single item, with
// times truncated to whole-minute resolution.
func singleInstance(s *model.Schedule, it model.ScheduleItem) model.EventInstance {
	f := baseFields(s, it)
	d := it.Start.Date()
	return model.EventInstance{
		ClassID:            it.ID,
		Title:              f.title,
		Date:               d,
		StartDateTimeLocal: string(d) + "T" + it.Start.TimeOfDay().HourMinute() + ":00",
		EndDateTimeLocal:   string(it.End.Date()) + "T" + it.End.TimeOfDay().HourMinute() + ":00",
		Location:           f.location,
		Description:        f.description,
	}
}

func expandRecurring(s *model.Schedule, idx int, it model.ScheduleItem, maxPerItem int) ([]model.EventInstance, error) {
	dates, err := candidateDates(s, idx, it, maxPerItem)
	if err != nil {
		return nil, err
	}

	out := make([]model.EventInstance, 0, len(dates))
	for _, d := range dates {
		if it.IsExcluded(d) {
			continue
		}
		ov, hasOverride := it.Overrides[d]
		if hasOverride && ov.Cancelled {
			continue
		}

		f := baseFields(s, it)
		f.start, f.end = it.StartTime, it.EndTime
		if it.Rule.Kind == model.RuleSimpleWeekly {
			f.start, f.end = it.Rule.StartTime, it.Rule.EndTime
		}
		if wo := it.WeekdayOverrideFor(d.Weekday()); wo != nil && it.Rule.NeedsWeekdaySet() {
			f.applyWeekdayOverride(wo)
		}
		if hasOverride {
			f.applyOverride(ov)
		}

		out = append(out, model.EventInstance{
			ClassID:            it.ID,
			Title:              f.title,
			Date:               d,
			StartDateTimeLocal: string(d) + "T" + f.start.HourMinute() + ":00",
			EndDateTimeLocal:   string(d) + "T" + f.end.HourMinute() + ":00",
			Location:           f.location,
			Description:        f.description,
		})
	}

	// Candidate dates arrive ascending already; the sort keeps the
	// ordering guarantee airtight for same-day pairs whose override
	// shifted a start time.
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Date != out[b].Date {
			return out[a].Date < out[b].Date
		}
		return out[a].StartDateTimeLocal < out[b].StartDateTimeLocal
	})
	return out, nil
}

// candidateDates materializes the raw occurrence dates of a recurring
// item inside its effective window, before exclusions and overrides.
func candidateDates(s *model.Schedule, idx int, it model.ScheduleItem, maxPerItem int) ([]model.Date, error) {
	rule := it.Rule

	if rule.SelfBounding() {
		return explicitDates(rule.Dates), nil
	}

	// Effective window: [startOn ?? termStart, endOn ?? (until ?? termEnd)].
	lower := it.StartOn
	if lower.IsZero() {
		lower = s.TermStart
	}
	upper := it.EndOn
	if upper.IsZero() {
		upper = rule.Until
	}
	if upper.IsZero() {
		upper = s.TermEnd
	}
	if lower.IsZero() || upper.IsZero() {
		return nil, itemError(idx, model.KindUnboundedRecurrence,
			"%s rule has no resolvable date window (item bounds, until and term bounds all absent)", rule.Kind)
	}
	if upper < lower {
		return nil, nil
	}

	opt := rrule.ROption{
		Dtstart:  lower.Time(),
		Interval: rule.EffectiveInterval(),
		Wkst:     rrule.MO,
	}
	switch rule.Kind {
	case model.RuleDaily:
		opt.Freq = rrule.DAILY
	case model.RuleWeekly, model.RuleSimpleWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = toRRuleWeekdays(rule.ByDays)
	case model.RuleMonthlyByDay:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{rule.Day}
	case model.RuleMonthlyByWeekday:
		opt.Freq = rrule.MONTHLY
		wd := toRRuleWeekday(rule.Weekday)
		opt.Byweekday = []rrule.Weekday{wd.Nth(rule.Position.Nth())}
	default:
		// RuleNone is rejected at decode time; defensive only.
		return nil, itemError(idx, model.KindSchemaViolation,
			"recurrence kind %q cannot be expanded", rule.Kind)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, itemError(idx, model.KindSchemaViolation, "recurrence rule rejected: %v", err)
	}

	times := r.Between(lower.Time(), upper.Time(), true)
	if len(times) > maxPerItem {
		return nil, itemError(idx, model.KindUnboundedRecurrence,
			"item would generate %d instances (cap %d); window is likely misconfigured", len(times), maxPerItem)
	}

	dates := make([]model.Date, 0, len(times))
	for _, t := range times {
		dates = append(dates, model.Date(t.Format("2006-01-02")))
	}
	return dates, nil
}

// explicitDates returns the xDays enumeration sorted ascending with
// duplicates removed.
func explicitDates(in []model.Date) []model.Date {
	dates := make([]model.Date, len(in))
	copy(dates, in)
	sort.Slice(dates, func(a, b int) bool { return dates[a] < dates[b] })
	out := dates[:0]
	for i, d := range dates {
		if i == 0 || dates[i-1] != d {
			out = append(out, d)
		}
	}
	return out
}

// occurrenceFields is the mutable working set of one occurrence while
// overrides are folded in.
type occurrenceFields struct {
	title       string
	start, end  model.TimeOfDay
	location    string
	description string
}

// baseFields resolves an item's display fields, falling back to the
// bound series entry and the structured classroom where the item itself
// is silent.
func baseFields(s *model.Schedule, it model.ScheduleItem) occurrenceFields {
	f := occurrenceFields{
		title:       it.Title,
		location:    it.Location,
		description: it.Description,
	}
	if f.location == "" && it.Classroom != nil {
		f.location = it.Classroom.String()
	}
	if it.SeriesID != "" {
		if entry, ok := s.Series[it.SeriesID]; ok {
			if f.title == "" {
				f.title = entry.Title
				if it.Variant != nil && it.Variant.Key != "" {
					f.title = entry.Title + " " + it.Variant.Key
				}
			}
			if f.location == "" {
				f.location = entry.Location
			}
			if f.description == "" {
				f.description = entry.Description
			}
		}
	}
	return f
}

func (f *occurrenceFields) applyWeekdayOverride(wo *model.WeekdayOverride) {
	if wo.StartTime != "" {
		f.start = wo.StartTime
	}
	if wo.EndTime != "" {
		f.end = wo.EndTime
	}
	if wo.Location != "" {
		f.location = wo.Location
	}
	if wo.Description != "" {
		f.description = wo.Description
	}
}

// applyOverride patches only the fields present in the override. Color
// and tags are legal patch fields but have no counterpart on an
// emitted instance, so they are accepted and dropped.
func (f *occurrenceFields) applyOverride(ov model.OccurrenceOverride) {
	if ov.Start != "" {
		f.start = ov.Start
	}
	if ov.End != "" {
		f.end = ov.End
	}
	if ov.Title != nil {
		f.title = *ov.Title
	}
	if ov.Location != nil {
		f.location = *ov.Location
	}
	if ov.Description != nil {
		f.description = *ov.Description
	}
}

func itemError(idx int, kind model.ErrorKind, format string, args ...any) *model.Error {
	return &model.Error{
		Kind:    kind,
		Path:    fmt.Sprintf("items[%d]", idx),
		Message: fmt.Sprintf(format, args...),
	}
}

func toRRuleWeekdays(days []model.Weekday) []rrule.Weekday {
	out := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, toRRuleWeekday(d))
	}
	return out
}

func toRRuleWeekday(w model.Weekday) rrule.Weekday {
	switch w {
	case model.Monday:
		return rrule.MO
	case model.Tuesday:
		return rrule.TU
	case model.Wednesday:
		return rrule.WE
	case model.Thursday:
		return rrule.TH
	case model.Friday:
		return rrule.FR
	case model.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}
