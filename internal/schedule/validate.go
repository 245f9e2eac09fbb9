// Package schedule holds the core pipeline over a parsed timetable
// document: the cross-field consistency validator and the occurrence
// expansion engine. Both are pure functions of their input; the
// schedule value is never mutated.
package schedule

import (
	"fmt"

	"github.com/hadronomy/scheduler/internal/model"
)

// Validate runs every cross-field check over the whole document and
// returns either nil or a *model.ValidationError carrying all issues.
// It never stops at the first violation: issues are collected in one
// pass, in item order, in a fixed per-item check order, so the output
// is deterministic. A schedule that fails validation must not be fed to
// Expand.
func Validate(s *model.Schedule) error {
	var issues []model.Issue

	add := func(path string, kind model.ErrorKind, format string, args ...any) {
		issues = append(issues, model.Issue{
			Path:    path,
			Kind:    kind,
			Message: fmt.Sprintf(format, args...),
		})
	}

	// Root-level term bounds, once.
	if !s.TermStart.IsZero() && !s.TermEnd.IsZero() && s.TermEnd < s.TermStart {
		add("termEnd", model.KindConsistencyViolation,
			"termEnd %s is before termStart %s", s.TermEnd, s.TermStart)
	}

	for i, it := range s.Items {
		p := fmt.Sprintf("items[%d]", i)

		// Series/variant binding: both-or-neither, then referential
		// integrity against the registry.
		hasSeries := it.SeriesID != ""
		hasVariant := it.Variant != nil
		switch {
		case hasSeries != hasVariant:
			add(p+".seriesId", model.KindConsistencyViolation,
				"seriesId and variant must both be present or both be absent")
		case hasSeries:
			if err := s.Series.ResolveVariant(it.SeriesID, it.Variant.Key); err != nil {
				add(p+"."+err.Path, err.Kind, "%s", err.Message)
			}
		}

		switch it.Type {
		case model.ItemRecurring:
			if it.Rule.Kind == model.RuleSimpleWeekly {
				if it.Rule.EndTime <= it.Rule.StartTime {
					add(p+".rule.endTime", model.KindConsistencyViolation,
						"endTime %s must be strictly after startTime %s", it.Rule.EndTime, it.Rule.StartTime)
				}
			} else if it.EndTime <= it.StartTime {
				add(p+".endTime", model.KindConsistencyViolation,
					"endTime %s must be strictly after startTime %s", it.EndTime, it.StartTime)
			}
			if !it.StartOn.IsZero() && !it.EndOn.IsZero() && it.EndOn < it.StartOn {
				add(p+".endOn", model.KindConsistencyViolation,
					"endOn %s is before startOn %s", it.EndOn, it.StartOn)
			}
			if it.Rule.NeedsWeekdaySet() && len(it.Rule.ByDays) == 0 {
				add(p+".rule.byDays", model.KindConsistencyViolation,
					"%s rule requires a non-empty weekday set", it.Rule.Kind)
			}

		case model.ItemSingle:
			// Lexical comparison is chronological: the format is
			// fixed-width and zero-padded.
			if it.End <= it.Start {
				add(p+".end", model.KindConsistencyViolation,
					"end %s must be strictly after start %s", it.End, it.Start)
			}
		}
	}

	if len(issues) > 0 {
		return &model.ValidationError{Issues: issues}
	}
	return nil
}
