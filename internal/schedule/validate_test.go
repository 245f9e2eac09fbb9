package schedule

import (
	"errors"
	"testing"

	"github.com/hadronomy/scheduler/internal/model"
)

func baseSchedule(items ...model.ScheduleItem) *model.Schedule {
	return &model.Schedule{
		TimeZone:  "Europe/Madrid",
		TermStart: "2025-09-09",
		TermEnd:   "2025-12-19",
		Series: model.SeriesRegistry{
			"algo": {Title: "Algorithms", Variants: []string{"L1", "L2"}},
		},
		Items: items,
	}
}

func recurringWeekly() model.ScheduleItem {
	return model.ScheduleItem{
		Type:      model.ItemRecurring,
		Title:     "Lecture",
		Rule:      model.RecurrenceRule{Kind: model.RuleWeekly, ByDays: []model.Weekday{model.Monday}},
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
	}
}

func issuesOf(t *testing.T, err error) []model.Issue {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *model.ValidationError, got %T", err)
	}
	return verr.Issues
}

func TestValidateAcceptsWellFormedSchedule(t *testing.T) {
	it := recurringWeekly()
	it.SeriesID = "algo"
	it.Variant = &model.VariantInfo{Key: "L1"}

	single := model.ScheduleItem{
		Type:  model.ItemSingle,
		Title: "Kickoff",
		Start: "2025-09-10T12:00:00",
		End:   "2025-09-10T13:30:00",
	}

	if err := Validate(baseSchedule(it, single)); err != nil {
		t.Fatalf("Validate = %v, want nil", err)
	}
}

func TestValidateTermBounds(t *testing.T) {
	s := baseSchedule()
	s.TermStart, s.TermEnd = "2025-12-19", "2025-09-09"

	issues := issuesOf(t, Validate(s))
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Path != "termEnd" || issues[0].Kind != model.KindConsistencyViolation {
		t.Errorf("issue = %+v", issues[0])
	}
}

func TestValidateTimeWindow(t *testing.T) {
	t.Run("recurring item times", func(t *testing.T) {
		it := recurringWeekly()
		it.StartTime, it.EndTime = "10:00:00", "09:00:00"

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].endTime" {
			t.Fatalf("issues = %+v", issues)
		}
	})

	t.Run("equal times rejected", func(t *testing.T) {
		it := recurringWeekly()
		it.StartTime, it.EndTime = "09:00:00", "09:00:00"

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].endTime" {
			t.Fatalf("issues = %+v", issues)
		}
	})

	t.Run("simpleWeekly times checked on the rule", func(t *testing.T) {
		it := model.ScheduleItem{
			Type: model.ItemRecurring,
			Rule: model.RecurrenceRule{
				Kind:      model.RuleSimpleWeekly,
				ByDays:    []model.Weekday{model.Wednesday},
				StartTime: "10:00:00",
				EndTime:   "09:00:00",
			},
		}

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].rule.endTime" {
			t.Fatalf("issues = %+v", issues)
		}
	})

	t.Run("single item times", func(t *testing.T) {
		it := model.ScheduleItem{
			Type:  model.ItemSingle,
			Start: "2025-09-10T13:00:00",
			End:   "2025-09-10T12:00:00",
		}

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].end" {
			t.Fatalf("issues = %+v", issues)
		}
	})
}

func TestValidateSeriesBinding(t *testing.T) {
	t.Run("seriesId without variant", func(t *testing.T) {
		it := recurringWeekly()
		it.SeriesID = "algo"

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].seriesId" || issues[0].Kind != model.KindConsistencyViolation {
			t.Fatalf("issues = %+v", issues)
		}
	})

	t.Run("variant without seriesId", func(t *testing.T) {
		it := recurringWeekly()
		it.Variant = &model.VariantInfo{Key: "L1"}

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].seriesId" {
			t.Fatalf("issues = %+v", issues)
		}
	})

	t.Run("unknown series", func(t *testing.T) {
		it := recurringWeekly()
		it.SeriesID = "chem"
		it.Variant = &model.VariantInfo{Key: "L1"}

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].seriesId" || issues[0].Kind != model.KindUnknownSeriesOrVariant {
			t.Fatalf("issues = %+v", issues)
		}
	})

	t.Run("undeclared variant", func(t *testing.T) {
		it := recurringWeekly()
		it.SeriesID = "algo"
		it.Variant = &model.VariantInfo{Key: "L9"}

		issues := issuesOf(t, Validate(baseSchedule(it)))
		if len(issues) != 1 || issues[0].Path != "items[0].variant.key" || issues[0].Kind != model.KindUnknownSeriesOrVariant {
			t.Fatalf("issues = %+v", issues)
		}
	})
}

func TestValidateItemDateBounds(t *testing.T) {
	it := recurringWeekly()
	it.StartOn, it.EndOn = "2025-10-01", "2025-09-01"

	issues := issuesOf(t, Validate(baseSchedule(it)))
	if len(issues) != 1 || issues[0].Path != "items[0].endOn" {
		t.Fatalf("issues = %+v", issues)
	}
}

func TestValidateEmptyWeekdaySet(t *testing.T) {
	// Decoding already rejects this shape; the validator repeats the
	// check for hand-built schedules.
	it := recurringWeekly()
	it.Rule.ByDays = nil

	issues := issuesOf(t, Validate(baseSchedule(it)))
	if len(issues) != 1 || issues[0].Path != "items[0].rule.byDays" {
		t.Fatalf("issues = %+v", issues)
	}
}

func TestValidateCollectsAllIssuesInOrder(t *testing.T) {
	bad1 := recurringWeekly()
	bad1.StartTime, bad1.EndTime = "10:00:00", "09:00:00"
	bad1.SeriesID = "algo" // variant missing

	bad2 := model.ScheduleItem{
		Type:  model.ItemSingle,
		Start: "2025-09-10T13:00:00",
		End:   "2025-09-10T12:00:00",
	}

	s := baseSchedule(bad1, bad2)
	s.TermStart, s.TermEnd = "2025-12-19", "2025-09-09"

	issues := issuesOf(t, Validate(s))
	wantPaths := []string{
		"termEnd",
		"items[0].seriesId",
		"items[0].endTime",
		"items[1].end",
	}
	if len(issues) != len(wantPaths) {
		t.Fatalf("issues = %d, want %d: %+v", len(issues), len(wantPaths), issues)
	}
	for i, want := range wantPaths {
		if issues[i].Path != want {
			t.Errorf("issues[%d].Path = %s, want %s", i, issues[i].Path, want)
		}
	}
}
