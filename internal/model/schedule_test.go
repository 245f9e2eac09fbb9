package model

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleDocument = `{
  "timeZone": "Europe/Madrid",
  "termStart": "2025-09-09",
  "termEnd": "2025-12-19",
  "series": {
    "algo": {
      "title": "Algorithms",
      "location": "B-12",
      "tags": ["cs"],
      "variants": ["L1", "L2"]
    }
  },
  "items": [
    {
      "type": "recurring",
      "id": "algo-l1",
      "seriesId": "algo",
      "variant": {"key": "L1", "capacity": 30},
      "rule": {"kind": "weekly", "byDays": ["MO", "WE"], "interval": 1},
      "startTime": "09:00:00",
      "endTime": "10:00:00",
      "excludedDates": ["2025-10-13"],
      "overrides": {
        "2025-11-03": {"cancelled": true},
        "2025-11-05": {"location": "Aula Magna"}
      }
    },
    {
      "type": "single",
      "title": "Kickoff",
      "start": "2025-09-10T12:00:00",
      "end": "2025-09-10T13:30:00",
      "classroom": {"building": "Main", "room": "101"}
    }
  ]
}`

func TestParseScheduleDocument(t *testing.T) {
	s, err := ParseSchedule([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}

	if s.TimeZone != "Europe/Madrid" {
		t.Errorf("timeZone = %s", s.TimeZone)
	}
	if len(s.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(s.Items))
	}

	rec := s.Items[0]
	if rec.Type != ItemRecurring {
		t.Fatalf("item 0 type = %s", rec.Type)
	}
	if rec.Rule.Kind != RuleWeekly || len(rec.Rule.ByDays) != 2 {
		t.Errorf("rule = %+v", rec.Rule)
	}
	if rec.Variant == nil || rec.Variant.Key != "L1" {
		t.Errorf("variant = %+v", rec.Variant)
	}
	if !rec.IsExcluded("2025-10-13") || rec.IsExcluded("2025-10-14") {
		t.Errorf("exclusion set mishandled: %v", rec.ExcludedDates)
	}
	if ov, ok := rec.Overrides["2025-11-03"]; !ok || !ov.Cancelled {
		t.Errorf("cancellation override missing: %+v", rec.Overrides)
	}
	if ov := rec.Overrides["2025-11-05"]; ov.Location == nil || *ov.Location != "Aula Magna" {
		t.Errorf("patch override missing: %+v", rec.Overrides)
	}

	single := s.Items[1]
	if single.Type != ItemSingle || single.Start != "2025-09-10T12:00:00" {
		t.Errorf("single item = %+v", single)
	}
	if single.Classroom == nil || single.Classroom.String() != "Main, 101" {
		t.Errorf("classroom = %+v", single.Classroom)
	}
}

func TestParseScheduleRejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing timezone",
			doc:  `{"items": []}`,
			want: "timeZone",
		},
		{
			name: "unknown rule kind",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"recurring","rule":{"kind":"fortnightly"},"startTime":"09:00:00","endTime":"10:00:00"}]}`,
			want: "unknown recurrence kind",
		},
		{
			name: "weekly without weekdays",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"recurring","rule":{"kind":"weekly","byDays":[]},"startTime":"09:00:00","endTime":"10:00:00"}]}`,
			want: "non-empty weekday set",
		},
		{
			name: "recurring with none rule",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"recurring","rule":{"kind":"none"},"startTime":"09:00:00","endTime":"10:00:00"}]}`,
			want: "non-none",
		},
		{
			name: "unknown item type",
			doc:  `{"timeZone":"Europe/Madrid","items":[{"type":"weekly"}]}`,
			want: "unknown item type",
		},
		{
			name: "zero interval",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"recurring","rule":{"kind":"daily","interval":0},"startTime":"09:00:00","endTime":"10:00:00"}]}`,
			want: "positive integer",
		},
		{
			name: "xDays with until",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"recurring","rule":{"kind":"xDays","dates":["2025-09-10"],"until":"2025-12-01"},"startTime":"09:00:00","endTime":"10:00:00"}]}`,
			want: "neither interval nor until",
		},
		{
			name: "bad override key",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"recurring","rule":{"kind":"daily"},"startTime":"09:00:00","endTime":"10:00:00",
				 "overrides":{"someday":{"cancelled":true}}}]}`,
			want: "not a date",
		},
		{
			name: "series without variants",
			doc:  `{"timeZone":"Europe/Madrid","series":{"x":{"title":"X","variants":[]}},"items":[]}`,
			want: "variant list",
		},
		{
			name: "classroom without room",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"single","start":"2025-09-10T09:00:00","end":"2025-09-10T10:00:00","classroom":{"building":"Main"}}]}`,
			want: "room",
		},
		{
			name: "lowercase weekday code",
			doc: `{"timeZone":"Europe/Madrid","items":[
				{"type":"recurring","rule":{"kind":"weekly","byDays":["mo"]},"startTime":"09:00:00","endTime":"10:00:00"}]}`,
			want: "MO TU WE",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSchedule([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	s, err := ParseSchedule([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s2, err := ParseSchedule(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}

	if len(s2.Items) != len(s.Items) {
		t.Fatalf("item count changed: %d != %d", len(s2.Items), len(s.Items))
	}
	if s2.Items[0].Rule.Kind != RuleWeekly {
		t.Errorf("rule kind lost: %s", s2.Items[0].Rule.Kind)
	}
	if _, ok := s2.Items[0].Overrides["2025-11-03"]; !ok {
		t.Errorf("overrides lost in round trip")
	}
}

func TestResolveVariant(t *testing.T) {
	reg := SeriesRegistry{
		"algo": {Title: "Algorithms", Variants: []string{"L1", "L2"}},
	}

	if err := reg.ResolveVariant("algo", "L2"); err != nil {
		t.Errorf("valid binding rejected: %v", err)
	}

	err := reg.ResolveVariant("nope", "L1")
	if err == nil || err.Kind != KindUnknownSeriesOrVariant || err.Path != "seriesId" {
		t.Errorf("unknown series: got %+v", err)
	}

	err = reg.ResolveVariant("algo", "L3")
	if err == nil || err.Kind != KindUnknownSeriesOrVariant || err.Path != "variant.key" {
		t.Errorf("unknown variant: got %+v", err)
	}
}

func TestWeekdayPositionJSON(t *testing.T) {
	var r RecurrenceRule
	doc := `{"kind":"monthlyByWeekday","position":"last","weekday":"FR"}`
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Position != PositionLast || r.Weekday != Friday {
		t.Fatalf("rule = %+v", r)
	}

	doc = `{"kind":"monthlyByWeekday","position":2,"weekday":"TU"}`
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatalf("numeric position: %v", err)
	}
	if r.Position.Nth() != 2 {
		t.Fatalf("position = %+v", r.Position)
	}

	doc = `{"kind":"monthlyByWeekday","position":7,"weekday":"TU"}`
	if err := json.Unmarshal([]byte(doc), &r); err == nil {
		t.Fatal("position 7 accepted")
	}
}
