package model

import (
	"encoding/json"
	"fmt"
)

// SeriesEntry is one subject in the registry: a display title plus the
// fixed menu of variant tokens its items may be split into (lab groups,
// lecture groups and the like).
type SeriesEntry struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Color       string   `json:"color,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Variants    []string `json:"variants"`
}

func (e *SeriesEntry) UnmarshalJSON(data []byte) error {
	type plain SeriesEntry
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Title == "" {
		return errSchema("series.title", "series entry requires a title")
	}
	if len(raw.Variants) == 0 {
		return errSchema("series.variants", "series entry requires a non-empty variant list")
	}
	*e = SeriesEntry(raw)
	return nil
}

// SeriesRegistry maps stable slug keys to series entries. Keys are
// unique within a document (enforced by the JSON object shape).
type SeriesRegistry map[string]SeriesEntry

// ResolveVariant checks that seriesID exists and declares variantKey.
// The returned error's Path is relative to the binding that failed
// ("seriesId" or "variant.key"); callers prefix it with the item path.
func (r SeriesRegistry) ResolveVariant(seriesID, variantKey string) *Error {
	entry, ok := r[seriesID]
	if !ok {
		return &Error{
			Kind:    KindUnknownSeriesOrVariant,
			Path:    "seriesId",
			Message: fmt.Sprintf("unknown series %q", seriesID),
		}
	}
	for _, v := range entry.Variants {
		if v == variantKey {
			return nil
		}
	}
	return &Error{
		Kind:    KindUnknownSeriesOrVariant,
		Path:    "variant.key",
		Message: fmt.Sprintf("series %q does not declare variant %q", seriesID, variantKey),
	}
}

// VariantInfo identifies which declared variant of a series an item
// belongs to. Key must equal one of the series' Variants tokens.
type VariantInfo struct {
	Key        string `json:"key"`
	Name       string `json:"name,omitempty"`
	AudienceID string `json:"audienceId,omitempty"`
	Capacity   int    `json:"capacity,omitempty"`
}
