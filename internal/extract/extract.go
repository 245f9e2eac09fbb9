// Package extract produces schedule documents from raw inputs. The
// extraction step is thin I/O glue around the core: whatever the
// source, the result is a parsed (but not yet validated) Schedule.
package extract

import (
	"context"
	"errors"
	"os"

	"github.com/hadronomy/scheduler/internal/model"
)

// Extractor turns a raw document into a parsed schedule.
type Extractor interface {
	Extract(ctx context.Context, doc []byte, mimeType string) (*model.Schedule, error)
}

// FileExtractor consumes documents that are already schedule JSON
// (typically the cached output of a previous vision extraction).
type FileExtractor struct{}

func (FileExtractor) Extract(_ context.Context, doc []byte, _ string) (*model.Schedule, error) {
	if len(doc) == 0 {
		return nil, errors.New("extract: empty document")
	}
	return model.ParseSchedule(doc)
}

// FromFile reads and parses a schedule JSON file.
func FromFile(path string) (*model.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FileExtractor{}.Extract(context.Background(), data, "application/json")
}
