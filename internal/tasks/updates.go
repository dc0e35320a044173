package tasks

import (
	"fmt"

	"github.com/desertthunder/rize/internal/models"
)

// ProgressUpdate represents a progress event during an export.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ReadCollection Phase = iota
	WriteCollection
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case ReadCollection:
		return "read_collection"
	case WriteCollection:
		return "write_collection"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func readingCollectionUpdate(step, total int, kind models.CollectionKind) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Reading %s...", step, total, kind.Table()),
	}
}

func collectionWrittenUpdate(step, total int, kind models.CollectionKind, count int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d entries)", step, total, kind.Table(), count),
		Data:    path,
	}
}

func collectionFailedUpdate(step, total int, kind models.CollectionKind, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, kind.Table(), err),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: "Writing export manifest...",
		Data:    path,
	}
}
