// Package jobs runs conversions asynchronously: it owns the job state
// machine, the store that serializes status mutation per job and the
// bounded worker pool that drives the texture pipeline.
package jobs

import (
	"errors"
	"time"

	"github.com/SteakTheStake/bonemeal/internal/processor"
	"github.com/SteakTheStake/bonemeal/internal/respack"
)

var (
	// ErrEmptyUpload rejects a submission with no filename or bytes,
	// before any job is created.
	ErrEmptyUpload = errors.New("upload is missing or empty")

	// ErrNotFound reports an unknown job id.
	ErrNotFound = errors.New("job not found")

	// ErrNotCompleted refuses a download for a job that has not
	// reached the completed state.
	ErrNotCompleted = errors.New("conversion not completed")
)

// State is a job's lifecycle phase. Valid transitions are
// pending→processing, processing→completed and processing→failed;
// terminal states never change.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Validation statuses persisted per processed file.
const (
	StatusValid   = "valid"
	StatusWarning = "warning"
	StatusError   = "error"
)

// LogEntry is one append-only progress line.
type LogEntry struct {
	Time    time.Time
	Level   string // "info" or "error"
	Message string
}

// ProcessingStatus is the client-polled view of a running job.
// Steps count pipeline phases (extract, convert, assemble); images
// count texture entries.
type ProcessingStatus struct {
	CurrentTask       string
	Progress          int // 0..100
	CurrentStep       int
	TotalSteps        int
	ImagesProcessed   int
	TotalImages       int
	TexturesGenerated int
	Elapsed           time.Duration
	Logs              []LogEntry
}

// FileRecord is the persisted result for one input texture.
type FileRecord struct {
	OriginalPath     string
	TextureType      respack.Role
	ValidationStatus string
	ConvertedPath    string // empty when nothing was generated
}

// Job is one submitted conversion. All mutation happens by folding
// events inside the store; readers only ever see snapshots.
type Job struct {
	ID          string
	Filename    string
	State       State
	Settings    processor.Settings
	Progress    int // mirrors Status.Progress
	Errors      []string
	CreatedAt   time.Time
	CompletedAt time.Time // zero unless completed

	Status ProcessingStatus
	Files  []FileRecord

	// Output holds the assembled archive. It is set once by the
	// Completed event and never mutated; snapshots share it.
	Output []byte
}
