package jobs

import (
	"fmt"
	"math"
	"time"
)

// Event is one job lifecycle fact. Events are folded into the job by
// the store under its per-job lock; the fold is deterministic in the
// event payloads and the fold time. Events against a terminal job are
// dropped.
type Event interface {
	apply(j *Job, now time.Time)
}

// TaskStarted begins a pipeline phase. The first one moves the job
// from pending to processing. Zero totals leave the current values
// untouched, so later phases don't reset what extraction discovered.
type TaskStarted struct {
	Task        string
	Step        int
	TotalSteps  int
	TotalImages int
}

func (e TaskStarted) apply(j *Job, now time.Time) {
	if j.State == StatePending {
		j.State = StateProcessing
	}
	j.Status.CurrentTask = e.Task
	if e.Step > 0 {
		j.Status.CurrentStep = e.Step
	}
	if e.TotalSteps > 0 {
		j.Status.TotalSteps = e.TotalSteps
	}
	if e.TotalImages > 0 {
		j.Status.TotalImages = e.TotalImages
	}
	appendLog(j, now, "info", e.Task)
	touch(j, now)
}

// FileProgressed records one finished input texture together with its
// validation outcome.
type FileProgressed struct {
	File              FileRecord
	TexturesGenerated int
}

func (e FileProgressed) apply(j *Job, now time.Time) {
	j.Files = append(j.Files, e.File)
	j.Status.ImagesProcessed++
	j.Status.TexturesGenerated += e.TexturesGenerated
	if t := j.Status.TotalImages; t > 0 {
		// hold 5..95 for file work; completion claims the rest
		p := 5 + int(math.Round(90*float64(j.Status.ImagesProcessed)/float64(t)))
		setProgress(j, p)
	}
	msg := fmt.Sprintf("%s: %s", e.File.OriginalPath, e.File.ValidationStatus)
	if e.TexturesGenerated > 0 {
		msg = fmt.Sprintf("%s (%d maps)", msg, e.TexturesGenerated)
	}
	appendLog(j, now, "info", msg)
	touch(j, now)
}

// LogAppended adds a progress line without changing any counter.
type LogAppended struct {
	Level   string
	Message string
}

func (e LogAppended) apply(j *Job, now time.Time) {
	level := e.Level
	if level == "" {
		level = "info"
	}
	appendLog(j, now, level, e.Message)
	touch(j, now)
}

// Completed finalizes a successful job with the assembled archive.
type Completed struct {
	Output []byte
}

func (e Completed) apply(j *Job, now time.Time) {
	j.State = StateCompleted
	j.CompletedAt = now
	j.Output = e.Output
	setProgress(j, 100)
	j.Status.CurrentTask = "completed"
	appendLog(j, now, "info", "conversion completed")
	touch(j, now)
}

// Failed terminates the job, preserving the error message. Per-file
// results recorded so far stay as they are; failed jobs never carry a
// completion time.
type Failed struct {
	Err string
}

func (e Failed) apply(j *Job, now time.Time) {
	j.State = StateFailed
	j.Errors = append(j.Errors, e.Err)
	j.Status.CurrentTask = "failed"
	appendLog(j, now, "error", e.Err)
	touch(j, now)
}

func appendLog(j *Job, now time.Time, level, msg string) {
	j.Status.Logs = append(j.Status.Logs, LogEntry{Time: now, Level: level, Message: msg})
}

func setProgress(j *Job, p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	j.Progress = p
	j.Status.Progress = p
}

func touch(j *Job, now time.Time) {
	j.Status.Elapsed = now.Sub(j.CreatedAt)
}
