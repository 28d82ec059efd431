package jobs

import (
	"fmt"
	"sync"
	"time"
)

// Store persists jobs. Apply is the only mutation path; implementations
// must serialize it per job id and drop events once a job is terminal.
type Store interface {
	Create(j *Job) error
	Get(id string) (*Job, error)
	Apply(id string, events ...Event) error
}

// MemoryStore keeps jobs in process memory with one lock per job, so
// polling one job never contends with converting another.
type MemoryStore struct {
	mu   sync.RWMutex // guards the map, not the entries
	jobs map[string]*jobEntry
}

type jobEntry struct {
	mu  sync.Mutex
	job Job
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]*jobEntry{}}
}

// Create registers a new job under its id.
func (s *MemoryStore) Create(j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return fmt.Errorf("job %s already exists", j.ID)
	}
	s.jobs[j.ID] = &jobEntry{job: *j}
	return nil
}

// Get returns a snapshot of the job. Slices are copied so pollers
// never observe a concurrent append; Output is shared because it is
// written once and never mutated.
func (s *MemoryStore) Get(id string) (*Job, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.job
	snap.Errors = append([]string(nil), e.job.Errors...)
	snap.Files = append([]FileRecord(nil), e.job.Files...)
	snap.Status.Logs = append([]LogEntry(nil), e.job.Status.Logs...)
	if !snap.State.Terminal() {
		snap.Status.Elapsed = time.Since(snap.CreatedAt)
	}
	return &snap, nil
}

// Apply folds events into the job in order. Events arriving after the
// job turned terminal are dropped, which makes terminal states final
// even against racing writers.
func (s *MemoryStore) Apply(id string, events ...Event) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	for _, ev := range events {
		if e.job.State.Terminal() {
			break
		}
		ev.apply(&e.job, now)
	}
	return nil
}

func (s *MemoryStore) entry(id string) (*jobEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}
