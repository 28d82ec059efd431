package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/SteakTheStake/bonemeal/internal/hasher"
	"github.com/SteakTheStake/bonemeal/internal/labpbr"
	"github.com/SteakTheStake/bonemeal/internal/logging"
	"github.com/SteakTheStake/bonemeal/internal/pixel"
	"github.com/SteakTheStake/bonemeal/internal/processor"
	"github.com/SteakTheStake/bonemeal/internal/respack"
)

// Config assembles a Service. Zero fields fall back to an in-memory
// store, a local-fallback processor, NumCPU workers and a nop logger.
type Config struct {
	Store     Store
	Processor *processor.Processor
	Workers   int
	Generator string

	// PackFormat overrides the pack_format of generated pack.mcmeta
	// descriptors. Zero keeps the respack default.
	PackFormat int

	Logger *slog.Logger
}

// Service is the conversion boundary: it accepts uploads, drives each
// job on a bounded worker pool and serves job snapshots for polling.
type Service struct {
	store      Store
	proc       *processor.Processor
	generator  string
	packFormat int
	log        *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup

	mu     sync.Mutex
	tracks map[string]*track
}

// track follows one job that has not finished yet.
type track struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a Service from cfg.
func NewService(cfg Config) *Service {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Processor == nil {
		cfg.Processor = processor.New(processor.Config{})
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Generator == "" {
		cfg.Generator = "bonemeal"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Service{
		store:      cfg.Store,
		proc:       cfg.Processor,
		generator:  cfg.Generator,
		packFormat: cfg.PackFormat,
		log:        cfg.Logger,
		sem:        make(chan struct{}, cfg.Workers),
		tracks:     map[string]*track{},
	}
}

func (s *Service) newWriter() *respack.Writer {
	w := respack.NewWriter(s.generator)
	w.SetPackFormat(s.packFormat)
	return w
}

// Submit rejects empty uploads and invalid settings before any job
// exists, then creates a pending job and schedules the conversion. The
// job inherits ctx, so canceling ctx cancels every job submitted under
// it.
func (s *Service) Submit(ctx context.Context, filename string, data []byte, set processor.Settings) (string, error) {
	if filename == "" || len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if err := set.Validate(); err != nil {
		return "", err
	}

	id := hasher.NewJobID(filename)
	job := &Job{
		ID:        id,
		Filename:  filename,
		State:     StatePending,
		Settings:  set,
		CreatedAt: time.Now().UTC(),
		Status:    ProcessingStatus{CurrentTask: "queued"},
	}
	if err := s.store.Create(job); err != nil {
		return "", err
	}

	jctx, cancel := context.WithCancel(ctx)
	t := &track{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.tracks[id] = t
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(jctx, t, id, filename, data, set)

	s.log.Info("job queued", "job", id, "file", filename, "bytes", len(data))
	return id, nil
}

// Job returns a point-in-time snapshot of the job.
func (s *Service) Job(id string) (*Job, error) {
	return s.store.Get(id)
}

// Status returns the polled progress view for a job.
func (s *Service) Status(id string) (*ProcessingStatus, error) {
	j, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	st := j.Status
	return &st, nil
}

// Files lists the per-file results recorded so far.
func (s *Service) Files(id string) ([]FileRecord, error) {
	j, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return j.Files, nil
}

// Download returns the assembled output archive. Jobs that have not
// completed are refused.
func (s *Service) Download(id string) ([]byte, error) {
	j, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if j.State != StateCompleted {
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotCompleted, id, j.State)
	}
	return j.Output, nil
}

// Cancel stops a running or queued job. Canceling a finished job is a
// no-op; unknown ids return ErrNotFound.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	t, ok := s.tracks[id]
	s.mu.Unlock()
	if !ok {
		_, err := s.store.Get(id)
		return err
	}
	t.cancel()
	return nil
}

// Wait blocks until the job reaches a terminal state or ctx expires,
// then returns the final snapshot.
func (s *Service) Wait(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	t, ok := s.tracks[id]
	s.mu.Unlock()
	if ok {
		select {
		case <-t.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.store.Get(id)
}

// ValidationFile pairs one input path with its validator outcome.
type ValidationFile struct {
	Path   string
	Kind   labpbr.Kind
	Result labpbr.Result
}

// ValidationReport aggregates validation of an upload. Valid is true
// iff no file carries an error-level issue.
type ValidationReport struct {
	Files []ValidationFile
	Valid bool
}

// ValidateUpload validates a single image, or every texture entry of
// an archive, without creating a job.
func (s *Service) ValidateUpload(name string, data []byte) (*ValidationReport, error) {
	if name == "" || len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	rep := &ValidationReport{Valid: true}
	if !respack.LooksLikeArchive(name, data) {
		kind := labpbr.KindForPath(name)
		res := labpbr.ValidateBytes(name, data, kind)
		rep.Files = []ValidationFile{{Path: name, Kind: kind, Result: res}}
		rep.Valid = res.Valid()
		return rep, nil
	}

	entries, err := respack.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	for _, e := range entries {
		if !e.IsTexture {
			continue
		}
		kind := labpbr.KindForPath(e.Path)
		res := labpbr.ValidateBytes(e.Path, e.Data, kind)
		rep.Files = append(rep.Files, ValidationFile{Path: e.Path, Kind: kind, Result: res})
		if !res.Valid() {
			rep.Valid = false
		}
	}
	return rep, nil
}

func (s *Service) run(ctx context.Context, t *track, id, filename string, data []byte, set processor.Settings) {
	defer s.wg.Done()
	defer s.finish(id, t)

	select {
	case s.sem <- struct{}{}: // acquire
	case <-ctx.Done():
		s.fail(id, "conversion canceled")
		return
	}
	defer func() { <-s.sem }() // release

	if err := s.convert(ctx, id, filename, data, set); err != nil {
		msg := err.Error()
		if ctx.Err() != nil {
			msg = "conversion canceled"
		}
		s.fail(id, msg)
	}
}

func (s *Service) fail(id, msg string) {
	if err := s.store.Apply(id, Failed{Err: msg}); err != nil {
		s.log.Error("record failure", "job", id, "error", err)
		return
	}
	s.log.Warn("job failed", "job", id, "reason", msg)
}

func (s *Service) finish(id string, t *track) {
	s.mu.Lock()
	delete(s.tracks, id)
	s.mu.Unlock()
	t.cancel()
	close(t.done)
}

func (s *Service) convert(ctx context.Context, id, filename string, data []byte, set processor.Settings) error {
	if set.InputType == processor.InputResourcePack || respack.LooksLikeArchive(filename, data) {
		return s.convertArchive(ctx, id, filename, data, set)
	}
	return s.convertSingle(ctx, id, filename, data, set)
}

// convertSingle treats the upload as one base texture regardless of
// its filename suffix.
func (s *Service) convertSingle(ctx context.Context, id, filename string, data []byte, set processor.Settings) error {
	err := s.store.Apply(id, TaskStarted{
		Task:        "converting " + filename,
		Step:        1,
		TotalSteps:  2,
		TotalImages: 1,
	})
	if err != nil {
		return err
	}

	out := s.newWriter()
	n, rec, err := s.convertTexture(ctx, filename, data, set, out)
	if err != nil {
		return err
	}
	if err := s.store.Apply(id, FileProgressed{File: rec, TexturesGenerated: n}); err != nil {
		return err
	}

	return s.assemble(id, out, 2)
}

// convertArchive extracts the upload, converts every base texture,
// validates and carries pre-existing packed maps through and keeps
// non-texture entries unchanged. The per-file loop is sequential.
func (s *Service) convertArchive(ctx context.Context, id, filename string, data []byte, set processor.Settings) error {
	if err := s.store.Apply(id, TaskStarted{Task: "extracting " + filename, Step: 1, TotalSteps: 3}); err != nil {
		return err
	}
	entries, err := respack.Extract(data)
	if err != nil {
		return fmt.Errorf("extract %s: %w", filename, err)
	}

	textures := 0
	for _, e := range entries {
		if e.IsTexture {
			textures++
		}
	}
	if err := s.store.Apply(id, TaskStarted{Task: "converting textures", Step: 2, TotalImages: textures}); err != nil {
		return err
	}
	if err := s.store.Apply(id, LogAppended{
		Message: fmt.Sprintf("extracted %d entries (%d textures)", len(entries), textures),
	}); err != nil {
		return err
	}
	s.log.Debug("archive extracted", "job", id, "entries", len(entries), "textures", textures)

	out := s.newWriter()

	// Base textures first, so generated maps claim their paths before
	// any same-named packed map is considered for passthrough.
	for _, e := range entries {
		if !e.IsTexture || e.Role != respack.RoleBase {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rec, err := s.convertTexture(ctx, e.Path, e.Data, set, out)
		if err != nil {
			return err
		}
		if err := s.store.Apply(id, FileProgressed{File: rec, TexturesGenerated: n}); err != nil {
			return err
		}
	}

	// Pre-existing packed maps are validated and carried through
	// unless the conversion already produced a map at the same path.
	for _, e := range entries {
		if !e.IsTexture || e.Role == respack.RoleBase {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := FileRecord{
			OriginalPath:     e.Path,
			TextureType:      e.Role,
			ValidationStatus: statusFrom(labpbr.ValidateBytes(e.Path, e.Data, labpbr.KindForPath(e.Path))),
		}
		if !out.Has(e.Path) {
			if err := out.AddRaw(e.Path, e.Data); err != nil {
				return err
			}
			rec.ConvertedPath = e.Path
		}
		if err := s.store.Apply(id, FileProgressed{File: rec}); err != nil {
			return err
		}
	}

	for _, e := range entries {
		if e.IsTexture || out.Has(e.Path) {
			continue
		}
		if err := out.AddRaw(e.Path, e.Data); err != nil {
			return err
		}
	}

	return s.assemble(id, out, 3)
}

// maxTexturePixels bounds decoded texture size (8192x8192). The
// archive layer caps compressed entries; this caps what they expand
// to.
const maxTexturePixels = 64 << 20

// convertTexture runs the pipeline over one base texture, writes the
// produced maps and validates the packed ones. It returns the number
// of maps generated and the persisted record.
func (s *Service) convertTexture(ctx context.Context, path string, data []byte, set processor.Settings, out *respack.Writer) (int, FileRecord, error) {
	rec := FileRecord{OriginalPath: path, TextureType: respack.RoleBase}

	if w, h, _, err := pixel.DecodeConfig(path, data); err == nil && w*h > maxTexturePixels {
		return 0, rec, fmt.Errorf("decode %s: %dx%d exceeds the %d megapixel limit", path, w, h, maxTexturePixels>>20)
	}
	src, _, err := pixel.Decode(path, data)
	if err != nil {
		return 0, rec, fmt.Errorf("decode %s: %w", path, err)
	}
	maps, err := s.proc.Process(ctx, src, set)
	if err != nil {
		return 0, rec, fmt.Errorf("convert %s: %w", path, err)
	}
	if err := out.AddMaps(path, maps); err != nil {
		return 0, rec, err
	}

	status := StatusValid
	if len(maps.Specular) > 0 {
		p := respack.MapPath(path, processor.MapSpecular)
		status = worseStatus(status, statusFrom(labpbr.ValidateBytes(p, maps.Specular, labpbr.KindSpecular)))
	}
	if len(maps.Normal) > 0 {
		p := respack.MapPath(path, processor.MapNormal)
		status = worseStatus(status, statusFrom(labpbr.ValidateBytes(p, maps.Normal, labpbr.KindNormal)))
	}
	rec.ValidationStatus = status

	generated := maps.Entries()
	if len(generated) > 0 {
		rec.ConvertedPath = respack.MapPath(path, generated[0].Kind)
	}
	return len(generated), rec, nil
}

// assemble closes the output archive and completes the job.
func (s *Service) assemble(id string, out *respack.Writer, step int) error {
	if err := s.store.Apply(id, TaskStarted{Task: "assembling output", Step: step}); err != nil {
		return err
	}
	blob, err := out.Close()
	if err != nil {
		return fmt.Errorf("assemble archive: %w", err)
	}
	s.log.Info("job completed", "job", id, "files", out.FileCount(), "bytes", len(blob))
	return s.store.Apply(id, Completed{Output: blob})
}

// statusFrom maps a validation outcome to the persisted per-file
// status. Info-level issues still count as valid.
func statusFrom(res labpbr.Result) string {
	switch res.Worst() {
	case labpbr.LevelError:
		return StatusError
	case labpbr.LevelWarning:
		return StatusWarning
	default:
		return StatusValid
	}
}

var statusRank = map[string]int{StatusValid: 0, StatusWarning: 1, StatusError: 2}

func worseStatus(a, b string) string {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}
