// Package dashboard ties the engine stages together behind a dataset cache.
//
// An upload is parsed, probed and role-resolved once and cached under the
// xxh3 hash of its content. Every dashboard, rows or export request then
// runs one synchronous filter+aggregate pass over the cached dataset.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"salesdash/internal/engine"
	"salesdash/internal/metrics"
	"salesdash/internal/models"
)

// ErrDatasetNotFound is returned for an unknown or invalidated dataset id.
var ErrDatasetNotFound = errors.New("dataset not found")

type Options struct {
	Probe                 engine.ProbeOptions
	MaxCategoricalFilters int
	TopN                  int
	// MaxEntries bounds the cache; the oldest upload is evicted first.
	// The default of 1 makes a new upload replace the previous one.
	MaxEntries int
}

func DefaultOptions() Options {
	return Options{
		Probe:                 engine.DefaultProbeOptions(),
		MaxCategoricalFilters: engine.DefaultMaxCategoricalFilters,
		TopN:                  engine.DefaultTopN,
		MaxEntries:            1,
	}
}

// Entry is one cached upload with everything derived from it once.
type Entry struct {
	ID       string
	Name     string
	Format   engine.Format
	Dataset  *engine.Dataset
	Profiles []engine.ColumnProfile
	Roles    engine.RoleMap
	Filters  engine.FilterOptions
	LoadedAt time.Time
}

type Service struct {
	log     *zap.Logger
	metrics metrics.Backend
	opt     Options

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
}

func New(log *zap.Logger, m metrics.Backend, opt Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if opt.MaxEntries <= 0 {
		opt.MaxEntries = 1
	}
	return &Service{
		log:     log,
		metrics: m,
		opt:     opt,
		entries: make(map[string]*Entry),
	}
}

// DatasetID is the cache key of an upload: its content hash.
func DatasetID(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}

// Upload parses content unless an identical upload is already cached.
// Concurrent uploads of the same content parse once.
func (s *Service) Upload(name string, content []byte) (*Entry, error) {
	id := DatasetID(content)
	if e, ok := s.lookup(id); ok {
		s.log.Debug("dataset cache hit", zap.String("id", id), zap.String("name", name))
		s.touch(id)
		return e, nil
	}

	v, err, _ := s.group.Do(id, func() (any, error) {
		return s.load(id, name, content)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (s *Service) load(id, name string, content []byte) (*Entry, error) {
	t0 := time.Now()
	ds, format, err := engine.Load(name, content)
	if err != nil {
		s.metrics.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"format": formatLabel(format), "status": "error"})
		s.log.Warn("unreadable upload", zap.String("name", name), zap.Int("bytes", len(content)), zap.Error(err))
		return nil, err
	}

	profiles := engine.Probe(ds, s.opt.Probe)
	e := &Entry{
		ID:       id,
		Name:     name,
		Format:   format,
		Dataset:  ds,
		Profiles: profiles,
		Roles:    engine.ResolveRoles(ds.Columns),
		Filters:  engine.BuildFilterOptions(profiles, s.opt.MaxCategoricalFilters),
		LoadedAt: time.Now(),
	}
	s.store(e)

	s.metrics.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"format": formatLabel(format), "status": "ok"})
	s.log.Info("dataset loaded",
		zap.String("id", id),
		zap.String("name", name),
		zap.String("format", string(format)),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)),
		zap.Duration("took", time.Since(t0)),
	)
	return e, nil
}

func (s *Service) lookup(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *Service) store(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.entries[e.ID] = e
	for len(s.order) > s.opt.MaxEntries {
		old := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, old)
		s.log.Info("dataset evicted", zap.String("id", old))
	}
}

// touch moves id to the most recent end of the eviction order.
func (s *Service) touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.order {
		if v == id {
			s.order = append(append(s.order[:i:i], s.order[i+1:]...), id)
			return
		}
	}
}

// Get returns a cached upload.
func (s *Service) Get(id string) (*Entry, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return e, nil
}

// Invalidate drops a cached upload and reports whether it was present.
func (s *Service) Invalidate(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Info("dataset invalidated", zap.String("id", id))
	return true
}

// View resolves sel against the entry's filters and applies it to the full
// dataset.
func (s *Service) View(id string, sel engine.Selection) (*Entry, *engine.Dataset, error) {
	e, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	spec, err := e.Filters.Spec(sel)
	if err != nil {
		s.log.Warn("filter rejected", zap.String("id", id), zap.Error(err))
		return nil, nil, err
	}
	view, err := engine.Apply(e.Dataset, spec)
	if err != nil {
		s.log.Warn("filter rejected", zap.String("id", id), zap.Error(err))
		return nil, nil, err
	}
	return e, view, nil
}

// Dashboard runs one full recompute pass.
func (s *Service) Dashboard(id string, sel engine.Selection) (*models.DashboardData, error) {
	t0 := time.Now()
	e, view, err := s.View(id, sel)
	if err != nil {
		s.observeRecompute("error", t0)
		return nil, err
	}
	data := engine.Aggregate(view, e.Roles, s.opt.TopN)
	s.observeRecompute("ok", t0)
	s.log.Debug("recompute",
		zap.String("id", id),
		zap.Int("rows_in", e.Dataset.Len()),
		zap.Int("rows_out", view.Len()),
		zap.Duration("took", time.Since(t0)),
	)
	return data, nil
}

// Export writes the filtered view as CSV.
func (s *Service) Export(w io.Writer, id string, sel engine.Selection) error {
	_, view, err := s.View(id, sel)
	if err != nil {
		return err
	}
	return engine.WriteCSV(w, view)
}

func (s *Service) observeRecompute(status string, t0 time.Time) {
	labels := metrics.Labels{"status": status}
	s.metrics.IncCounter(metrics.RecomputeTotal, 1, labels)
	s.metrics.ObserveHistogram(metrics.RecomputeSeconds, time.Since(t0).Seconds(), labels)
}

func formatLabel(f engine.Format) string {
	if f == engine.FormatUnknown {
		return "unknown"
	}
	return string(f)
}
