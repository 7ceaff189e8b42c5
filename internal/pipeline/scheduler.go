// Package pipeline owns the asynchronous multi-scenario loading
// machinery: one fetch task per scenario, launched from a bounded worker
// pool, with a poll-safe state record per scenario.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/guttosm/indexpulse/internal/daterange"
	"github.com/guttosm/indexpulse/internal/domain/models"
	"github.com/guttosm/indexpulse/internal/logger"
	"github.com/guttosm/indexpulse/internal/provider"
)

// Options tunes the scheduler. Zero values fall back to defaults.
type Options struct {
	// FetchTimeout bounds one provider call; an overrun surfaces as a
	// ProviderError with a "timed out" reason.
	FetchTimeout time.Duration

	// MaxParallel caps concurrently running fetch workers.
	MaxParallel int64

	// Today overrides the reference date for lookback resolution (tests).
	Today func() civil.Date
}

const (
	defaultFetchTimeout = 60 * time.Second
	defaultMaxParallel  = 4
)

// Scheduler owns the scenario registry and every scenario's lifecycle
// state. It is the single writer of each state record; readers only ever
// get snapshots.
type Scheduler struct {
	provider provider.Provider
	timeout  time.Duration
	sem      *semaphore.Weighted
	today    func() civil.Date
	log      zerolog.Logger

	mu      sync.RWMutex
	records map[string]*record
	order   []string
}

// record is one scenario's mutable state. Its own mutex makes every
// transition atomic with respect to concurrent queries; gen disambiguates
// stale completions from current ones.
type record struct {
	mu        sync.Mutex
	scenario  models.Scenario
	phase     models.Phase
	series    *models.Series
	err       *models.Error
	gen       uint64
	cancel    context.CancelFunc
	updatedAt time.Time
}

// ErrUnknownScenario is returned for labels never registered.
var ErrUnknownScenario = errors.New("unknown scenario")

// NewScheduler builds a scheduler over the given provider and registers
// the initial scenarios.
func NewScheduler(p provider.Provider, scenarios []models.Scenario, opts Options) (*Scheduler, error) {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.Today == nil {
		opts.Today = func() civil.Date { return civil.DateOf(time.Now()) }
	}

	s := &Scheduler{
		provider: p,
		timeout:  opts.FetchTimeout,
		sem:      semaphore.NewWeighted(opts.MaxParallel),
		today:    opts.Today,
		log:      logger.Component("pipeline"),
		records:  make(map[string]*record),
	}
	for _, sc := range scenarios {
		if err := s.Register(sc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds a scenario in NotRequested state. Labels are unique.
func (s *Scheduler) Register(sc models.Scenario) error {
	if sc.Label == "" {
		return fmt.Errorf("scenario label is required")
	}
	if !sc.Period.Valid() {
		return fmt.Errorf("scenario %q: unsupported period %q", sc.Label, sc.Period)
	}
	if sc.LookbackDays <= 0 && sc.Range == nil {
		return fmt.Errorf("scenario %q: needs a lookback or a date range", sc.Label)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[sc.Label]; exists {
		return fmt.Errorf("scenario %q already registered", sc.Label)
	}
	s.records[sc.Label] = &record{
		scenario:  sc,
		phase:     models.PhaseNotRequested,
		updatedAt: time.Now(),
	}
	s.order = append(s.order, sc.Label)
	return nil
}

// Labels returns scenario labels in registration order.
func (s *Scheduler) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scheduler) get(label string) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, label)
	}
	return r, nil
}

// Start moves a scenario into Loading and launches its fetch worker. A
// start while already Loading is a no-op, never a second provider call.
// Starting from Ready is a forced refresh: the record flips to Loading
// and drops its series in the same critical section, so no reader can
// observe a Ready phase with a stale flag or a half-cleared record.
func (s *Scheduler) Start(label string) error {
	r, err := s.get(label)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.phase == models.PhaseLoading {
		r.mu.Unlock()
		return nil
	}
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.gen++
	gen := r.gen
	r.phase = models.PhaseLoading
	r.series = nil
	r.err = nil
	r.cancel = cancel
	r.updatedAt = time.Now()
	sc := r.scenario
	r.mu.Unlock()

	s.log.Info().Str("scenario", label).Uint64("gen", gen).Msg("fetch started")
	go s.worker(ctx, r, sc, gen)
	return nil
}

// StartAll launches every registered scenario concurrently and returns
// immediately; completion order between scenarios is unspecified.
func (s *Scheduler) StartAll() {
	for _, label := range s.Labels() {
		// Register guarantees the label exists, so Start cannot fail here.
		_ = s.Start(label)
	}
}

// Retry re-launches a Failed scenario. It shares Start's semantics; the
// separate name exists for the presentation layer's retry affordance.
func (s *Scheduler) Retry(label string) error { return s.Start(label) }

// Cancel aborts a Loading scenario and returns it to NotRequested. The
// in-flight result, when it eventually arrives, is dropped: the bumped
// generation no longer matches. Cancelling a non-loading scenario is a
// no-op.
func (s *Scheduler) Cancel(label string) error {
	r, err := s.get(label)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != models.PhaseLoading {
		return nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	r.phase = models.PhaseNotRequested
	r.series = nil
	r.err = nil
	r.updatedAt = time.Now()
	s.log.Info().Str("scenario", label).Msg("fetch cancelled")
	return nil
}

// Query returns an immutable snapshot of the scenario's current state.
// It never blocks on network I/O and never races a transition: the
// snapshot is taken under the record's lock, so it is either fully the
// pre-transition or fully the post-transition state.
func (s *Scheduler) Query(label string) (models.StateSnapshot, error) {
	r, err := s.get(label)
	if err != nil {
		return models.StateSnapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return models.StateSnapshot{
		Scenario:  r.scenario,
		Phase:     r.phase,
		Series:    r.series,
		Err:       r.err,
		UpdatedAt: r.updatedAt,
	}, nil
}

// IsReady reports whether the scenario holds a renderable series.
func (s *Scheduler) IsReady(label string) bool {
	snap, err := s.Query(label)
	return err == nil && snap.Ready()
}

// Snapshots returns every scenario's snapshot in registration order.
func (s *Scheduler) Snapshots() []models.StateSnapshot {
	labels := s.Labels()
	out := make([]models.StateSnapshot, 0, len(labels))
	for _, label := range labels {
		if snap, err := s.Query(label); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

// resolveRange turns the scenario's lookback or absolute range into the
// interval handed to the provider.
func (s *Scheduler) resolveRange(sc models.Scenario) models.DateRange {
	if sc.LookbackDays > 0 {
		return daterange.LookbackRange(sc.LookbackDays, s.today())
	}
	return *sc.Range
}

// worker runs one fetch under the shared pool and commits the outcome,
// unless the scenario has been cancelled or superseded in the meantime.
func (s *Scheduler) worker(ctx context.Context, r *record, sc models.Scenario, gen uint64) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.complete(r, gen, nil, models.NewError(models.KindProviderError, "aborted before fetch", err))
		return
	}
	defer s.sem.Release(1)

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	series, err := RunTask(fctx, s.provider, sc.Symbol, sc.Period, s.resolveRange(sc))
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = models.NewError(models.KindProviderError,
			fmt.Sprintf("timed out after %s", s.timeout), err)
	}
	s.complete(r, gen, series, err)
}

// complete commits a terminal outcome. Late results whose generation no
// longer matches are dropped so a cancelled or superseded fetch can never
// overwrite a newer one.
func (s *Scheduler) complete(r *record, gen uint64, series *models.Series, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != gen || r.phase != models.PhaseLoading {
		s.log.Debug().Str("scenario", r.scenario.Label).Uint64("gen", gen).Msg("stale result dropped")
		return
	}
	r.cancel = nil
	r.updatedAt = time.Now()
	if err != nil {
		var perr *models.Error
		if !errors.As(err, &perr) {
			perr = models.NewError(models.KindProviderError, "fetch failed", err)
		}
		r.phase = models.PhaseFailed
		r.series = nil
		r.err = perr
		s.log.Warn().Str("scenario", r.scenario.Label).Str("kind", string(perr.Kind)).Err(err).Msg("fetch failed")
		return
	}
	r.phase = models.PhaseReady
	r.series = series
	r.err = nil
	s.log.Info().Str("scenario", r.scenario.Label).Int("bars", len(series.Bars)).Msg("fetch ready")
}
