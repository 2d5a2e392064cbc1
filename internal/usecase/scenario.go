package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"AlphaKit/internal/cachekey"
	"AlphaKit/internal/domain/models"
	drepo "AlphaKit/internal/domain/repository"
	"AlphaKit/internal/services/align"
	"AlphaKit/internal/services/parser"
	"AlphaKit/pkg/logger"
	"AlphaKit/pkg/util"
)

// Registry resolves dataset short identifiers.
type Registry interface {
	Lookup(shortID string) (models.DatasetSpec, error)
	List() []models.DatasetSpec
}

// State is the scenario lifecycle position.
type State int

const (
	StateCreated State = iota
	StateFetched
	StateLoaded
	StateChecked
	StateCleaned
	StateCombined
)

func (s State) String() string {
	return [...]string{"created", "fetched", "loaded", "checked", "cleaned", "combined"}[s]
}

// Scenario drives one batch of datasets over one window through fetch, read, check
// and clean, ending with a combined frame. Steps are idempotent and must run in order.
// A Scenario is driven by a single caller; it is not safe for concurrent step calls.
type Scenario struct {
	window  models.Window
	members []*models.CachedSeries

	cache   *FetchCache
	store   drepo.ArtifactStore
	aligner *align.Aligner
	metrics drepo.Metrics
	log     *logger.Logger

	workers   int
	tolerance float64

	state    State
	problems []models.Problem
	frame    *models.CombinedFrame
	alignErr error
}

type ScenarioOption func(*Scenario)

// WithWorkers bounds per-series parallelism in GetData and ReadData.
func WithWorkers(n int) ScenarioOption {
	return func(s *Scenario) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMissingTolerance sets the fraction of expected periods allowed to be absent.
func WithMissingTolerance(f float64) ScenarioOption {
	return func(s *Scenario) { s.tolerance = f }
}

// WithAligner replaces the default aligner.
func WithAligner(a *align.Aligner) ScenarioOption {
	return func(s *Scenario) { s.aligner = a }
}

// NewScenario resolves every identifier and encodes every cache key up front, so unknown
// datasets and malformed keys fail here. Repeated identifiers are collapsed.
func NewScenario(
	reg Registry,
	shortIDs []string,
	window models.Window,
	cache *FetchCache,
	store drepo.ArtifactStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...ScenarioOption,
) (*Scenario, error) {
	if len(shortIDs) == 0 {
		return nil, fmt.Errorf("new scenario: no datasets requested")
	}
	s := &Scenario{
		window:    window,
		cache:     cache,
		store:     store,
		aligner:   align.New(),
		metrics:   metrics,
		log:       log,
		workers:   4,
		tolerance: 0.1,
	}
	for _, opt := range opts {
		opt(s)
	}

	seen := make(map[string]bool, len(shortIDs))
	for _, id := range shortIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		spec, err := reg.Lookup(id)
		if err != nil {
			return nil, fmt.Errorf("new scenario: %w", err)
		}
		key, err := cachekey.Encode(spec, window)
		if err != nil {
			return nil, fmt.Errorf("new scenario: %w", err)
		}
		s.members = append(s.members, models.NewCachedSeries(spec, window, key))
	}
	return s, nil
}

func (s *Scenario) State() State                    { return s.state }
func (s *Scenario) Window() models.Window           { return s.window }
func (s *Scenario) Members() []*models.CachedSeries { return s.members }
func (s *Scenario) Frame() *models.CombinedFrame    { return s.frame }

// Problems returns the findings recorded so far, in step then member order.
func (s *Scenario) Problems() []models.Problem { return slices.Clone(s.problems) }

// step reports whether a step targeting to should run, rejecting calls made too early.
func (s *Scenario) step(name string, from, to State) (bool, error) {
	if s.state >= to {
		return false, nil
	}
	if s.state < from {
		return false, fmt.Errorf("%s in state %s: %w", name, s.state, models.ErrStateOrder)
	}
	return true, nil
}

func (s *Scenario) addProblem(series string, kind models.ProblemKind, format string, a ...any) {
	s.problems = append(s.problems, models.Problem{Series: series, Kind: kind, Detail: fmt.Sprintf(format, a...)})
	s.metrics.RecordProblem(string(kind))
}

// GetData ensures every member's artifact exists. Per-series failures land in Problems.
func (s *Scenario) GetData(ctx context.Context) error {
	run, err := s.step("get data", StateCreated, StateFetched)
	if !run {
		return err
	}
	defer s.observe("scenario.get_data", time.Now())

	type result struct {
		status models.Status
		err    error
	}
	results := make([]result, len(s.members))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, m := range s.members {
		g.Go(func() error {
			st, err := s.cache.Ensure(ctx, m.Spec, m.Window)
			results[i] = result{status: st, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, m := range s.members {
		r := results[i]
		if r.err == nil {
			m.Status = r.status
			continue
		}
		m.Fail(r.err)
		if errors.Is(r.err, models.ErrCancelled) {
			s.addProblem(m.ID(), models.ProblemCancelled, "%v", r.err)
		} else {
			s.addProblem(m.ID(), models.ProblemFetchFailed, "%v", r.err)
		}
	}
	s.state = StateFetched
	return nil
}

// ReadData parses each fetched artifact into sorted rows.
func (s *Scenario) ReadData(ctx context.Context) error {
	run, err := s.step("read data", StateFetched, StateLoaded)
	if !run {
		return err
	}
	defer s.observe("scenario.read_data", time.Now())

	found := make([][]models.Problem, len(s.members))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, m := range s.members {
		if m.Status != models.StatusFetched {
			continue
		}
		g.Go(func() error {
			found[i] = s.read(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	for _, ps := range found {
		for _, p := range ps {
			s.addProblem(p.Series, p.Kind, "%s", p.Detail)
		}
	}
	s.state = StateLoaded
	return nil
}

func (s *Scenario) read(ctx context.Context, m *models.CachedSeries) []models.Problem {
	fail := func(kind models.ProblemKind, err error) []models.Problem {
		m.Fail(err)
		return []models.Problem{{Series: m.ID(), Kind: kind, Detail: err.Error()}}
	}

	rc, err := s.store.Open(ctx, m.Key())
	if err != nil {
		return fail(models.ProblemReadFailed, fmt.Errorf("open %s: %w", m.Key(), err))
	}
	defer rc.Close()

	tbl, err := parser.ParseCSV(rc, m.Spec.IndexColumn)
	if err != nil {
		return fail(models.ProblemParseFailed, fmt.Errorf("parse %s: %w", m.Key(), err))
	}

	rows := tbl.Rows
	slices.SortStableFunc(rows, func(a, b models.Row) int { return a.Date.Compare(b.Date) })
	if d, ok := firstDuplicate(rows); ok {
		return fail(models.ProblemDuplicateDate, fmt.Errorf("duplicate date %s", d.Format(util.ISODate)))
	}

	m.Fields = tbl.Fields
	m.Rows = rows
	m.Status = models.StatusLoaded
	return nil
}

// CheckData validates each loaded series: observed range and coverage against the window,
// unique dates and required fields. Coverage findings are reported; structural ones fail the series.
func (s *Scenario) CheckData() error {
	run, err := s.step("check data", StateLoaded, StateChecked)
	if !run {
		return err
	}
	defer s.observe("scenario.check_data", time.Now())

	for _, m := range s.members {
		if m.Status != models.StatusLoaded {
			continue
		}
		if s.check(m) {
			m.Status = models.StatusChecked
		}
	}
	s.state = StateChecked
	return nil
}

func (s *Scenario) check(m *models.CachedSeries) bool {
	id := m.ID()
	if len(m.Rows) == 0 {
		s.addProblem(id, models.ProblemEmptySeries, "no rows in %s", m.Window)
		return true
	}
	if d, ok := firstDuplicate(m.Rows); ok {
		err := fmt.Errorf("duplicate date %s", d.Format(util.ISODate))
		m.Fail(err)
		s.addProblem(id, models.ProblemDuplicateDate, "%v", err)
		return false
	}
	for _, f := range m.Spec.RequiredFields {
		if m.FieldIndex(f) < 0 {
			err := fmt.Errorf("required field %q missing", f)
			m.Fail(err)
			s.addProblem(id, models.ProblemMissingField, "%v", err)
			return false
		}
	}

	outside := 0
	for _, r := range m.Rows {
		if !m.Window.Contains(r.Date) {
			outside++
		}
	}
	if outside > 0 {
		first, last, _ := m.Span()
		s.addProblem(id, models.ProblemOutOfWindow, "%d rows outside %s (observed %s..%s)",
			outside, m.Window, first.Format(util.ISODate), last.Format(util.ISODate))
	}

	expected, missing := coverage(m.Spec.Frequency, m.Window, m.Dates())
	if expected > 0 && float64(missing)/float64(expected) > s.tolerance {
		s.addProblem(id, models.ProblemMissingPeriods, "%d of %d expected %s periods missing",
			missing, expected, m.Spec.Frequency)
	}
	return true
}

// CleanData drops rows outside the window or lacking a test variable, then aligns the
// cleaned members. Only an alignment failure is returned; it sticks for later calls.
func (s *Scenario) CleanData() error {
	if s.state == StateCleaned {
		return s.alignErr
	}
	run, err := s.step("clean data", StateLoaded, StateCombined)
	if !run {
		return err
	}
	defer s.observe("scenario.clean_data", time.Now())

	var cleaned []*models.CachedSeries
	for _, m := range s.members {
		if m.Status != models.StatusLoaded && m.Status != models.StatusChecked {
			continue
		}
		if s.clean(m) {
			m.Status = models.StatusCleaned
			cleaned = append(cleaned, m)
		}
	}
	s.state = StateCleaned

	if len(cleaned) < 2 {
		s.addProblem("", models.ProblemInsufficientSeries, "%d cleaned series, combining needs 2", len(cleaned))
		s.state = StateCombined
		return nil
	}

	frame, problems, err := s.aligner.Align(cleaned)
	for _, p := range problems {
		s.addProblem(p.Series, p.Kind, "%s", p.Detail)
	}
	if err != nil {
		s.addProblem("", models.ProblemAlignmentFailed, "%v", err)
		s.alignErr = fmt.Errorf("clean data: %w", err)
		return s.alignErr
	}
	s.frame = frame
	s.state = StateCombined
	return nil
}

func (s *Scenario) clean(m *models.CachedSeries) bool {
	idx := make([]int, 0, len(m.Spec.TestVars))
	for _, v := range m.Spec.TestVars {
		i := m.FieldIndex(v)
		if i < 0 {
			err := fmt.Errorf("test variable %q missing", v)
			m.Fail(err)
			s.addProblem(m.ID(), models.ProblemMissingField, "%v", err)
			return false
		}
		idx = append(idx, i)
	}
	kept := m.Rows[:0:0]
	for _, r := range m.Rows {
		ok := true
		for _, i := range idx {
			if i >= len(r.Values) || !r.Values[i].Valid {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, r)
		}
	}
	if dropped := len(m.Rows) - len(kept); dropped > 0 {
		s.log.Debug("rows dropped", logger.String("series", m.ID()), logger.Int("dropped", dropped))
	}
	m.Rows = kept
	return true
}

// Run executes every remaining step in order.
func (s *Scenario) Run(ctx context.Context) error {
	if err := s.GetData(ctx); err != nil {
		return err
	}
	if err := s.ReadData(ctx); err != nil {
		return err
	}
	if err := s.CheckData(); err != nil {
		return err
	}
	return s.CleanData()
}

func (s *Scenario) observe(op string, start time.Time) {
	s.metrics.RecordLatency(op, time.Since(start).Seconds())
}

func firstDuplicate(rows []models.Row) (time.Time, bool) {
	for i := 1; i < len(rows); i++ {
		if rows[i].Date.Equal(rows[i-1].Date) {
			return rows[i].Date, true
		}
	}
	return time.Time{}, false
}
