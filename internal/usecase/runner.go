package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"AlphaKit/internal/domain/models"
	drepo "AlphaKit/internal/domain/repository"
	"AlphaKit/internal/services/align"
	"AlphaKit/internal/services/analysis"
	"AlphaKit/pkg/logger"
	"AlphaKit/pkg/util"
)

// RunnerConfig holds the per-run knobs shared by every scenario.
type RunnerConfig struct {
	Workers          int
	RunTimeout       time.Duration
	MissingTolerance float64
	DefaultFill      models.FillStrategy
	FillOverrides    map[string]models.FillStrategy
	Credential       string
}

// RunParams selects datasets and the observation window. Zero dates default to the
// trailing year ending today.
type RunParams struct {
	Datasets []string
	Start    time.Time
	End      time.Time
}

// ScenarioRunner runs the whole scenario lifecycle and assembles a report.
type ScenarioRunner struct {
	registry  Registry
	transport drepo.Transport
	store     drepo.ArtifactStore
	locker    drepo.Locker
	secrets   drepo.SecretLoader
	sink      drepo.ReportSink
	metrics   drepo.Metrics
	log       *logger.Logger
	cfg       RunnerConfig
	now       func() time.Time
}

func NewScenarioRunner(
	registry Registry,
	transport drepo.Transport,
	store drepo.ArtifactStore,
	locker drepo.Locker,
	secrets drepo.SecretLoader,
	sink drepo.ReportSink,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg RunnerConfig,
) *ScenarioRunner {
	if cfg.DefaultFill == "" {
		cfg.DefaultFill = models.FillLinear
	}
	return &ScenarioRunner{
		registry:  registry,
		transport: transport,
		store:     store,
		locker:    locker,
		secrets:   secrets,
		sink:      sink,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Registry exposes the dataset registry the runner resolves against.
func (r *ScenarioRunner) Registry() Registry { return r.registry }

// Window resolves the observation window for p.
func (r *ScenarioRunner) Window(p RunParams) (models.Window, error) {
	end := p.End
	if end.IsZero() {
		end = util.Day(r.now())
	}
	if p.Start.IsZero() {
		return models.TrailingYear(end), nil
	}
	return models.NewWindow(p.Start, end)
}

// Run executes one scenario. Unknown datasets, malformed keys and bad windows fail
// before any retrieval. An alignment failure still returns the report built so far.
func (r *ScenarioRunner) Run(ctx context.Context, p RunParams) (*models.Report, error) {
	start := time.Now()
	defer func() { r.metrics.RecordLatency("scenario.run", time.Since(start).Seconds()) }()

	window, err := r.Window(p)
	if err != nil {
		return nil, fmt.Errorf("run scenario: %w", err)
	}

	runID := uuid.NewString()
	log := r.log.With(logger.String("run_id", runID))

	opts := []align.Option{align.WithDefaultFill(r.cfg.DefaultFill)}
	for col, s := range r.cfg.FillOverrides {
		opts = append(opts, align.WithOverride(col, s))
	}

	cache := NewFetchCache(r.transport, r.store, r.locker, r.secrets, r.cfg.Credential, r.metrics, log)
	sc, err := NewScenario(r.registry, p.Datasets, window, cache, r.store, r.metrics, log,
		WithWorkers(r.cfg.Workers),
		WithMissingTolerance(r.cfg.MissingTolerance),
		WithAligner(align.New(opts...)),
	)
	if err != nil {
		return nil, err
	}

	log.Info("scenario started",
		logger.Strings("datasets", p.Datasets),
		logger.String("window", window.String()),
	)

	fetchCtx := ctx
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}
	if err := sc.GetData(fetchCtx); err != nil {
		return nil, err
	}
	if err := sc.ReadData(ctx); err != nil {
		return nil, err
	}
	if err := sc.CheckData(); err != nil {
		return nil, err
	}
	cleanErr := sc.CleanData()
	if cleanErr != nil && !errors.Is(cleanErr, models.ErrAlignment) {
		return nil, cleanErr
	}

	report := r.assemble(runID, sc)
	if cleanErr == nil {
		if err := r.analyze(report, sc); err != nil {
			return report, err
		}
	}

	log.Info("scenario finished",
		logger.Int("problems", len(report.Problems)),
		logger.Duration("elapsed_ms", time.Since(start)),
	)

	if r.sink != nil {
		if err := r.sink.Publish(ctx, report); err != nil {
			r.metrics.RecordError("sink")
			log.Error("publish report", logger.Error(err))
		}
	}
	return report, cleanErr
}

func (r *ScenarioRunner) assemble(runID string, sc *Scenario) *models.Report {
	report := &models.Report{
		RunID:       runID,
		GeneratedAt: r.now().UTC(),
		Window:      sc.Window(),
		Problems:    sc.Problems(),
		Frame:       sc.Frame(),
	}
	for _, m := range sc.Members() {
		ms := models.MemberStatus{Series: m.ID(), Key: m.Key(), Status: m.Status, Rows: len(m.Rows)}
		if m.Err != nil {
			ms.Error = m.Err.Error()
		}
		report.Members = append(report.Members, ms)
	}
	return report
}

// analyze derives returns and volatility on each value field, the designated ratios and the
// correlation matrix. Without a combined frame, per-series metrics come from the series' own rows
// and the matrix is omitted.
func (r *ScenarioRunner) analyze(report *models.Report, sc *Scenario) error {
	for _, m := range sc.Members() {
		if m.Status != models.StatusCleaned {
			continue
		}
		frame := report.Frame
		if frame == nil {
			frame = seriesFrame(m)
		}
		if f := m.Spec.ValueField; f != "" {
			col := models.ColumnName(m.ID(), f)
			if _, ok := frame.Column(col); ok {
				pr, err := analysis.PeriodicReturn(frame, col)
				if err != nil {
					return fmt.Errorf("periodic return %s: %w", col, err)
				}
				cr, err := analysis.CumulativeReturn(frame, col)
				if err != nil {
					return fmt.Errorf("cumulative return %s: %w", col, err)
				}
				report.Returns = append(report.Returns, models.SeriesMetrics{
					Column:           col,
					PeriodicReturn:   pr,
					CumulativeReturn: cr,
					Volatility:       analysis.Volatility(pr, analysis.PeriodsPerYear(m.Spec.Frequency)),
				})
			}
		}
		if m.Spec.HasRatio() {
			num := models.ColumnName(m.ID(), m.Spec.RatioFields[0])
			den := models.ColumnName(m.ID(), m.Spec.RatioFields[1])
			if !hasColumns(frame, num, den) {
				continue
			}
			values, err := analysis.Ratio(frame, num, den)
			if err != nil {
				return fmt.Errorf("ratio %s: %w", m.ID(), err)
			}
			report.Ratios = append(report.Ratios, models.RatioMetric{
				Name:        models.ColumnName(m.ID(), "long_short_ratio"),
				Numerator:   num,
				Denominator: den,
				Values:      values,
			})
		}
	}

	if report.Frame == nil {
		return nil
	}
	corr, err := analysis.CorrelationMatrix(report.Frame)
	if err != nil {
		return fmt.Errorf("correlation: %w", err)
	}
	report.Correlation = &corr
	return nil
}

// seriesFrame lays one series' rows out as frame columns, sorted by date, without filling.
func seriesFrame(m *models.CachedSeries) *models.CombinedFrame {
	rows := slices.Clone(m.Rows)
	slices.SortStableFunc(rows, func(a, b models.Row) int { return a.Date.Compare(b.Date) })

	f := &models.CombinedFrame{Dates: make([]time.Time, len(rows))}
	for i, row := range rows {
		f.Dates[i] = row.Date
	}
	for j, field := range m.Fields {
		col := models.Column{
			Series:       m.ID(),
			Field:        field,
			Fill:         models.FillNone,
			Values:       make([]models.Value, len(rows)),
			Interpolated: make([]bool, len(rows)),
		}
		for i, row := range rows {
			if j < len(row.Values) {
				col.Values[i] = row.Values[j]
			}
		}
		f.Columns = append(f.Columns, col)
	}
	return f
}

func hasColumns(frame *models.CombinedFrame, names ...string) bool {
	for _, n := range names {
		if _, ok := frame.Column(n); !ok {
			return false
		}
	}
	return true
}
