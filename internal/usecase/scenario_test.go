package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AlphaKit/internal/domain/models"
	"AlphaKit/internal/registry"
	"AlphaKit/internal/repository"
	"AlphaKit/internal/service/lock"
	"AlphaKit/internal/service/secrets"
	"AlphaKit/pkg/logger"
	"AlphaKit/pkg/metrics"
)

var januaryWindow = models.Window{Start: day(2020, 1, 1), End: day(2020, 1, 10)}

func testRegistry() *registry.Registry {
	return registry.New(
		models.DatasetSpec{
			ShortID: "A", Provider: models.ProviderQuandl, DatabaseCode: "DB", DatasetCode: "A",
			IndexColumn: "Date", Frequency: models.Daily, TestVars: []string{"v"}, RequiredFields: []string{"v"}, ValueField: "v",
		},
		models.DatasetSpec{
			ShortID: "B", Provider: models.ProviderQuandl, DatabaseCode: "DB", DatasetCode: "B",
			IndexColumn: "Date", Frequency: models.Daily, TestVars: []string{"v"}, RequiredFields: []string{"v"}, ValueField: "v",
		},
		models.DatasetSpec{
			ShortID: "C", Provider: models.ProviderQuandl, DatabaseCode: "DB", DatasetCode: "C",
			IndexColumn: "Date", Frequency: models.Daily, TestVars: []string{"v"}, RequiredFields: []string{"v"},
		},
	)
}

func newScenario(t *testing.T, tr *stubTransport, ids ...string) *Scenario {
	t.Helper()
	store, err := repository.NewFileStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	cache := NewFetchCache(tr, store, lock.NewLocal(), secrets.Static("k"), "KEY", metrics.Nop{}, logger.Nop())
	s, err := NewScenario(testRegistry(), ids, januaryWindow, cache, store, metrics.Nop{}, logger.Nop(),
		WithWorkers(2), WithMissingTolerance(1))
	require.NoError(t, err)
	return s
}

func kinds(ps []models.Problem) []models.ProblemKind {
	out := make([]models.ProblemKind, len(ps))
	for i, p := range ps {
		out[i] = p.Kind
	}
	return out
}

func TestScenarioEndToEndConcrete(t *testing.T) {
	tr := newStubTransport()
	// Provider payloads arrive newest first.
	tr.payloads["DB/A"] = csvOf("v", "2020-01-02:11", "2020-01-01:10")
	tr.payloads["DB/B"] = csvOf("v", "2020-01-03:102", "2020-01-01:100")

	s := newScenario(t, tr, "A", "B")
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateCombined, s.State())
	assert.Empty(t, s.Problems())

	f := s.Frame()
	require.NotNil(t, f)
	assert.Equal(t, []time.Time{day(2020, 1, 1), day(2020, 1, 2), day(2020, 1, 3)}, f.Dates)

	a, _ := f.Column("A:v")
	assert.False(t, a.Values[2].Valid)
	b, _ := f.Column("B:v")
	assert.InDelta(t, 101.0, b.Values[1].Float, 1e-9)

	for _, m := range s.Members() {
		assert.Equal(t, models.StatusCleaned, m.Status, m.ID())
	}
}

func TestScenarioPartialFailureContinues(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = csvOf("v", "2020-01-01:1", "2020-01-02:2")
	tr.payloads["DB/B"] = csvOf("v", "2020-01-01:5", "2020-01-02:4")
	// C is absent: the stub answers with a permanent fetch error.

	s := newScenario(t, tr, "A", "C", "B")
	require.NoError(t, s.Run(context.Background()))

	require.Len(t, s.Problems(), 1)
	p := s.Problems()[0]
	assert.Equal(t, "C", p.Series)
	assert.Equal(t, models.ProblemFetchFailed, p.Kind)

	c := s.Members()[1]
	assert.Equal(t, models.StatusError, c.Status)
	assert.True(t, errors.Is(c.Err, models.ErrFetch))
	assert.Equal(t, []string{"A:v", "B:v"}, s.Frame().ColumnNames())
}

func TestScenarioRepeatedIDsFetchOnce(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = csvOf("v", "2020-01-01:1")

	s := newScenario(t, tr, "A", "A", "A")
	require.NoError(t, s.GetData(context.Background()))
	assert.Len(t, s.Members(), 1)
	assert.Equal(t, 1, tr.Calls())
}

func TestScenarioStepsAreIdempotentAndOrdered(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = csvOf("v", "2020-01-01:1", "2020-01-02:2")
	tr.payloads["DB/B"] = csvOf("v", "2020-01-01:1", "2020-01-02:3")
	s := newScenario(t, tr, "A", "B")
	ctx := context.Background()

	assert.ErrorIs(t, s.ReadData(ctx), models.ErrStateOrder)
	assert.ErrorIs(t, s.CheckData(), models.ErrStateOrder)
	assert.ErrorIs(t, s.CleanData(), models.ErrStateOrder)

	require.NoError(t, s.GetData(ctx))
	require.NoError(t, s.GetData(ctx))
	assert.Equal(t, 2, tr.Calls())

	assert.ErrorIs(t, s.CheckData(), models.ErrStateOrder)
	require.NoError(t, s.ReadData(ctx))
	require.NoError(t, s.ReadData(ctx))

	// Checking is optional.
	require.NoError(t, s.CleanData())
	require.NoError(t, s.CleanData())
	assert.Equal(t, StateCombined, s.State())
	require.NoError(t, s.CheckData())
}

func TestScenarioCheckFindings(t *testing.T) {
	tr := newStubTransport()
	// Window Jan 1..10 has 8 weekdays; A reports 2 and one row outside the window.
	tr.payloads["DB/A"] = csvOf("v", "2020-01-02:1", "2020-01-03:2", "2020-02-03:3")
	tr.payloads["DB/B"] = "Date,w\n2020-01-02,1\n"

	store, err := repository.NewFileStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	cache := NewFetchCache(tr, store, lock.NewLocal(), secrets.Static("k"), "KEY", metrics.Nop{}, logger.Nop())
	s, err := NewScenario(testRegistry(), []string{"A", "B"}, januaryWindow, cache, store, metrics.Nop{}, logger.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.GetData(ctx))
	require.NoError(t, s.ReadData(ctx))
	require.NoError(t, s.CheckData())

	assert.Equal(t, []models.ProblemKind{
		models.ProblemOutOfWindow,
		models.ProblemMissingPeriods,
		models.ProblemMissingField,
	}, kinds(s.Problems()))
	assert.Equal(t, models.StatusChecked, s.Members()[0].Status)
	assert.Equal(t, models.StatusError, s.Members()[1].Status)

	require.NoError(t, s.CleanData())
	assert.Len(t, s.Members()[0].Rows, 3, "clean drops only rows missing test vars")
	assert.Contains(t, kinds(s.Problems()), models.ProblemInsufficientSeries)
	assert.Nil(t, s.Frame())
}

func TestScenarioSingleCleanedSeriesLeavesFrameAbsent(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = csvOf("v", "2020-01-01:10", "2020-01-02:11")

	s := newScenario(t, tr, "A")
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, models.StatusCleaned, s.Members()[0].Status)
	assert.Equal(t, []models.ProblemKind{models.ProblemInsufficientSeries}, kinds(s.Problems()))
	assert.Nil(t, s.Frame())
	assert.Equal(t, StateCombined, s.State())
	require.NoError(t, s.CleanData())
}

func TestScenarioDuplicateDatesFailSeriesAtRead(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = csvOf("v", "2020-01-02:1", "2020-01-02:2")
	tr.payloads["DB/B"] = csvOf("v", "2020-01-02:1")

	s := newScenario(t, tr, "A", "B")
	require.NoError(t, s.GetData(context.Background()))
	require.NoError(t, s.ReadData(context.Background()))

	assert.Equal(t, models.StatusError, s.Members()[0].Status)
	assert.Equal(t, []models.ProblemKind{models.ProblemDuplicateDate}, kinds(s.Problems()))
}

func TestScenarioParseFailure(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = "Day,v\n2020-01-02,1\n"
	tr.payloads["DB/B"] = csvOf("v", "2020-01-02:1")

	s := newScenario(t, tr, "A", "B")
	require.NoError(t, s.Run(context.Background()))
	ks := kinds(s.Problems())
	assert.Equal(t, models.ProblemParseFailed, ks[0])
	assert.Equal(t, models.ProblemInsufficientSeries, ks[1])
}

func TestScenarioCleanDropsRowsMissingTestVars(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = csvOf("v", "2020-01-02:1", "2020-01-03:", "2020-01-06:3")
	tr.payloads["DB/B"] = csvOf("v", "2020-01-02:1", "2020-01-06:2")

	s := newScenario(t, tr, "A", "B")
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, s.Members()[0].Rows, 2)
	assert.Equal(t, []time.Time{day(2020, 1, 2), day(2020, 1, 6)}, s.Frame().Dates)
}

func TestScenarioRunTimeoutCancelsFetches(t *testing.T) {
	tr := newStubTransport()
	tr.payloads["DB/A"] = csvOf("v", "2020-01-02:1")
	tr.payloads["DB/B"] = csvOf("v", "2020-01-02:1")
	tr.delay = time.Second

	s := newScenario(t, tr, "A", "B")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, s.GetData(ctx))

	assert.Equal(t, []models.ProblemKind{models.ProblemCancelled, models.ProblemCancelled}, kinds(s.Problems()))
	for _, m := range s.Members() {
		assert.True(t, errors.Is(m.Err, models.ErrCancelled))
	}
}

func TestNewScenarioCallerInputErrors(t *testing.T) {
	store, err := repository.NewFileStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	cache := NewFetchCache(newStubTransport(), store, lock.NewLocal(), secrets.Static("k"), "KEY", metrics.Nop{}, logger.Nop())

	_, err = NewScenario(testRegistry(), []string{"A", "nope"}, januaryWindow, cache, store, metrics.Nop{}, logger.Nop())
	assert.ErrorIs(t, err, models.ErrUnknownDataset)

	bad := registry.New(models.DatasetSpec{ShortID: "X", DatabaseCode: "D-B", DatasetCode: "X"})
	_, err = NewScenario(bad, []string{"X"}, januaryWindow, cache, store, metrics.Nop{}, logger.Nop())
	assert.ErrorIs(t, err, models.ErrFormat)

	_, err = NewScenario(testRegistry(), nil, januaryWindow, cache, store, metrics.Nop{}, logger.Nop())
	assert.Error(t, err)
}
