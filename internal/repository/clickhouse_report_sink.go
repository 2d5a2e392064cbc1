package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"AlphaKit/internal/domain/models"
	applogger "AlphaKit/pkg/logger"
)

// Execer is the statement surface of *sql.DB the sink needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const chunkSize = 2000

// ClickHouseReportSink persists reports into four tables: runs, problems, frame values
// and correlations. Rows of one run share its run_id.
type ClickHouseReportSink struct {
	db       Execer
	database string
	l        *applogger.Logger
}

func NewClickHouseReportSink(db Execer, database string, l *applogger.Logger) (*ClickHouseReportSink, error) {
	if !identRe.MatchString(database) {
		return nil, fmt.Errorf("invalid clickhouse database name %q", database)
	}
	return &ClickHouseReportSink{db: db, database: database, l: l}, nil
}

// Schema returns the idempotent DDL for the sink tables.
func (s *ClickHouseReportSink) Schema() []string {
	db := s.database
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.runs (
            run_id String,
            generated_at DateTime64(3, 'UTC'),
            window_start Date,
            window_end Date,
            members UInt32,
            problems UInt32,
            report String
        ) ENGINE = MergeTree ORDER BY (generated_at, run_id)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.problems (
            run_id String,
            series String,
            kind LowCardinality(String),
            detail String
        ) ENGINE = MergeTree ORDER BY (run_id, kind)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.frame_values (
            run_id String,
            date Date,
            column String,
            value Nullable(Float64),
            interpolated UInt8
        ) ENGINE = MergeTree ORDER BY (run_id, column, date)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.correlations (
            run_id String,
            a String,
            b String,
            value Nullable(Float64)
        ) ENGINE = MergeTree ORDER BY (run_id, a, b)`, db),
	}
}

func (s *ClickHouseReportSink) Publish(ctx context.Context, r *models.Report) error {
	start := time.Now()
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	q := fmt.Sprintf("INSERT INTO %s.runs (run_id, generated_at, window_start, window_end, members, problems, report) VALUES (?, ?, ?, ?, ?, ?, ?)", s.database)
	if _, err := s.db.ExecContext(ctx, q,
		r.RunID, r.GeneratedAt, r.Window.Start, r.Window.End,
		uint32(len(r.Members)), uint32(len(r.Problems)), string(body),
	); err != nil {
		return s.fail("runs", r.RunID, err)
	}

	problems := make([][]any, 0, len(r.Problems))
	for _, p := range r.Problems {
		problems = append(problems, []any{r.RunID, p.Series, string(p.Kind), p.Detail})
	}
	if err := s.insert(ctx, "problems", "run_id, series, kind, detail", problems); err != nil {
		return s.fail("problems", r.RunID, err)
	}

	var values, corr [][]any
	if f := r.Frame; f != nil {
		values = make([][]any, 0, len(f.Columns)*f.Len())
		for _, c := range f.Columns {
			name := c.Name()
			for i, d := range f.Dates {
				var interp uint8
				if i < len(c.Interpolated) && c.Interpolated[i] {
					interp = 1
				}
				values = append(values, []any{r.RunID, d, name, nullable(c.Values[i]), interp})
			}
		}
	}
	if err := s.insert(ctx, "frame_values", "run_id, date, column, value, interpolated", values); err != nil {
		return s.fail("frame_values", r.RunID, err)
	}

	if m := r.Correlation; m != nil {
		for i, a := range m.Columns {
			for j, b := range m.Columns {
				corr = append(corr, []any{r.RunID, a, b, nullable(m.At(i, j))})
			}
		}
	}
	if err := s.insert(ctx, "correlations", "run_id, a, b, value", corr); err != nil {
		return s.fail("correlations", r.RunID, err)
	}

	s.l.Info("clickhouse report stored",
		applogger.String("run_id", r.RunID),
		applogger.Int("frame_values", len(values)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// insert writes rows with multi-row VALUES statements in chunks.
func (s *ClickHouseReportSink) insert(ctx context.Context, table, columns string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	arity := len(rows[0])
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", arity), ", ") + ")"
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*arity)
		for _, row := range rows[start:end] {
			values = append(values, tuple)
			args = append(args, row...)
		}
		q := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s", s.database, table, columns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseReportSink) fail(table, runID string, err error) error {
	s.l.Error("clickhouse insert error",
		applogger.String("table", table),
		applogger.String("run_id", runID),
		applogger.Error(err),
	)
	return fmt.Errorf("store report %s into %s: %w", runID, table, err)
}

// Close is a no-op; the connection pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseReportSink) Close() error { return nil }

func nullable(v models.Value) any {
	if f, ok := v.Get(); ok {
		return f
	}
	return nil
}
