// Package executor runs validated SQL. File sources never see a SQL
// engine: the statement is the tier-checked representation of intent and
// execution is a bounded scan of the materialized rows. Live sources
// execute the enhanced SQL through the shared pools under the request
// deadline.
package executor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/metrics"
	"github.com/asklens/asklens/internal/pool"
	"github.com/asklens/asklens/internal/source"
	"github.com/asklens/asklens/internal/sqlcheck"
	"github.com/asklens/asklens/internal/tier"
)

// Result is a normalized query outcome. RowCount always equals len(Rows)
// and never exceeds the tier row cap.
type Result struct {
	Rows      []map[string]any
	RowCount  int
	Tables    []string
	Truncated bool
	SQL       string
}

// FileRows is the slice of source.Store the executor needs.
type FileRows interface {
	RowsOf(ctx context.Context, sourceID int64, limit int) ([]map[string]any, error)
}

type Executor struct {
	pools *pool.Registry
	files FileRows
	log   *zap.Logger
	mets  *metrics.Metrics
}

func New(pools *pool.Registry, files FileRows, log *zap.Logger, mets *metrics.Metrics) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{pools: pools, files: files, log: log, mets: mets}
}

// Run dispatches on the source kind. The report must come from the
// validator; the executor assumes only what validation guarantees.
func (e *Executor) Run(ctx context.Context, d source.Descriptor, rep sqlcheck.Report, limits tier.Limits) (Result, error) {
	if !rep.IsValid {
		return Result{}, fmt.Errorf("refusing to execute unvalidated SQL")
	}
	start := time.Now()
	var res Result
	var err error
	if d.Live() {
		res, err = e.runLive(ctx, d, rep, limits)
	} else {
		res, err = e.runFile(ctx, d, rep, limits)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.mets.ObserveQuery(string(d.Kind), outcome, time.Since(start).Seconds())
	return res, err
}

func (e *Executor) runFile(ctx context.Context, d source.Descriptor, rep sqlcheck.Report, limits tier.Limits) (Result, error) {
	limit := sqlcheck.LimitOf(rep.EnhancedSQL, limits.MaxRows)
	if limit > limits.MaxRows {
		limit = limits.MaxRows
	}
	rows, err := e.files.RowsOf(ctx, d.ID, limit)
	if err != nil {
		return Result{}, fmt.Errorf("reading file rows: %w", err)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return Result{
		Rows:      rows,
		RowCount:  len(rows),
		Tables:    []string{source.FileTableName(d.Name)},
		Truncated: len(rows) == limit,
		SQL:       rep.EnhancedSQL,
	}, nil
}

func (e *Executor) runLive(ctx context.Context, d source.Descriptor, rep sqlcheck.Report, limits tier.Limits) (Result, error) {
	db, err := e.pools.Pool(d.Kind, d.ConnectionSecret)
	if err != nil {
		return Result{}, err
	}

	rows, err := db.QueryxContext(ctx, rep.EnhancedSQL)
	if err != nil {
		e.log.Warn("live query failed",
			zap.String("kind", string(d.Kind)),
			zap.String("key", pool.Key(d.Kind, d.ConnectionSecret)[:8]),
			zap.Error(err))
		return Result{}, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		if len(out) >= limits.MaxRows {
			break
		}
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return Result{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("reading rows: %w", err)
	}

	tables := rep.Tables
	if len(tables) == 0 {
		tables = []string{d.Name}
	}
	return Result{
		Rows:      out,
		RowCount:  len(out),
		Tables:    tables,
		Truncated: len(out) == limits.MaxRows,
		SQL:       rep.EnhancedSQL,
	}, nil
}

var reNumeric = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// normalizeRow lowercases column names, converts driver byte slices to
// strings, and coerces numeric strings to float64 only when the whole
// value is unambiguously a number.
func normalizeRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for col, val := range row {
		key := strings.ToLower(col)
		switch v := val.(type) {
		case []byte:
			s := string(v)
			if reNumeric.MatchString(s) {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					out[key] = f
					continue
				}
			}
			out[key] = s
		default:
			out[key] = v
		}
	}
	return out
}
