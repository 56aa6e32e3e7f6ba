// Package schema resolves table handles for a source. File sources carry
// their schema on the descriptor; live sources are introspected read-only
// through information_schema in ordinal column order.
package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/pool"
	"github.com/asklens/asklens/internal/source"
)

const (
	mysqlTablesQuery = `SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`
	mysqlColumnsQuery = `SELECT COLUMN_NAME, DATA_TYPE FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	postgresTablesQuery = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	postgresColumnsQuery = `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`
)

// Introspector implements source.Introspector over the pool registry.
type Introspector struct {
	pools *pool.Registry
	log   *zap.Logger
}

func NewIntrospector(pools *pool.Registry, log *zap.Logger) *Introspector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Introspector{pools: pools, log: log}
}

// Tables returns the handles a source exposes. A file source exposes
// exactly one handle named from the source name; a live source exposes all
// tables in its default schema.
func (i *Introspector) Tables(ctx context.Context, d source.Descriptor) ([]source.TableHandle, error) {
	if !d.Live() {
		return []source.TableHandle{{
			LogicalName: source.FileTableName(d.Name),
			Schema:      d.Schema,
		}}, nil
	}

	db, err := i.pools.Pool(d.Kind, d.ConnectionSecret)
	if err != nil {
		return nil, err
	}

	tablesQuery, columnsQuery := mysqlTablesQuery, mysqlColumnsQuery
	if d.Kind == source.KindPostgres {
		tablesQuery, columnsQuery = postgresTablesQuery, postgresColumnsQuery
	}

	names, err := i.tableNames(ctx, db, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("listing tables for %q: %w", d.Name, err)
	}

	handles := make([]source.TableHandle, 0, len(names))
	for _, name := range names {
		sch, err := i.columns(ctx, db, columnsQuery, name)
		if err != nil {
			return nil, fmt.Errorf("listing columns of %q: %w", name, err)
		}
		handles = append(handles, source.TableHandle{LogicalName: name, Schema: sch})
	}
	i.log.Debug("introspected live source",
		zap.String("source", d.Name),
		zap.Int("tables", len(handles)))
	return handles, nil
}

func (i *Introspector) tableNames(ctx context.Context, db *sqlx.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (i *Introspector) columns(ctx context.Context, db *sqlx.DB, query, table string) (source.Schema, error) {
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return source.Schema{}, err
	}
	defer rows.Close()

	var sch source.Schema
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return source.Schema{}, err
		}
		sch.Add(name, source.Column{Type: dataType})
	}
	return sch, rows.Err()
}
