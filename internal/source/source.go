// Package source holds the data-source model the core operates on: typed
// descriptors handed in from outside, the logical table handles exposed to
// the planner, and the resolver that picks what a request may query.
package source

import (
	"context"
	"regexp"
	"strings"
)

// Kind distinguishes ingested file tables from live database connections.
type Kind string

const (
	KindFile     Kind = "file"
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
)

// Status mirrors the lifecycle owned outside the core.
type Status string

const (
	StatusActive  Status = "active"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
)

// Column describes one schema column.
type Column struct {
	Type        string
	Description string
}

// Schema is an ordered column map. Order matters for prompt rendering and
// for quality reports, so names are kept separately.
type Schema struct {
	Names   []string
	Columns map[string]Column
}

// Add appends a column, preserving order.
func (s *Schema) Add(name string, col Column) {
	if s.Columns == nil {
		s.Columns = make(map[string]Column)
	}
	if _, exists := s.Columns[name]; !exists {
		s.Names = append(s.Names, name)
	}
	s.Columns[name] = col
}

// Has reports whether the schema contains the column, case-insensitively.
func (s Schema) Has(name string) bool {
	for _, n := range s.Names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Descriptor is how the core sees a connected source. The core never
// learns how the data arrived; live kinds carry an opaque decrypted DSN in
// ConnectionSecret.
type Descriptor struct {
	ID               int64
	Name             string
	Kind             Kind
	Schema           Schema
	RowCount         int
	Status           Status
	ConnectionSecret string
}

// Live reports whether rows are fetched at query time from an external RDBMS.
func (d Descriptor) Live() bool {
	return d.Kind == KindPostgres || d.Kind == KindMySQL
}

// TableHandle is a logical table view exposed to the planner.
type TableHandle struct {
	LogicalName string
	Schema      Schema
}

var reNonIdent = regexp.MustCompile(`[^a-z0-9]+`)

// FileTableName derives the single logical table name a file source
// exposes: lowercased, with every non-alphanumeric run collapsed to one
// underscore so the result is always a plain SQL identifier.
func FileTableName(sourceName string) string {
	return strings.Trim(reNonIdent.ReplaceAllString(strings.ToLower(sourceName), "_"), "_")
}

// Store is the persistence seam the core reads sources through. RowsOf is
// only meaningful for file kinds.
type Store interface {
	ListActive(ctx context.Context, userID int64) ([]Descriptor, error)
	RowsOf(ctx context.Context, sourceID int64, limit int) ([]map[string]any, error)
}
