package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ConfigEntry is one source as declared in the CLI config file.
type ConfigEntry struct {
	Name string `mapstructure:"name"`
	Kind string `mapstructure:"kind"`
	// DSN for postgres/mysql kinds.
	DSN string `mapstructure:"dsn"`
	// Rows is the path to a JSON array of row objects for file kinds.
	Rows string `mapstructure:"rows"`
}

// ConfigStore is the Store the CLI uses: sources declared in the config
// file, file rows materialized from JSON on disk. Single-user, so the
// userID is ignored.
type ConfigStore struct {
	mu    sync.Mutex
	descs []Descriptor
	paths map[int64]string
	rows  map[int64][]map[string]any
	log   *zap.Logger
}

func NewConfigStore(log *zap.Logger) *ConfigStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConfigStore{
		paths: make(map[int64]string),
		rows:  make(map[int64][]map[string]any),
		log:   log,
	}
}

// Load replaces the store contents with the given entries. File schemas
// are inferred from the first rows; unreadable files mark the source as
// errored instead of failing the load.
func (s *ConfigStore) Load(entries []ConfigEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.descs = s.descs[:0]
	for i, e := range entries {
		id := int64(i + 1)
		d := Descriptor{
			ID:     id,
			Name:   e.Name,
			Status: StatusActive,
		}
		switch Kind(e.Kind) {
		case KindPostgres, KindMySQL:
			d.Kind = Kind(e.Kind)
			if e.DSN == "" {
				return fmt.Errorf("source %q: %s kind needs a dsn", e.Name, e.Kind)
			}
			d.ConnectionSecret = e.DSN
		case KindFile, "":
			d.Kind = KindFile
			if e.Rows == "" {
				return fmt.Errorf("source %q: file kind needs a rows path", e.Name)
			}
			rows, err := readRowsFile(e.Rows)
			if err != nil {
				s.log.Warn("unreadable rows file", zap.String("source", e.Name), zap.Error(err))
				d.Status = StatusError
			} else {
				d.Schema = inferSchema(rows)
				d.RowCount = len(rows)
				if len(rows) == 0 {
					d.Status = StatusEmpty
				}
				s.rows[id] = rows
			}
			s.paths[id] = e.Rows
		default:
			return fmt.Errorf("source %q: unknown kind %q", e.Name, e.Kind)
		}
		s.descs = append(s.descs, d)
	}
	return nil
}

func (s *ConfigStore) ListActive(_ context.Context, _ int64) ([]Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Descriptor, len(s.descs))
	copy(out, s.descs)
	return out, nil
}

func (s *ConfigStore) RowsOf(_ context.Context, sourceID int64, limit int) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.rows[sourceID]
	if !ok {
		return nil, fmt.Errorf("source %d has no materialized rows", sourceID)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]map[string]any, len(rows))
	copy(out, rows)
	return out, nil
}

func readRowsFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rows, nil
}

var reDateValue = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// inferSchema derives column names and coarse types from the first rows.
// Scans up to 20 rows so a leading null does not hide a column's type.
func inferSchema(rows []map[string]any) Schema {
	var s Schema
	n := len(rows)
	if n > 20 {
		n = 20
	}
	for _, row := range rows[:n] {
		names := make([]string, 0, len(row))
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := inferType(row[name])
			if existing, ok := s.Columns[name]; ok {
				if existing.Type == "" && t != "" {
					s.Columns[name] = Column{Type: t}
				}
				continue
			}
			s.Add(name, Column{Type: t})
		}
	}
	// Columns that were null in every scanned row default to text.
	for _, name := range s.Names {
		if s.Columns[name].Type == "" {
			s.Columns[name] = Column{Type: "text"}
		}
	}
	return s
}

func inferType(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64, int, int64:
		return "numeric"
	case bool:
		return "boolean"
	case string:
		if reDateValue.MatchString(val) {
			return "date"
		}
		return "text"
	default:
		return "text"
	}
}
