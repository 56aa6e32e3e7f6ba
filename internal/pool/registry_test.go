package pool

import (
	"strings"
	"testing"

	"github.com/asklens/asklens/internal/source"
)

func TestKey(t *testing.T) {
	a := Key(source.KindMySQL, "user:pass@tcp(db:3306)/sales")
	b := Key(source.KindMySQL, "user:pass@tcp(db:3306)/sales")
	if a != b {
		t.Error("same kind and secret must derive the same key")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
	if strings.Contains(a, "pass") {
		t.Error("key must not expose the secret")
	}
	if Key(source.KindPostgres, "user:pass@tcp(db:3306)/sales") == a {
		t.Error("kind must be part of the key")
	}
	if Key(source.KindMySQL, "other") == a {
		t.Error("secret must be part of the key")
	}
}

func TestDriverDSN(t *testing.T) {
	tests := []struct {
		name       string
		kind       source.Kind
		secret     string
		wantDriver string
		wantDSN    string
	}{
		{
			"mysql gets timeout",
			source.KindMySQL,
			"user:pass@tcp(db:3306)/sales",
			"mysql",
			"user:pass@tcp(db:3306)/sales?timeout=10s",
		},
		{
			"mysql appends to existing params",
			source.KindMySQL,
			"user:pass@tcp(db:3306)/sales?parseTime=true",
			"mysql",
			"user:pass@tcp(db:3306)/sales?parseTime=true&timeout=10s",
		},
		{
			"mysql keeps caller timeout",
			source.KindMySQL,
			"user:pass@tcp(db:3306)/sales?timeout=3s",
			"mysql",
			"user:pass@tcp(db:3306)/sales?timeout=3s",
		},
		{
			"postgres url gets connect_timeout",
			source.KindPostgres,
			"postgres://user:pass@db:5432/sales",
			"postgres",
			"postgres://user:pass@db:5432/sales?connect_timeout=10",
		},
		{
			"postgres url with params",
			source.KindPostgres,
			"postgres://user:pass@db:5432/sales?sslmode=disable",
			"postgres",
			"postgres://user:pass@db:5432/sales?sslmode=disable&connect_timeout=10",
		},
		{
			"postgres keyword form",
			source.KindPostgres,
			"host=db user=app dbname=sales",
			"postgres",
			"host=db user=app dbname=sales connect_timeout=10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := driverDSN(tt.kind, tt.secret)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if driver != tt.wantDriver {
				t.Errorf("driver = %q, want %q", driver, tt.wantDriver)
			}
			if dsn != tt.wantDSN {
				t.Errorf("dsn = %q, want %q", dsn, tt.wantDSN)
			}
		})
	}
}

func TestDriverDSN_FileHasNoDriver(t *testing.T) {
	if _, _, err := driverDSN(source.KindFile, "ignored"); err == nil {
		t.Fatal("file sources must not reach the pool layer")
	}
}
