package schema

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/asklens/asklens/internal/source"
)

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestTables_FileSource(t *testing.T) {
	var s source.Schema
	s.Add("region", source.Column{Type: "text"})
	d := source.Descriptor{Name: "Q3 Sales.csv", Kind: source.KindFile, Schema: s}

	i := NewIntrospector(nil, nil)
	handles, err := i.Tables(context.Background(), d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("len = %d, want exactly one handle per file", len(handles))
	}
	if handles[0].LogicalName != "q3_sales_csv" {
		t.Errorf("LogicalName = %q, want q3_sales_csv", handles[0].LogicalName)
	}
	if !handles[0].Schema.Has("region") {
		t.Error("file handle must carry the descriptor schema")
	}
}

func TestTableNames(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("orders").
			AddRow("sales"))

	i := NewIntrospector(nil, nil)
	names, err := i.tableNames(context.Background(), db, postgresTablesQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "orders" || names[1] != "sales" {
		t.Errorf("names = %v, want [orders sales]", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestColumns_OrdinalOrder(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("information_schema.columns").
		WithArgs("sales").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "integer").
			AddRow("region", "character varying").
			AddRow("revenue", "numeric"))

	i := NewIntrospector(nil, nil)
	sch, err := i.columns(context.Background(), db, postgresColumnsQuery, "sales")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"id", "region", "revenue"}
	if len(sch.Names) != len(want) {
		t.Fatalf("Names = %v, want %v", sch.Names, want)
	}
	for i, name := range want {
		if sch.Names[i] != name {
			t.Errorf("Names[%d] = %q, want %q", i, sch.Names[i], name)
		}
	}
	if sch.Columns["revenue"].Type != "numeric" {
		t.Errorf("revenue type = %q, want numeric", sch.Columns["revenue"].Type)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTableNames_QueryError(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("information_schema.tables").
		WillReturnError(context.DeadlineExceeded)

	i := NewIntrospector(nil, nil)
	if _, err := i.tableNames(context.Background(), db, postgresTablesQuery); err == nil {
		t.Fatal("expected the driver error to surface")
	}
}
