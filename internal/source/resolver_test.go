package source

import (
	"context"
	"errors"
	"testing"

	"github.com/asklens/asklens/internal/tier"
)

type fakeStore struct {
	descs []Descriptor
	err   error
}

func (f *fakeStore) ListActive(context.Context, int64) ([]Descriptor, error) {
	return f.descs, f.err
}

func (f *fakeStore) RowsOf(context.Context, int64, int) ([]map[string]any, error) {
	return nil, errors.New("not used")
}

type fakeIntrospector struct {
	handles map[int64][]TableHandle
	err     error
}

func (f *fakeIntrospector) Tables(_ context.Context, d Descriptor) ([]TableHandle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.handles[d.ID], nil
}

func salesSchema() Schema {
	var s Schema
	s.Add("region", Column{Type: "text"})
	s.Add("revenue", Column{Type: "numeric"})
	return s
}

func TestGetActive_NoSources(t *testing.T) {
	r := NewResolver(&fakeStore{}, &fakeIntrospector{})
	res, err := r.GetActive(context.Background(), 1, tier.Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Active || res.Reason != "no_sources" {
		t.Errorf("res = %+v, want inactive with no_sources", res)
	}
}

func TestGetActive_EmptySource(t *testing.T) {
	store := &fakeStore{descs: []Descriptor{
		{ID: 1, Name: "empty.csv", Kind: KindFile, Status: StatusEmpty},
	}}
	r := NewResolver(store, &fakeIntrospector{})
	res, err := r.GetActive(context.Background(), 1, tier.Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Active || res.Reason != "empty_source" {
		t.Errorf("res = %+v, want inactive with empty_source", res)
	}
}

func TestGetActive_SingleSource(t *testing.T) {
	store := &fakeStore{descs: []Descriptor{
		{ID: 1, Name: "Q3 Sales.csv", Kind: KindFile, Status: StatusActive, RowCount: 42},
		{ID: 2, Name: "broken", Kind: KindFile, Status: StatusError},
	}}
	intros := &fakeIntrospector{handles: map[int64][]TableHandle{
		1: {{LogicalName: "q3_sales_csv", Schema: salesSchema()}},
	}}

	r := NewResolver(store, intros)
	res, err := r.GetActive(context.Background(), 1, tier.Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Active || res.Composite {
		t.Fatalf("res = %+v, want a plain single-source resolution", res)
	}
	if len(res.Sources) != 1 || res.Sources[0].ID != 1 {
		t.Errorf("Sources = %v, want only the active descriptor", res.Sources)
	}
	if res.TotalRows != 42 {
		t.Errorf("TotalRows = %d, want 42", res.TotalRows)
	}
	if res.OwnerOf("q3_sales_csv").ID != 1 {
		t.Error("owner of the single handle must be the single source")
	}
}

func TestGetActive_CompositeNeedsCapability(t *testing.T) {
	store := &fakeStore{descs: []Descriptor{
		{ID: 1, Name: "sales", Kind: KindPostgres, Status: StatusActive, RowCount: 10},
		{ID: 2, Name: "orders.csv", Kind: KindFile, Status: StatusActive, RowCount: 5},
	}}
	intros := &fakeIntrospector{handles: map[int64][]TableHandle{
		1: {{LogicalName: "sales", Schema: salesSchema()}},
		2: {{LogicalName: "orders_csv", Schema: salesSchema()}},
	}}
	r := NewResolver(store, intros)

	// Without the multi-step capability only the first source is visible.
	res, err := r.GetActive(context.Background(), 1, tier.Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Composite || len(res.Sources) != 1 {
		t.Errorf("res = %+v, want single-source view", res)
	}

	res, err = r.GetActive(context.Background(), 1, tier.Limits{AllowMultiStep: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Composite || len(res.Sources) != 2 || len(res.Handles) != 2 {
		t.Fatalf("res = %+v, want a two-source composite", res)
	}
	if res.TotalRows != 15 {
		t.Errorf("TotalRows = %d, want 15", res.TotalRows)
	}
	if res.OwnerOf("orders_csv").ID != 2 {
		t.Error("composite owner map must route tables to their source")
	}
	if res.OwnerOf("unknown_table").ID != 1 {
		t.Error("unknown tables default to the first source")
	}
}

func TestGetActive_IntrospectionErrorPropagates(t *testing.T) {
	store := &fakeStore{descs: []Descriptor{
		{ID: 1, Name: "sales", Kind: KindPostgres, Status: StatusActive},
	}}
	r := NewResolver(store, &fakeIntrospector{err: errors.New("connection refused")})
	if _, err := r.GetActive(context.Background(), 1, tier.Limits{}); err == nil {
		t.Fatal("expected introspection error to propagate")
	}
}
