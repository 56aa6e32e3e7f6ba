package source

import (
	"context"
	"fmt"

	"github.com/asklens/asklens/internal/tier"
)

// Introspector turns a descriptor into table handles. Implemented by
// internal/schema; declared here so the resolver doesn't depend on pools.
type Introspector interface {
	Tables(ctx context.Context, d Descriptor) ([]TableHandle, error)
}

// Resolution is what the orchestrator queries against.
type Resolution struct {
	Active bool
	// Reason is set when Active is false: "no_sources" or "empty_source".
	Reason string

	Kind Kind
	// Composite is true when multiple sources were flattened into one
	// virtual view for a multi-source-capable tier.
	Composite bool
	Sources   []Descriptor
	Handles   []TableHandle
	// Owner maps a logical table name to its index in Sources, so the
	// executor can route a statement in a composite view.
	Owner     map[string]int
	TotalRows int
}

// OwnerOf returns the descriptor owning a logical table, defaulting to the
// first source.
func (r Resolution) OwnerOf(table string) Descriptor {
	if idx, ok := r.Owner[table]; ok {
		return r.Sources[idx]
	}
	return r.Sources[0]
}

// Resolver lists a user's sources and decides what this request sees.
type Resolver struct {
	store  Store
	intros Introspector
}

func NewResolver(store Store, intros Introspector) *Resolver {
	return &Resolver{store: store, intros: intros}
}

// List returns the user's active descriptors unchanged.
func (r *Resolver) List(ctx context.Context, userID int64) ([]Descriptor, error) {
	return r.store.ListActive(ctx, userID)
}

// GetActive resolves the source set for one request. Multi-source access
// is a capability of the tier record, not of the tier name.
func (r *Resolver) GetActive(ctx context.Context, userID int64, limits tier.Limits) (Resolution, error) {
	descriptors, err := r.store.ListActive(ctx, userID)
	if err != nil {
		return Resolution{}, fmt.Errorf("listing sources: %w", err)
	}

	usable := descriptors[:0:0]
	sawEmpty := false
	for _, d := range descriptors {
		switch d.Status {
		case StatusActive:
			usable = append(usable, d)
		case StatusEmpty:
			sawEmpty = true
		}
	}

	if len(usable) == 0 {
		reason := "no_sources"
		if sawEmpty {
			reason = "empty_source"
		}
		return Resolution{Reason: reason}, nil
	}

	if len(usable) >= 2 && limits.AllowMultiStep {
		return r.composite(ctx, usable)
	}

	d := usable[0]
	handles, err := r.intros.Tables(ctx, d)
	if err != nil {
		return Resolution{}, fmt.Errorf("introspecting %q: %w", d.Name, err)
	}
	if len(handles) == 0 {
		return Resolution{Reason: "empty_source"}, nil
	}
	owner := make(map[string]int, len(handles))
	for _, h := range handles {
		owner[h.LogicalName] = 0
	}
	return Resolution{
		Active:    true,
		Kind:      d.Kind,
		Sources:   []Descriptor{d},
		Handles:   handles,
		Owner:     owner,
		TotalRows: d.RowCount,
	}, nil
}

// composite flattens every usable source's handles into one virtual view.
func (r *Resolver) composite(ctx context.Context, usable []Descriptor) (Resolution, error) {
	res := Resolution{Active: true, Composite: true, Owner: make(map[string]int)}
	for _, d := range usable {
		handles, err := r.intros.Tables(ctx, d)
		if err != nil {
			return Resolution{}, fmt.Errorf("introspecting %q: %w", d.Name, err)
		}
		idx := len(res.Sources)
		res.Sources = append(res.Sources, d)
		for _, h := range handles {
			res.Owner[h.LogicalName] = idx
		}
		res.Handles = append(res.Handles, handles...)
		res.TotalRows += d.RowCount
	}
	if len(res.Handles) == 0 {
		return Resolution{Reason: "empty_source"}, nil
	}
	// A composite keeps the kind of its first source for dispatch; the
	// executor re-checks per descriptor.
	res.Kind = res.Sources[0].Kind
	return res, nil
}
