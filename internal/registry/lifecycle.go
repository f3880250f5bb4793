package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"registra.org/internal/audit"
	"registra.org/internal/status"
)

// DependentResolver lists the dependent rows that must be retired together
// with a primary target.
type DependentResolver func(ctx context.Context, primaryID string) ([]Target, error)

// Lifecycle performs soft deletion: rows are flipped to the inactive status,
// never removed, and never flipped back. Dependents registered for a kind are
// retired in the same transaction as the primary.
type Lifecycle struct {
	store      Store
	catalog    *status.Catalog
	stamper    *audit.Stamper
	dependents map[Kind][]DependentResolver
}

func NewLifecycle(store Store, catalog *status.Catalog, stamper *audit.Stamper) (*Lifecycle, error) {
	if store == nil {
		return nil, errors.New("registry: store is required")
	}
	if catalog == nil {
		return nil, errors.New("registry: status catalog is required")
	}
	if stamper == nil {
		return nil, errors.New("registry: stamper is required")
	}
	return &Lifecycle{
		store:      store,
		catalog:    catalog,
		stamper:    stamper,
		dependents: make(map[Kind][]DependentResolver),
	}, nil
}

// RegisterDependents appends resolvers consulted whenever a primary of the
// given kind is retired.
func (l *Lifecycle) RegisterDependents(kind Kind, resolvers ...DependentResolver) {
	l.dependents[kind] = append(l.dependents[kind], resolvers...)
}

// MarkInactive retires the primary target and every dependent its resolvers
// report, atomically. The actor's document and the stamp-zone time are
// recorded as the modification stamp on every touched row.
func (l *Lifecycle) MarkInactive(ctx context.Context, primary Target, actorDocument string) error {
	primary.ID = strings.TrimSpace(primary.ID)
	if primary.ID == "" {
		return fmt.Errorf("%w: target id is required", ErrInvalidInput)
	}

	inactive, err := l.catalog.Resolve(ctx, status.SequenceInactive)
	if err != nil {
		return err
	}

	targets := []Target{primary}
	for _, resolve := range l.dependents[primary.Kind] {
		deps, err := resolve(ctx, primary.ID)
		if err != nil {
			return fmt.Errorf("resolve dependents for %s %s: %w", primary.Kind, primary.ID, err)
		}
		targets = append(targets, deps...)
	}

	at := l.stamper.Now()
	if err := l.store.MarkInactive(ctx, targets, inactive.ID, actorDocument, at); err != nil {
		return err
	}

	audit.LogEvent(ctx, "lifecycle.mark_inactive", map[string]any{
		"kind":       string(primary.Kind),
		"id":         primary.ID,
		"dependents": len(targets) - 1,
	})
	return nil
}
