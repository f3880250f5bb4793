// Package status resolves lifecycle status records by their stable sequence
// code so that nothing outside the storage layer depends on a status row id.
package status

import (
	"context"
	"errors"
	"fmt"

	"registra.org/internal/audit"
)

// Sequence is the stable code a status row is addressed by. Row ids are
// deployment-specific; sequence codes are not.
type Sequence int

const (
	SequenceActive   Sequence = 1
	SequenceInactive Sequence = 2
)

var (
	ErrNotFound = errors.New("status: not found")

	// ErrCatalogCorrupt means a required sequence code has no row. The
	// catalog cannot operate without both lifecycle statuses seeded.
	ErrCatalogCorrupt = errors.New("status: catalog missing required sequence code")
)

type Record struct {
	ID          string   `json:"id"`
	Sequence    Sequence `json:"sequence"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	audit.Fields
}

type Store interface {
	StatusBySequence(ctx context.Context, seq Sequence) (Record, error)
	FindStatus(ctx context.Context, id string) (Record, error)
	ListStatuses(ctx context.Context) ([]Record, error)
}

type Catalog struct {
	store Store
}

func NewCatalog(store Store) (*Catalog, error) {
	if store == nil {
		return nil, errors.New("status: store is required")
	}
	return &Catalog{store: store}, nil
}

// Resolve maps a sequence code to its status record. A missing row for one of
// the required lifecycle codes is reported as ErrCatalogCorrupt.
func (c *Catalog) Resolve(ctx context.Context, seq Sequence) (Record, error) {
	rec, err := c.store.StatusBySequence(ctx, seq)
	if errors.Is(err, ErrNotFound) {
		if seq == SequenceActive || seq == SequenceInactive {
			return Record{}, fmt.Errorf("%w: sequence %d", ErrCatalogCorrupt, seq)
		}
		return Record{}, err
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (c *Catalog) Find(ctx context.Context, id string) (Record, error) {
	return c.store.FindStatus(ctx, id)
}

func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	return c.store.ListStatuses(ctx)
}
