package status_test

import (
	"context"
	"errors"
	"testing"

	"registra.org/internal/status"
	"registra.org/internal/store/mem"
)

func TestResolveMissingLifecycleStatusIsCorrupt(t *testing.T) {
	catalog, err := status.NewCatalog(mem.New())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	_, err = catalog.Resolve(context.Background(), status.SequenceActive)
	if !errors.Is(err, status.ErrCatalogCorrupt) {
		t.Fatalf("err = %v, want ErrCatalogCorrupt", err)
	}
	_, err = catalog.Resolve(context.Background(), status.SequenceInactive)
	if !errors.Is(err, status.ErrCatalogCorrupt) {
		t.Fatalf("err = %v, want ErrCatalogCorrupt", err)
	}
}

func TestResolveUnknownSequencePassesThrough(t *testing.T) {
	catalog, _ := status.NewCatalog(mem.New())
	_, err := catalog.Resolve(context.Background(), status.Sequence(7))
	if !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if errors.Is(err, status.ErrCatalogCorrupt) {
		t.Fatal("unexpected corrupt classification for optional sequence")
	}
}

func TestResolveReturnsSeededRecord(t *testing.T) {
	store := mem.New()
	store.AddStatus(status.Record{ID: "st-act", Sequence: status.SequenceActive, Name: "Activo"})
	store.AddStatus(status.Record{ID: "st-ina", Sequence: status.SequenceInactive, Name: "Inactivo"})
	catalog, _ := status.NewCatalog(store)

	rec, err := catalog.Resolve(context.Background(), status.SequenceActive)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.ID != "st-act" || rec.Name != "Activo" {
		t.Fatalf("unexpected record %+v", rec)
	}

	list, err := catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Sequence != status.SequenceActive {
		t.Fatalf("unexpected list %+v", list)
	}
}
