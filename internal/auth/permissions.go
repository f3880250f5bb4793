package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Operation enumerates the four gated operation kinds a permission row can
// grant.
type Operation int

const (
	OpQuery Operation = iota
	OpCreate
	OpUpdate
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpQuery:
		return "query"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// ViewPermission carries one caller's operation flags for one view. The zero
// value denies everything.
type ViewPermission struct {
	CallerID  string `json:"caller_id"`
	View      string `json:"view"`
	CanQuery  bool   `json:"can_query"`
	CanCreate bool   `json:"can_create"`
	CanUpdate bool   `json:"can_update"`
	CanDelete bool   `json:"can_delete"`
}

func (p ViewPermission) Allows(op Operation) bool {
	switch op {
	case OpQuery:
		return p.CanQuery
	case OpCreate:
		return p.CanCreate
	case OpUpdate:
		return p.CanUpdate
	case OpDelete:
		return p.CanDelete
	default:
		return false
	}
}

type PermissionStore interface {
	// ViewPermissionFor returns the single row for (caller, view), or
	// ErrNotFound when no row exists.
	ViewPermissionFor(ctx context.Context, callerID, view string) (ViewPermission, error)
}

// Gate answers whether a caller may perform an operation on a view. Absence
// of a permission row is an ordinary deny, not an error.
type Gate struct {
	store PermissionStore
}

func NewGate(store PermissionStore) (*Gate, error) {
	if store == nil {
		return nil, errors.New("auth: permission store is required")
	}
	return &Gate{store: store}, nil
}

// Check returns the caller's permission row for the view. A missing row comes
// back as an all-deny row with a nil error.
func (g *Gate) Check(ctx context.Context, callerID, view string) (ViewPermission, error) {
	callerID = strings.TrimSpace(callerID)
	view = strings.TrimSpace(view)
	if callerID == "" || view == "" {
		return ViewPermission{}, fmt.Errorf("%w: caller id and view are required", ErrInvalidInput)
	}
	perm, err := g.store.ViewPermissionFor(ctx, callerID, view)
	if errors.Is(err, ErrNotFound) {
		return ViewPermission{CallerID: callerID, View: view}, nil
	}
	if err != nil {
		return ViewPermission{}, err
	}
	return perm, nil
}

// Authorize returns ErrPermissionDenied unless the caller's row grants op.
func (g *Gate) Authorize(ctx context.Context, callerID, view string, op Operation) error {
	perm, err := g.Check(ctx, callerID, view)
	if err != nil {
		return err
	}
	if !perm.Allows(op) {
		return fmt.Errorf("%w: %s on %s", ErrPermissionDenied, op, view)
	}
	return nil
}
