package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type CallerStore interface {
	// FindCallerByDocument returns ErrNotFound when no caller carries the
	// document number.
	FindCallerByDocument(ctx context.Context, document string) (Caller, error)
	FindCaller(ctx context.Context, id string) (Caller, error)
}

type RoleStore interface {
	FindRole(ctx context.Context, id string) (Role, error)
}

// Resolver turns verified token claims into the caller record they belong
// to. The document number is the lookup key; nothing else in the claims is
// trusted for identity.
type Resolver struct {
	callers CallerStore
}

func NewResolver(callers CallerStore) (*Resolver, error) {
	if callers == nil {
		return nil, errors.New("auth: caller store is required")
	}
	return &Resolver{callers: callers}, nil
}

func (r *Resolver) Resolve(ctx context.Context, claims *Claims) (Caller, error) {
	if claims == nil {
		return Caller{}, fmt.Errorf("%w: claims are required", ErrInvalidInput)
	}
	document := strings.TrimSpace(claims.Document)
	if document == "" {
		return Caller{}, ErrCallerNotFound
	}
	caller, err := r.callers.FindCallerByDocument(ctx, document)
	if errors.Is(err, ErrNotFound) {
		return Caller{}, ErrCallerNotFound
	}
	if err != nil {
		return Caller{}, err
	}
	return caller, nil
}

// Aggregator expands role ids into display descriptions. The output is
// informational only and never feeds an authorization decision.
type Aggregator struct {
	roles RoleStore
}

func NewAggregator(roles RoleStore) (*Aggregator, error) {
	if roles == nil {
		return nil, errors.New("auth: role store is required")
	}
	return &Aggregator{roles: roles}, nil
}

// Describe preserves the input order, keeps duplicates, and silently skips
// ids with no matching role.
func (a *Aggregator) Describe(ctx context.Context, roleIDs []string) ([]string, error) {
	var out []string
	for _, id := range roleIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		role, err := a.roles.FindRole(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		desc := role.Description
		if desc == "" {
			desc = role.Name
		}
		out = append(out, desc)
	}
	return out, nil
}
