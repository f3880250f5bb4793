package auth

import "errors"

var (
	// ErrCallerNotFound means token claims named a document number with no
	// matching caller record.
	ErrCallerNotFound = errors.New("auth: caller not found")

	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrInvalidInput     = errors.New("auth: invalid input")
	ErrPermissionDenied = errors.New("auth: permission denied")
	ErrNotFound         = errors.New("auth: not found")
)
