// Package sentinel holds infrastructure facts returned by stores.
//
// Stores return these (optionally wrapped with fmt.Errorf("...: %w")) and
// services translate them into coded domain errors:
//   - ErrNotFound: record or stream does not exist
//   - ErrConflict: optimistic version check failed or unique key taken
//   - ErrExpired: verification code or request is past its TTL
//   - ErrAlreadyUsed: single-use verification code was consumed
//   - ErrMismatch: presented secret did not match the stored one
//   - ErrInvalidState: record is in the wrong state for the transition
//   - ErrUnavailable: backing service temporarily unreachable
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrMismatch     = errors.New("mismatch")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
