// Package common defines shared constants and sentinel errors used across
// the address book server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthenticated = errors.New("unauthenticated")

	// Account lifecycle errors.
	ErrAlreadyExists = errors.New("already exists")
	ErrNotConfirmed  = errors.New("email not confirmed")
	ErrBadCredential = errors.New("invalid password")
	ErrVerification  = errors.New("verification error")

	// Token errors (malformed, expired, bad signature or wrong purpose).
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidScope = errors.New("invalid scope for token")

	// Session errors (refresh token mismatch or reuse after rotation).
	ErrInvalidSession = errors.New("invalid refresh token")
)
