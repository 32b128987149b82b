// Package common defines shared constants and sentinel errors used across
// client and server layers of PhantomChat. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors (username/password format policy).
	ErrorInvalidFormat = errors.New("invalid format")

	// Handshake errors (malformed or out-of-range peer public value,
	// digest failure). Fatal to the session.
	ErrorHandshake = errors.New("handshake failed")

	// Secure-channel errors (corrupt or forged wire token). The offending
	// message is dropped; the session survives.
	ErrorDecode = errors.New("decode failed")

	// Router errors.
	ErrorConflict    = errors.New("username already registered")
	ErrorUserOffline = errors.New("user offline")
)
