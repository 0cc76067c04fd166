// Package sessionkit manages the credential and session lifecycle of user
// accounts: signup with email verification, password sign-in issuing JWT
// access and refresh credentials, sign-out through a Redis denylist,
// non-rotating refresh, and forced-reset account recovery. Every sensitive
// action is gated by a Redis fixed-window quota.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// sessionkit is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and value types. Accounts live behind [AccountDirectory]
// and mail goes out through [Notifier]; both are supplied by the caller
// (see directory/ and notify/ for implementations).
//
// # Errors
//
// Every operation returns nil, an error matching one of [ErrConflict],
// [ErrNotFound], [ErrInvalidToken], [ErrExpired], [ErrBadRequest] or
// [ErrRateLimited], or an internal fault matching [ErrUnavailable]. Client
// errors carry a caller-facing message; internal faults are logged and carry
// no detail worth showing.
//
// # Known limitations
//
// Verification credentials can be replayed until they expire, and refresh
// credentials are not rotated.
package sessionkit
