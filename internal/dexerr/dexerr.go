// Package dexerr defines the error taxonomy shared across the engine.
//
// Per-record parse failures (a malformed offer, a malformed transaction) are
// handled locally by dropping the record and are never wrapped in these
// sentinels — a single bad ledger record must not fail a whole response.
// These sentinels classify whole-operation outcomes for HTTP mapping.
package dexerr

import "errors"

var (
	// ErrInvalidInput indicates malformed request parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates an absent pair, pool, or account.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamQuery indicates the ledger or path finder was unreachable
	// or returned an error for the whole operation.
	ErrUpstreamQuery = errors.New("upstream query failed")

	// ErrMissingIssuer indicates a non-native asset was used without an
	// issuer address.
	ErrMissingIssuer = errors.New("issuer required for non-native asset")

	// ErrInvalidAmount indicates an amount that does not round to a
	// positive value at wire precision.
	ErrInvalidAmount = errors.New("amount must round to a positive value")

	// ErrExceededBudget indicates a pagination walk hit its page or time
	// budget before completing.
	ErrExceededBudget = errors.New("history pagination budget exceeded")
)
