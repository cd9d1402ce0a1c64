package repository

import "errors"

// Sentinel errors shared across data providers and the ledger.
var (
	// ErrDataUnavailable indicates the upstream source returned nothing
	// usable for the requested symbol/timeframe.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrStoreFailure indicates the ledger persisted state could not be
	// read or written.
	ErrStoreFailure = errors.New("signal store failure")
)
