package memory

import (
	"github.com/vsavik/url-shortener/adapters"
)

// Sentinel errors for the in-memory log, aliased from the adapters package
// so errors.Is works across packages.
var (
	ErrAdapterClosed       = adapters.ErrAdapterClosed
	ErrEmptyStreamID       = adapters.ErrEmptyStreamID
	ErrNoEvents            = adapters.ErrNoEvents
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict
	ErrStreamNotFound      = adapters.ErrStreamNotFound
	ErrInvalidVersion      = adapters.ErrInvalidVersion
)

// NewStreamNotFoundError is an alias for adapters.NewStreamNotFoundError.
var NewStreamNotFoundError = adapters.NewStreamNotFoundError
