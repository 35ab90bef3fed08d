package alternatives

import "errors"

// Failure kinds surfaced by Engine.Recommend. Callers tell them apart with errors.Is;
// a cancelled request surfaces the context error instead.
var (
	// ErrInvalidInput indicates a malformed request. No store call was made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the target id does not resolve to a catalog entry.
	ErrNotFound = errors.New("medicine not found")

	// ErrStoreUnavailable indicates the target lookup or the ingredient match query failed.
	ErrStoreUnavailable = errors.New("catalog store unavailable")

	// ErrStoreRequired is returned by NewEngine when no store is given.
	ErrStoreRequired = errors.New("catalog store is required")
)
