package contracts

import "errors"

// Error kinds shared across the prediction pipeline.
// Callers distinguish them with errors.Is; components wrap them with context.
var (
	// ErrDataUnavailable means the price series could not be fetched. Fatal.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientHistory means fewer rows than a window or min_train_size requires.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInsufficientData means fewer than 2 supervised rows remain after target construction.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrZeroVariance means a metric denominator is zero and the result would be NaN/Inf.
	ErrZeroVariance = errors.New("zero variance")

	// ErrInvalidSeries means a series breaks its ordering invariant.
	ErrInvalidSeries = errors.New("invalid series")

	// ErrInvalidRange means the requested date range is malformed.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrSourceDegraded marks a sentiment source that failed or returned nothing. Non-fatal.
	ErrSourceDegraded = errors.New("source degraded")

	// ErrSchemaMismatch marks a source whose records fail canonical validation.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
