package models

import "errors"

// Pipeline halt conditions.
var (
	ErrEmptyUniverse        = errors.New("universe source returned no usable equities")
	ErrBenchmarkUnavailable = errors.New("benchmark has no price data for the window")
	ErrNoDataForTarget      = errors.New("no return data for target date")
)

// ErrSymbolNotFound is returned by clients when a source has no data for a symbol.
// Callers treat it as omission, not failure.
var ErrSymbolNotFound = errors.New("symbol not found")
