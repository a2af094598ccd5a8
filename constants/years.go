package constants

import "time"

// Default tracked arrears window (inclusive). Overridable with START_YEAR / END_YEAR.
const (
	DefaultStartYear = 2015
	DefaultEndYear   = 2024
)

// AnomalyEpsilon is the tolerated difference between a stored and a recomputed total.
const AnomalyEpsilon = "0.01"

// Extraction pacing defaults.
const (
	DefaultInterFileDelay = 1500 * time.Millisecond
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 2000 * time.Millisecond
	DefaultBackoffFactor  = 2.0
)

// ExportFilePrefix is the stem of exported file names; the date is appended.
const ExportFilePrefix = "data_tunggakan_pbb"
