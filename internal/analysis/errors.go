package analysis

import "errors"

// ErrInsufficientData indicates a series too short or too degenerate to analyse.
var ErrInsufficientData = errors.New("analysis: insufficient data")
