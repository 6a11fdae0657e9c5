package domain

import "github.com/pkg/errors"

// ErrNoData signals that zero usable instruments survived loading and
// filtering. Every downstream operation assumes at least one valid series,
// so this is fatal to the run.
var ErrNoData = errors.New("no usable instrument data loaded")

// ErrInsufficientData signals fewer observations than the statistical
// minimum for a requested computation. Most callers recover by returning a
// neutral default; Monte Carlo treats it as fatal.
var ErrInsufficientData = errors.New("insufficient data for computation")
