package domain

import "errors"

// Error taxonomy shared by every adapter and the pipeline. Adapters wrap these
// with context; callers match with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrInvalidInput        = errors.New("invalid input")
	ErrScoringUnavailable  = errors.New("scoring unavailable")
	ErrDuplicateURL        = errors.New("duplicate url")
	ErrStoreUnavailable    = errors.New("store unavailable")
)
