package xemm

import "github.com/pkg/errors"

// ErrConfiguration marks a fatal, construction-time configuration error.
// Callers should refuse to start the strategy.
var ErrConfiguration = errors.New("xemm: invalid configuration")

func errConfig(msg string) error {
	return errors.Wrap(ErrConfiguration, msg)
}

// ErrUnknownOrder names the error kind for an id the tracker never saw,
// or one that aged out of the shadow-keep-alive window. PairTracker.Lookup
// reports that case as ok=false rather than returning this error; it is
// the expected path for events outside the strategy's universe.
var ErrUnknownOrder = errors.New("xemm: unknown order id")
