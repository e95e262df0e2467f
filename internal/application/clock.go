package application

import "time"

// Clock is injected wherever time drives a result: seasonal and shipping
// analyzers, cache expiry, outbox backoff.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Tests only.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
