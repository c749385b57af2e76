package recurrence

import (
	"context"
	"time"
)

// SummaryCache abstracts the cache holding recurrence-summary views.
// Get returns an error on a miss; callers treat any Get error as a miss.
type SummaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// EventPublisher publishes activity events keyed by the series root id.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// Metrics records lifecycle operations.
type Metrics interface {
	ObserveOperation(operation, outcome string, d time.Duration)
}

// SeriesLocker serializes lifecycle steps on one task across processes.
// The returned release func must be called once the step is finished.
type SeriesLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, interface{}) error { return errCacheDisabled }
func (nopCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (nopCache) Delete(context.Context, ...string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string, time.Duration) {}

type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

//Personal.AI order the ending
