package prometheus

import (
	"context"
	"time"
)

// Cache is the shape of the summary cache the service uses.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Publisher is the shape of the activity event publisher.
type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// InstrumentCache counts hits and misses on c.
func InstrumentCache(c Cache, m *AppMetrics) Cache {
	return &meteredCache{next: c, metrics: m}
}

type meteredCache struct {
	next    Cache
	metrics *AppMetrics
}

func (c *meteredCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := c.next.Get(ctx, key, dest)
	RecordCacheAccess(c.metrics, err == nil)
	return err
}

func (c *meteredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.next.Set(ctx, key, value, ttl)
}

func (c *meteredCache) Delete(ctx context.Context, keys ...string) error {
	return c.next.Delete(ctx, keys...)
}

// InstrumentPublisher counts publish outcomes on p.
func InstrumentPublisher(p Publisher, m *AppMetrics) Publisher {
	return &meteredPublisher{next: p, metrics: m}
}

type meteredPublisher struct {
	next    Publisher
	metrics *AppMetrics
}

func (p *meteredPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	err := p.next.Publish(ctx, key, event)
	RecordPublish(p.metrics, err)
	return err
}

//Personal.AI order the ending
