package cache

import (
	"context"
	"time"

	"github.com/nikolayk812/marketplace/internal/port"
)

type nopCache struct{}

// NewNop returns a cache that stores nothing, for deployments without Redis.
func NewNop() port.Cache {
	return nopCache{}
}

func (nopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (nopCache) Set(context.Context, string, string, time.Duration) error { return nil }

func (nopCache) Delete(context.Context, ...string) error { return nil }

func (nopCache) DeletePattern(context.Context, string) error { return nil }

func (nopCache) IncrementWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}
