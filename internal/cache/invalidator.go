package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/marketplace/internal/port"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	keyAllProducts      = "products:all"
	keyShopProductsGlob = "products:shop:"
	keyProductPrefix    = "product:"
)

// Invalidator drops read-side listing caches after stock-affecting
// mutations. It is strictly best-effort: failures are logged and swallowed,
// the ledger stays authoritative.
type Invalidator struct {
	cache  port.Cache
	logger *zap.Logger
}

func NewInvalidator(cache port.Cache, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Invalidator{
		cache:  cache,
		logger: logger,
	}
}

// StockChanged invalidates the global product listing, each affected shop's
// listings and each product's detail entry.
func (i *Invalidator) StockChanged(ctx context.Context, shopIDs, productIDs []uuid.UUID) {
	if err := i.cache.Delete(ctx, keyAllProducts); err != nil {
		i.logger.Warn("cache invalidation failed", zap.String("key", keyAllProducts), zap.Error(err))
	}

	for _, shopID := range lo.Uniq(shopIDs) {
		pattern := keyShopProductsGlob + shopID.String() + ":*"
		if err := i.cache.DeletePattern(ctx, pattern); err != nil {
			i.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}

	keys := lo.Map(lo.Uniq(productIDs), func(id uuid.UUID, _ int) string {
		return keyProductPrefix + id.String()
	})
	if err := i.cache.Delete(ctx, keys...); err != nil {
		i.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
