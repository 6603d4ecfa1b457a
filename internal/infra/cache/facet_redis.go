package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const facetKey = "storefront:facets:v1"

// フィルタ選択肢をRedisに置く。価格は入れない
type FacetRedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFacetRedisCache(rdb *redis.Client, ttl time.Duration) *FacetRedisCache {
	return &FacetRedisCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient はREDIS_URLからクライアントを作る
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return rdb, nil
}

func (c *FacetRedisCache) Get(ctx context.Context) (model.Facets, bool, error) {
	raw, err := c.rdb.Get(ctx, facetKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Facets{}, false, nil
	}
	if err != nil {
		return model.Facets{}, false, errors.Wrap(err, "get facets")
	}

	var f model.Facets
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.Facets{}, false, errors.Wrap(err, "decode facets")
	}
	return f, true, nil
}

func (c *FacetRedisCache) Set(ctx context.Context, f model.Facets) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "encode facets")
	}
	if err := c.rdb.Set(ctx, facetKey, raw, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "set facets")
	}
	return nil
}

// Redis未設定のときに使う
type NopFacetCache struct{}

func (NopFacetCache) Get(context.Context) (model.Facets, bool, error) { return model.Facets{}, false, nil }
func (NopFacetCache) Set(context.Context, model.Facets) error         { return nil }

var (
	_ repo.FacetCache = (*FacetRedisCache)(nil)
	_ repo.FacetCache = NopFacetCache{}
)
