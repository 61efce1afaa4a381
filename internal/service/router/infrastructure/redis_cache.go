// internal/service/router/infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"stockmesh/internal/service/router/domain"
)

const cacheKeyPrefix = "inv:cache:"

// RedisCandidateCache 是库存缓存的 Redis 实现，多实例部署时共享缓存视图。
// 每个商品一个 hash，field 为 nodeId，value 为 JSON 编码的条目。
// HSET/HDEL 本身按 field 原子，正好对上 (productId, nodeId) 的写粒度。
type RedisCandidateCache struct {
	client *redis.Client
}

func NewRedisCandidateCache(addr string) *RedisCandidateCache {
	return &RedisCandidateCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func cacheKey(productID int64) string {
	return cacheKeyPrefix + strconv.FormatInt(productID, 10)
}

func (c *RedisCandidateCache) Update(ctx context.Context, entry domain.CachedStockEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, cacheKey(entry.ProductID), entry.NodeID, raw).Err(); err != nil {
		return errors.Wrap(err, "update stock cache")
	}
	return nil
}

func (c *RedisCandidateCache) Entries(ctx context.Context, productID int64) ([]domain.CachedStockEntry, error) {
	fields, err := c.client.HGetAll(ctx, cacheKey(productID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read stock cache")
	}
	entries := make([]domain.CachedStockEntry, 0, len(fields))
	for nodeID, raw := range fields {
		var entry domain.CachedStockEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			// 坏条目直接丢弃，下一次 stock.changed 会覆盖
			_ = c.client.HDel(ctx, cacheKey(productID), nodeID).Err()
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *RedisCandidateCache) Candidates(ctx context.Context, productID int64, requiredQty int) ([]domain.CachedStockEntry, error) {
	entries, err := c.Entries(ctx, productID)
	if err != nil {
		return nil, err
	}
	return domain.FilterCandidates(entries, requiredQty), nil
}

func (c *RedisCandidateCache) Evict(ctx context.Context, productID int64, nodeID string) error {
	if err := c.client.HDel(ctx, cacheKey(productID), nodeID).Err(); err != nil {
		return errors.Wrap(err, "evict stock cache entry")
	}
	return nil
}

func (c *RedisCandidateCache) Snapshot(ctx context.Context) (map[int64][]domain.CachedStockEntry, error) {
	out := make(map[int64][]domain.CachedStockEntry)
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		productID, err := strconv.ParseInt(strings.TrimPrefix(key, cacheKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		entries, err := c.Entries(ctx, productID)
		if err != nil {
			return nil, err
		}
		out[productID] = entries
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scan stock cache")
	}
	return out, nil
}

// Ping 用于启动时确认 Redis 可达。
func (c *RedisCandidateCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}
