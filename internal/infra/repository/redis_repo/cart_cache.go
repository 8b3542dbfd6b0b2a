package redis_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss 快取沒有該用戶的快照，呼叫端回 DB 讀
var ErrCacheMiss = errors.New("cart cache miss")

type ICartCache interface {
	Get(ctx context.Context, userID uint) ([]model.CartItem, error)
	Set(ctx context.Context, userID uint, items []model.CartItem) error
	Invalidate(ctx context.Context, userID uint) error
}

/*
CartCache 購物車讀取路徑的快取

整包購物車存一份 JSON 快照配 TTL，寫入路徑一律整 key 失效，
不做逐筆 patch，快取跟 DB 不會各自演化。
快取只能加速讀取，任何快取錯誤呼叫端都要 fallback 回 DB。
*/
type CartCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartCache(client *redis.Client, ttl time.Duration) *CartCache {
	return &CartCache{client: client, ttl: ttl}
}

func generateCartItemsKey(userID uint) string {
	return fmt.Sprintf("cart:%d:items", userID)
}

func (c *CartCache) Get(ctx context.Context, userID uint) ([]model.CartItem, error) {
	data, err := c.client.Get(ctx, generateCartItemsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart snapshot: %w", err)
	}

	var items []model.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		// 壞掉的快照直接丟掉，當 miss 處理
		c.client.Del(ctx, generateCartItemsKey(userID))
		return nil, ErrCacheMiss
	}
	return items, nil
}

func (c *CartCache) Set(ctx context.Context, userID uint, items []model.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	return c.client.Set(ctx, generateCartItemsKey(userID), data, c.ttl).Err()
}

func (c *CartCache) Invalidate(ctx context.Context, userID uint) error {
	return c.client.Del(ctx, generateCartItemsKey(userID)).Err()
}

var _ ICartCache = (*CartCache)(nil)
