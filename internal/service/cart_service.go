package service

import (
	"context"
	"errors"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/db"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/redis_repo"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidQuantity 數量必須 >= 1
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrQuantityFloor 數量已經是 1，要移除請走 RemoveItem
	ErrQuantityFloor = errors.New("quantity already at minimum, remove the item instead")
)

type ICartService interface {
	AddItem(ctx context.Context, userID, productID uint, quantity int) (*model.CartItem, error)
	RemoveItem(ctx context.Context, cartItemID, userID uint) error
	ListItems(ctx context.Context, userID uint) ([]model.CartItem, error)
	SetQuantity(ctx context.Context, cartItemID, userID uint, quantity int) error
	IncreaseQuantity(ctx context.Context, cartItemID, userID uint) error
	DecreaseQuantity(ctx context.Context, cartItemID, userID uint) error
	InvalidateCache(ctx context.Context, userID uint)
}

/*
CartService 購物車

寫入路徑：寫 DB 成功後整 key 失效快取，失效失敗只記 log，
下一次讀取會回 DB 補快照，不會讀到舊資料卡死。
快取的失效只在這層做，外部拿不到快取的寫入口。
*/
type CartService struct {
	cartRepo    db.ICartRepository
	productRepo db.IProductRepository
	cache       redis_repo.ICartCache
	metrics     *metrics.CheckoutMetrics
	logger      zerolog.Logger
}

func NewCartService(cartRepo db.ICartRepository, productRepo db.IProductRepository, cache redis_repo.ICartCache, m *metrics.CheckoutMetrics, logger zerolog.Logger) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cache:       cache,
		metrics:     m,
		logger:      logger,
	}
}

// AddItem 同商品已在車上就累加數量，不產生第二筆明細
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	// 商品要存在才能加
	if _, err := s.productRepo.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}

	item, err := s.cartRepo.UpsertItem(ctx, &model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateCache(ctx, userID)
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartItemID, userID uint) error {
	if err := s.cartRepo.DeleteItem(ctx, cartItemID, userID); err != nil {
		return err
	}
	s.InvalidateCache(ctx, userID)
	return nil
}

// ListItems cache-aside 讀取
// 快取出任何錯都當 miss，回 DB 讀再補快照，快取永遠不在正確性路徑上
func (s *CartService) ListItems(ctx context.Context, userID uint) ([]model.CartItem, error) {
	items, err := s.cache.Get(ctx, userID)
	if err == nil {
		s.countCache("hit")
		return items, nil
	}
	if errors.Is(err, redis_repo.ErrCacheMiss) {
		s.countCache("miss")
	} else {
		s.countCache("bypass")
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("cart cache bypassed")
	}

	items, err = s.cartRepo.GetItemsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, userID, items); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("cart cache repopulate failed")
	}
	return items, nil
}

func (s *CartService) SetQuantity(ctx context.Context, cartItemID, userID uint, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if err := s.cartRepo.UpdateQuantity(ctx, cartItemID, userID, quantity); err != nil {
		return err
	}
	s.InvalidateCache(ctx, userID)
	return nil
}

func (s *CartService) IncreaseQuantity(ctx context.Context, cartItemID, userID uint) error {
	item, err := s.cartRepo.GetItem(ctx, cartItemID, userID)
	if err != nil {
		return err
	}
	return s.SetQuantity(ctx, cartItemID, userID, item.Quantity+1)
}

// DecreaseQuantity 減到 1 為止，再往下減回錯誤
// 到 0 要不要自動移除是產品決策，這裡不替產品做決定
func (s *CartService) DecreaseQuantity(ctx context.Context, cartItemID, userID uint) error {
	item, err := s.cartRepo.GetItem(ctx, cartItemID, userID)
	if err != nil {
		return err
	}
	if item.Quantity <= 1 {
		return ErrQuantityFloor
	}
	return s.SetQuantity(ctx, cartItemID, userID, item.Quantity-1)
}

func (s *CartService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheRequests.WithLabelValues(result).Inc()
	}
}

// InvalidateCache 失效失敗只記 log，不影響呼叫端
func (s *CartService) InvalidateCache(ctx context.Context, userID uint) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("cart cache invalidate failed")
	}
}

var _ ICartService = (*CartService)(nil)
