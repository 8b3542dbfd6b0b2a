package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/event"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/db"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/redis_repo"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/pkg/metrics"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/pkg/util"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrCartEmpty 指定的購物車明細一筆都不存在
	ErrCartEmpty = errors.New("cart is empty")
)

// Nudger drainer 的喚醒入口，結帳 commit 後叫一下
type Nudger interface {
	Nudge()
}

type CheckoutRequest struct {
	UserID      uint
	Address     AddressDetails
	PromoCode   string
	CartItemIDs []uint
}

type ICheckoutService interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error)
}

/*
CheckoutService 結帳協調者

一筆結帳 = 一個 DB 交易：
庫存預留、訂單與明細寫入、購物車明細刪除、outbox 事件寫入，
全部一起 commit 或一起回滾。commit 前任何失敗都不留痕跡。

commit 之後的動作（快取失效、叫醒 drainer）出錯不影響結帳結果，
訂單本身是唯一真相，事件走至少一次補發。
*/
type CheckoutService struct {
	store      db.ICheckoutStore
	userRepo   db.IUserRepository
	promotions IPromotionService
	assembler  *OrderAssembler
	cache      redis_repo.ICartCache
	drainer    Nudger
	thresholds map[int]struct{}
	metrics    *metrics.CheckoutMetrics
	logger     zerolog.Logger
}

func NewCheckoutService(
	store db.ICheckoutStore,
	userRepo db.IUserRepository,
	promotions IPromotionService,
	assembler *OrderAssembler,
	cache redis_repo.ICartCache,
	drainer Nudger,
	lowStockThresholds []int,
	m *metrics.CheckoutMetrics,
	logger zerolog.Logger,
) *CheckoutService {
	thresholds := make(map[int]struct{}, len(lowStockThresholds))
	for _, t := range lowStockThresholds {
		thresholds[t] = struct{}{}
	}
	return &CheckoutService{
		store:      store,
		userRepo:   userRepo,
		promotions: promotions,
		assembler:  assembler,
		cache:      cache,
		drainer:    drainer,
		thresholds: thresholds,
		metrics:    m,
		logger:     logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, error) {
	// 用戶資料只拿來填確認信 payload，身分驗證在上游做完了
	user, err := s.userRepo.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(err)
	}

	var order *model.Order
	err = s.store.InTransaction(ctx, func(tx db.CheckoutTx) error {
		items, err := tx.GetCartItems(ctx, req.UserID, req.CartItemIDs)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrCartEmpty
		}

		// 逐筆預留庫存，照購物車明細順序
		// 第一筆不足就回傳，整個交易回滾，前面扣掉的也一起還原
		rawTotal := decimal.Zero
		lines := make([]PricedLine, 0, len(items))
		var lowStock []event.LowStock
		for _, item := range items {
			product, err := tx.GetProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}

			remaining, err := tx.ReserveStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("reserve product %d: %w", item.ProductID, err)
			}

			// 剩餘量剛好踩到水位才通知，高於或穿過都不算
			if _, hit := s.thresholds[remaining]; hit {
				lowStock = append(lowStock, event.LowStock{
					ProductId: int(item.ProductID),
					CurrStock: remaining,
				})
			}

			lineAmount := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			lines = append(lines, PricedLine{
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				UnitPrice:  product.Price,
				LineAmount: lineAmount,
			})
			rawTotal = rawTotal.Add(lineAmount)
		}

		finalTotal, promotionID, err := s.promotions.Apply(ctx, req.PromoCode, rawTotal)
		if err != nil {
			return err
		}

		order = s.assembler.Assemble(req.UserID, req.Address, lines, rawTotal, finalTotal, promotionID)
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		if err := tx.DeleteCartItems(ctx, req.UserID, req.CartItemIDs); err != nil {
			return err
		}

		// 事件跟訂單同一個交易落庫，rollback 時一起消失
		confirmation := event.OrderConfirmation{
			UserName:      user.UserName,
			OrderDate:     event.FormatOrderDate(order.OrderDate),
			Price:         order.FinalAmount.InexactFloat64(),
			OrderId:       order.OrderID,
			Email:         user.UserEmail,
			StreetAddress: order.StreetAddress,
			PhoheNumber:   order.PhoneNumber,
			City:          order.City,
			PostalCode:    order.PostalCode,
		}
		if err := s.insertOutbox(ctx, tx, event.TopicOrderConfirmations, order.OrderID, confirmation); err != nil {
			return err
		}
		for _, ls := range lowStock {
			if err := s.insertOutbox(ctx, tx, event.TopicLowStock, strconv.Itoa(ls.ProductId), ls); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	// commit 成功之後都是 best effort，結帳結果不許再翻盤
	if err := s.cache.Invalidate(ctx, req.UserID); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", req.UserID).Msg("cart cache invalidate failed after checkout")
	}
	if s.drainer != nil {
		s.drainer.Nudge()
	}
	if s.metrics != nil {
		s.metrics.CheckoutTotal.WithLabelValues("success").Inc()
	}

	s.logger.Info().
		Str("order_id", order.OrderID).
		Uint("user_id", req.UserID).
		Str("final_amount", order.FinalAmount.String()).
		Msg("checkout committed")
	return order, nil
}

func (s *CheckoutService) insertOutbox(ctx context.Context, tx db.CheckoutTx, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.InsertOutbox(ctx, &model.OutboxMessage{
		EventID: util.GenerateEventID(),
		Topic:   topic,
		Key:     key,
		Payload: data,
	})
}

func (s *CheckoutService) fail(err error) error {
	if s.metrics != nil {
		s.metrics.CheckoutTotal.WithLabelValues(failureReason(err)).Inc()
	}
	return err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, db.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, db.ErrCartItemNotFound):
		return "cart_item_not_found"
	case errors.Is(err, db.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, db.ErrProductStockNotEnough):
		return "insufficient_stock"
	case errors.Is(err, db.ErrPromotionNotFound):
		return "promotion_not_found"
	case errors.Is(err, ErrPromotionExpired):
		return "promotion_expired"
	default:
		return "persistence_error"
	}
}

var _ ICheckoutService = (*CheckoutService)(nil)
