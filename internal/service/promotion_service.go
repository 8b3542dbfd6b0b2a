package service

import (
	"context"
	"errors"
	"time"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/db"
	"github.com/shopspring/decimal"
)

var (
	// ErrPromotionExpired 折扣碼不在活動期間
	ErrPromotionExpired = errors.New("promotion expired")
	// ErrInvalidDiscount 折扣百分比必須落在 (0, 100]
	ErrInvalidDiscount = errors.New("discount percent must be in (0, 100]")
)

type IPromotionService interface {
	Apply(ctx context.Context, code string, rawTotal decimal.Decimal) (decimal.Decimal, *uint, error)
	CreatePromotion(ctx context.Context, promotion *model.Promotion) error
	GetAllPromotions(ctx context.Context) ([]model.Promotion, error)
}

type PromotionService struct {
	promotionRepo db.IPromotionRepository
	now           func() time.Time // 測試注入
}

func NewPromotionService(promotionRepo db.IPromotionRepository) *PromotionService {
	return &PromotionService{promotionRepo: promotionRepo, now: time.Now}
}

// NewPromotionServiceWithClock 測試用固定時鐘
func NewPromotionServiceWithClock(promotionRepo db.IPromotionRepository, now func() time.Time) *PromotionService {
	return &PromotionService{promotionRepo: promotionRepo, now: now}
}

var hundred = decimal.NewFromInt(100)

/*
Apply 折扣碼套用

空碼表示沒用折扣，原價原樣回傳。
折扣只套在折扣前的小計一次，不複利。
回傳折扣後金額跟 promotionID。

錯誤:
  - db.ErrPromotionNotFound: 折扣碼不存在
  - ErrPromotionExpired: 不在 [StartDate, EndDate] 區間
*/
func (s *PromotionService) Apply(ctx context.Context, code string, rawTotal decimal.Decimal) (decimal.Decimal, *uint, error) {
	if code == "" {
		return rawTotal, nil, nil
	}

	promotion, err := s.promotionRepo.GetPromotionByCode(ctx, code)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}

	if !promotion.IsActive(s.now()) {
		return decimal.Decimal{}, nil, ErrPromotionExpired
	}

	final := rawTotal.Mul(hundred.Sub(promotion.DiscountPercent)).Div(hundred)
	// 折扣不會把金額打到負的
	if final.IsNegative() {
		final = decimal.Zero
	}

	id := promotion.PromotionID
	return final, &id, nil
}

func (s *PromotionService) CreatePromotion(ctx context.Context, promotion *model.Promotion) error {
	// Apply 的零底線只是保險，不合法的折扣根本不該進 DB
	if !promotion.DiscountPercent.IsPositive() || promotion.DiscountPercent.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	return s.promotionRepo.CreatePromotion(ctx, promotion)
}

func (s *PromotionService) GetAllPromotions(ctx context.Context) ([]model.Promotion, error) {
	return s.promotionRepo.GetAllPromotions(ctx)
}

var _ IPromotionService = (*PromotionService)(nil)
