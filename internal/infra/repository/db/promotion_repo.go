package db

import (
	"context"
	"errors"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"gorm.io/gorm"
)

type PromotionRepoError error

var (
	// ErrPromotionNotFound 折扣碼不存在
	ErrPromotionNotFound PromotionRepoError = errors.New("promotion not found")
)

type IPromotionRepository interface {
	CreatePromotion(ctx context.Context, promotion *model.Promotion) error
	GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error)
	GetAllPromotions(ctx context.Context) ([]model.Promotion, error)
}

type PromotionRepo struct {
	db *DbDao
}

func NewPromotionRepo(db *DbDao) *PromotionRepo {
	return &PromotionRepo{db: db}
}

func (r *PromotionRepo) CreatePromotion(ctx context.Context, promotion *model.Promotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

func (r *PromotionRepo) GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error) {
	var promotion model.Promotion
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&promotion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromotionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *PromotionRepo) GetAllPromotions(ctx context.Context) ([]model.Promotion, error) {
	var promotions []model.Promotion
	err := r.db.WithContext(ctx).Find(&promotions).Error
	return promotions, err
}

var _ IPromotionRepository = (*PromotionRepo)(nil)
