package db

import (
	"context"
	"errors"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"gorm.io/gorm"
)

type OrderRepoError error

var (
	// ErrOrderNotFound 訂單不存在
	ErrOrderNotFound OrderRepoError = errors.New("order not found")
)

type IOrderRepository interface {
	GetOrderByID(ctx context.Context, orderID string) (*model.Order, error)
	GetOrdersByUserID(ctx context.Context, userID uint) ([]model.Order, error)
	UpdateOrderState(ctx context.Context, orderID string, state uint) error
	UpdateTrackingID(ctx context.Context, orderID string, trackingID string) error
}

type OrderRepo struct {
	db *DbDao
}

func NewOrderRepo(db *DbDao) *OrderRepo {
	return &OrderRepo{db: db}
}

// Read - 根據ID查詢訂單
func (r *OrderRepo) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("OrderItems").First(&order, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Read - 根據用戶ID查詢訂單
func (r *OrderRepo) GetOrdersByUserID(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).Preload("OrderItems").
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Find(&orders).Error
	return orders, err
}

// Update - 更新訂單狀態，後續出貨/付款流程用
func (r *OrderRepo) UpdateOrderState(ctx context.Context, orderID string, state uint) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Update("state", state)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepo) UpdateTrackingID(ctx context.Context, orderID string, trackingID string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Update("tracking_id", trackingID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

var _ IOrderRepository = (*OrderRepo)(nil)
