package db

import (
	"context"
	"errors"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepoError error

var (
	// ErrCartItemNotFound 購物車明細不存在或不屬於該用戶
	ErrCartItemNotFound CartRepoError = errors.New("cart item not found")
)

type ICartRepository interface {
	UpsertItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error)
	GetItem(ctx context.Context, cartItemID, userID uint) (*model.CartItem, error)
	GetItemsByUser(ctx context.Context, userID uint) ([]model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID, userID uint, quantity int) error
	DeleteItem(ctx context.Context, cartItemID, userID uint) error
}

type CartRepo struct {
	db *DbDao
}

func NewCartRepo(db *DbDao) *CartRepo {
	return &CartRepo{db: db}
}

// UpsertItem 加入購物車
// (user_id, product_id) 撞到唯一索引時改累加數量，不產生重複明細
func (r *CartRepo) UpsertItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}

	// upsert 走到 update 分支時 item 裡的值是舊的，重讀一次
	var saved model.CartItem
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
		First(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *CartRepo) GetItem(ctx context.Context, cartItemID, userID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_item_id = ? AND user_id = ?", cartItemID, userID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CartRepo) GetItemsByUser(ctx context.Context, userID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("cart_item_id").
		Find(&items).Error
	return items, err
}

func (r *CartRepo) UpdateQuantity(ctx context.Context, cartItemID, userID uint, quantity int) error {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("cart_item_id = ? AND user_id = ?", cartItemID, userID).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// DeleteItem 用戶歸屬檢查靠 where 條件 + RowsAffected，不屬於該用戶視同不存在
// 購物車明細一律硬刪除，軟刪除的殘留列會卡住 (user_id, product_id) 唯一索引
func (r *CartRepo) DeleteItem(ctx context.Context, cartItemID, userID uint) error {
	result := r.db.WithContext(ctx).Unscoped().
		Where("cart_item_id = ? AND user_id = ?", cartItemID, userID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

var _ ICartRepository = (*CartRepo)(nil)
