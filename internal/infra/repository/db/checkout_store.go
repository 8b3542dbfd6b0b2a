package db

import (
	"context"
	"errors"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"gorm.io/gorm"
)

// CheckoutTx 結帳交易內可用的操作
// 同一個交易物件貫穿整筆結帳，任何一步失敗全部回滾
type CheckoutTx interface {
	GetCartItems(ctx context.Context, userID uint, cartItemIDs []uint) ([]model.CartItem, error)
	GetProduct(ctx context.Context, productID uint) (*model.Product, error)
	ReserveStock(ctx context.Context, productID uint, quantity int) (int, error)
	CreateOrder(ctx context.Context, order *model.Order) error
	DeleteCartItems(ctx context.Context, userID uint, cartItemIDs []uint) error
	InsertOutbox(ctx context.Context, msg *model.OutboxMessage) error
}

type ICheckoutStore interface {
	InTransaction(ctx context.Context, fn func(tx CheckoutTx) error) error
}

type CheckoutStore struct {
	db          *DbDao
	productRepo *ProductRepo
	outboxRepo  *OutboxRepo
}

func NewCheckoutStore(db *DbDao, productRepo *ProductRepo, outboxRepo *OutboxRepo) *CheckoutStore {
	return &CheckoutStore{db: db, productRepo: productRepo, outboxRepo: outboxRepo}
}

// InTransaction fn 回傳 error 就整筆 rollback，gorm 會自動處理
func (s *CheckoutStore) InTransaction(ctx context.Context, fn func(tx CheckoutTx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&checkoutTx{tx: tx, store: s})
	})
}

type checkoutTx struct {
	tx    *gorm.DB
	store *CheckoutStore
}

func (t *checkoutTx) GetCartItems(ctx context.Context, userID uint, cartItemIDs []uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := t.tx.WithContext(ctx).
		Where("user_id = ? AND cart_item_id IN ?", userID, cartItemIDs).
		Order("cart_item_id").
		Find(&items).Error
	return items, err
}

func (t *checkoutTx) GetProduct(ctx context.Context, productID uint) (*model.Product, error) {
	var product model.Product
	err := t.tx.WithContext(ctx).First(&product, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (t *checkoutTx) ReserveStock(ctx context.Context, productID uint, quantity int) (int, error) {
	return t.store.productRepo.ReserveStock(ctx, t.tx, productID, quantity)
}

// CreateOrder Order 跟 OrderItems 靠 gorm association 一起寫入
func (t *checkoutTx) CreateOrder(ctx context.Context, order *model.Order) error {
	return t.tx.WithContext(ctx).Create(order).Error
}

func (t *checkoutTx) DeleteCartItems(ctx context.Context, userID uint, cartItemIDs []uint) error {
	return t.tx.WithContext(ctx).Unscoped().
		Where("user_id = ? AND cart_item_id IN ?", userID, cartItemIDs).
		Delete(&model.CartItem{}).Error
}

func (t *checkoutTx) InsertOutbox(ctx context.Context, msg *model.OutboxMessage) error {
	return t.store.outboxRepo.Insert(ctx, t.tx, msg)
}

var _ ICheckoutStore = (*CheckoutStore)(nil)
