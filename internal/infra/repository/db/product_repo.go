package db

import (
	"context"
	"errors"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"gorm.io/gorm"
)

type ProductRepoError error

var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound ProductRepoError = errors.New("product not found")
	// ErrProductStockNotEnough 商品庫存不足
	ErrProductStockNotEnough ProductRepoError = errors.New("product stock not enough")
)

type IProductRepository interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	GetProductByID(ctx context.Context, productID uint) (*model.Product, error)
	GetProductByCode(ctx context.Context, code string) (*model.Product, error)
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProductsInStock(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, product *model.Product) error
	ReserveStock(ctx context.Context, tx *gorm.DB, productID uint, quantity int) (int, error)
	ReleaseStock(ctx context.Context, tx *gorm.DB, productID uint, quantity int) error
}

type ProductRepo struct {
	db *DbDao
}

func NewProductRepo(db *DbDao) *ProductRepo {
	return &ProductRepo{db: db}
}

func (s *ProductRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

func (s *ProductRepo) GetProductByID(ctx context.Context, productID uint) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).First(&product, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductRepo) GetProductByCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductRepo) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := s.db.WithContext(ctx).Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Read - 查詢有庫存的商品
func (s *ProductRepo) GetProductsInStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := s.db.WithContext(ctx).Where("stock > 0").Find(&products).Error
	return products, err
}

// Update - 更新商品
func (s *ProductRepo) UpdateProduct(ctx context.Context, product *model.Product) error {
	return s.db.WithContext(ctx).Save(product).Error
}

/*
ReserveStock 結帳時的庫存預留，必須跑在呼叫端的交易 tx 裡，
整筆結帳 rollback 時扣庫存也一起回滾。

扣減用單一條件式 UPDATE（stock >= quantity 才生效），
靠 RowsAffected 判斷是否扣到，不做先讀後寫，避免 lost update。
回傳扣減後的剩餘庫存。

錯誤:
  - ErrProductNotFound: 商品不存在
  - ErrProductStockNotEnough: 庫存不足
*/
func (s *ProductRepo) ReserveStock(ctx context.Context, tx *gorm.DB, productID uint, quantity int) (int, error) {
	result := tx.WithContext(ctx).Model(&model.Product{}).
		Where("product_id = ? AND stock >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"total_sold": gorm.Expr("total_sold + ?", quantity),
		})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// 分辨是商品不存在還是庫存不足
		var count int64
		if err := tx.WithContext(ctx).Model(&model.Product{}).
			Where("product_id = ?", productID).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, ErrProductNotFound
		}
		return 0, ErrProductStockNotEnough
	}

	// 同一個交易內再讀一次，拿扣減後的庫存做低水位判斷
	var product model.Product
	if err := tx.WithContext(ctx).Select("stock").First(&product, "product_id = ?", productID).Error; err != nil {
		return 0, err
	}
	return int(product.Stock), nil
}

// ReleaseStock 還庫存，取消訂單等補償流程用
// total_sold 不回補，只增不減
func (s *ProductRepo) ReleaseStock(ctx context.Context, tx *gorm.DB, productID uint, quantity int) error {
	result := tx.WithContext(ctx).Model(&model.Product{}).
		Where("product_id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

var _ IProductRepository = (*ProductRepo)(nil)
