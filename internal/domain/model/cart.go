package model

// CartItem 購物車明細
// (user_id, product_id) 唯一，重複加入同商品只會累加數量
type CartItem struct {
	CartItemID uint `gorm:"primaryKey"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_cart_user_product"`
	ProductID  uint `gorm:"not null;uniqueIndex:idx_cart_user_product"`
	Quantity   int  `gorm:"not null"`
	BaseModel       // CreatedAt 即加入購物車時間
}
