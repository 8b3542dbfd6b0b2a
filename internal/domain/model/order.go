package model

import (
	"time"

	"github.com/shopspring/decimal"
)

/*
state:

	OrderStateCreated  uint = 0 // 已建立
	OrderStateVerified uint = 1 // 已確認
	OrderStateShipped  uint = 2 // 已出貨
*/
const (
	OrderStateCreated  uint = 0
	OrderStateVerified uint = 1
	OrderStateShipped  uint = 2
)

// Order 建立後除了 State/TrackingID 之外不再變動
// Order 與 OrderItems 一定同一個交易內一起建立
type Order struct {
	OrderID       string          `gorm:"primaryKey;type:varchar(36)"`
	UserID        uint            `gorm:"not null"` // 外鍵，關聯到 User
	StreetAddress string          `gorm:"not null;type:varchar(255)"`
	City          string          `gorm:"not null;type:varchar(100)"`
	PostalCode    string          `gorm:"not null;type:varchar(20)"`
	PhoneNumber   string          `gorm:"not null;type:varchar(50)"`
	RawAmount     decimal.Decimal `gorm:"not null;type:decimal(10,2)"` // 折扣前
	FinalAmount   decimal.Decimal `gorm:"not null;type:decimal(10,2)"` // 折扣後
	PromotionID   *uint           `gorm:"null"`
	State         uint            `gorm:"not null;default:0"`
	TrackingID    string          `gorm:"not null;type:varchar(36)"`
	OrderDate     time.Time       `gorm:"not null"`
	ShippingDate  time.Time       `gorm:"not null"`
	OrderItems    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"` // 一對多，級聯刪除
	BaseModel
}

type OrderItem struct {
	OrderID    string          `gorm:"primaryKey;type:varchar(36)"` // 外鍵，關聯到 Order
	ProductID  uint            `gorm:"primaryKey"`                  // 外鍵，關聯到 Product
	Quantity   int             `gorm:"not null"`
	LineAmount decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	BaseModel
}
