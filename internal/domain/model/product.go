package model

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID   uint            `gorm:"primaryKey"`
	Code        string          `gorm:"not null;type:varchar(100);unique"`
	Name        string          `gorm:"not null;type:varchar(100)"`
	Price       decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	ListPrice   decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	Stock       uint            `gorm:"not null;type:int"`       // 永遠 >= 0，由 ReserveStock 的條件式 UPDATE 保證
	TotalSold   uint            `gorm:"not null;default:0"`      // 只增不減，結帳成功才累加
	Category    string          `gorm:"not null;type:varchar(50)"`
	Description string          `gorm:"not null;type:text"`
	OrderItems  []OrderItem     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	BaseModel
}
