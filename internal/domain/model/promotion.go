package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Promotion struct {
	PromotionID     uint            `gorm:"primaryKey"`
	Code            string          `gorm:"not null;type:varchar(50);unique"`
	DiscountPercent decimal.Decimal `gorm:"not null;type:decimal(5,2)"` // (0, 100]
	StartDate       time.Time       `gorm:"not null"`
	EndDate         time.Time       `gorm:"not null"`
	BaseModel
}

// IsActive 活動期間判定，邊界含頭含尾
func (p *Promotion) IsActive(now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}
