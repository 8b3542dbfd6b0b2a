package service

import (
	"time"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/pkg/util"
	"github.com/shopspring/decimal"
)

// ShippingLeadTime 下單後第七天出貨，固定政策
const ShippingLeadTime = 7 * 24 * time.Hour

// AddressDetails 結帳時的收件資訊快照，跟著訂單存
type AddressDetails struct {
	StreetAddress string
	City          string
	PostalCode    string
	PhoneNumber   string
}

// PricedLine 已解析完商品與單價的購物車明細
type PricedLine struct {
	ProductID  uint
	Quantity   int
	UnitPrice  decimal.Decimal
	LineAmount decimal.Decimal
}

/*
OrderAssembler 把結帳輸入組裝成 Order + OrderItems

純組裝，不碰 I/O。時間跟 ID 產生器都可注入，
同樣輸入（扣掉隨機 ID 跟時鐘）一定產出同樣的訂單。
*/
type OrderAssembler struct {
	now   func() time.Time
	newID func() string
}

func NewOrderAssembler() *OrderAssembler {
	return &OrderAssembler{now: time.Now, newID: util.GenerateOrderID}
}

// NewOrderAssemblerWithClock 測試用，固定時鐘跟 ID 產生器
func NewOrderAssemblerWithClock(now func() time.Time, newID func() string) *OrderAssembler {
	return &OrderAssembler{now: now, newID: newID}
}

func (a *OrderAssembler) Assemble(userID uint, addr AddressDetails, lines []PricedLine, rawTotal, finalTotal decimal.Decimal, promotionID *uint) *model.Order {
	now := a.now().UTC()

	order := &model.Order{
		OrderID:       a.newID(),
		UserID:        userID,
		StreetAddress: addr.StreetAddress,
		City:          addr.City,
		PostalCode:    addr.PostalCode,
		PhoneNumber:   addr.PhoneNumber,
		RawAmount:     rawTotal,
		FinalAmount:   finalTotal,
		PromotionID:   promotionID,
		State:         model.OrderStateCreated,
		TrackingID:    a.newID(),
		OrderDate:     now,
		ShippingDate:  now.Add(ShippingLeadTime),
	}

	order.OrderItems = make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		order.OrderItems = append(order.OrderItems, model.OrderItem{
			OrderID:    order.OrderID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			LineAmount: line.LineAmount,
		})
	}
	return order
}
