package event

import "time"

// 下游 email worker 訂閱的兩個佇列
const (
	TopicOrderConfirmations = "order-confirmations"
	TopicLowStock           = "low-stock"
)

// OrderConfirmation 出訂單確認信用的 payload
// 欄位名是跟 email consumer 之間的既定 wire 格式，
// PhoheNumber 這個拼錯的 key 下游已經依賴，不能改
type OrderConfirmation struct {
	UserName      string  `json:"UserName"`
	OrderDate     string  `json:"OrderDate"` // ISO-8601
	Price         float64 `json:"Price"`
	OrderId       string  `json:"OrderId"`
	Email         string  `json:"Email"`
	StreetAddress string  `json:"StreetAddress"`
	PhoheNumber   string  `json:"PhoheNumber"`
	City          string  `json:"City"`
	PostalCode    string  `json:"PostalCode"`
}

// LowStock 低庫存通知，遺失可容忍，重複也可容忍
type LowStock struct {
	ProductId int `json:"ProductId"`
	CurrStock int `json:"CurrStock"`
}

// FormatOrderDate wire 格式統一用 UTC RFC3339
func FormatOrderDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
