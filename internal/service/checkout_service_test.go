package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/event"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/db"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ---- in-memory 版的結帳交易，模擬 all-or-nothing ----

type storeState struct {
	products map[uint]*model.Product
	cart     map[uint]*model.CartItem
	orders   []*model.Order
	outbox   []model.OutboxMessage
}

func (s *storeState) clone() *storeState {
	c := &storeState{
		products: make(map[uint]*model.Product, len(s.products)),
		cart:     make(map[uint]*model.CartItem, len(s.cart)),
	}
	for id, p := range s.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, item := range s.cart {
		ci := *item
		c.cart[id] = &ci
	}
	c.orders = append(c.orders, s.orders...)
	c.outbox = append(c.outbox, s.outbox...)
	return c
}

type fakeCheckoutStore struct {
	state *storeState
}

// InTransaction 改動先進 staged 複本，fn 失敗整份丟掉
func (f *fakeCheckoutStore) InTransaction(ctx context.Context, fn func(tx db.CheckoutTx) error) error {
	staged := f.state.clone()
	if err := fn(&fakeCheckoutTx{state: staged}); err != nil {
		return err
	}
	f.state = staged
	return nil
}

type fakeCheckoutTx struct {
	state *storeState
}

func (t *fakeCheckoutTx) GetCartItems(ctx context.Context, userID uint, ids []uint) ([]model.CartItem, error) {
	var items []model.CartItem
	for _, id := range ids {
		if item, ok := t.state.cart[id]; ok && item.UserID == userID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CartItemID < items[j].CartItemID })
	return items, nil
}

func (t *fakeCheckoutTx) GetProduct(ctx context.Context, productID uint) (*model.Product, error) {
	p, ok := t.state.products[productID]
	if !ok {
		return nil, db.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *fakeCheckoutTx) ReserveStock(ctx context.Context, productID uint, quantity int) (int, error) {
	p, ok := t.state.products[productID]
	if !ok {
		return 0, db.ErrProductNotFound
	}
	if int(p.Stock) < quantity {
		return 0, db.ErrProductStockNotEnough
	}
	p.Stock -= uint(quantity)
	p.TotalSold += uint(quantity)
	return int(p.Stock), nil
}

func (t *fakeCheckoutTx) CreateOrder(ctx context.Context, order *model.Order) error {
	t.state.orders = append(t.state.orders, order)
	return nil
}

func (t *fakeCheckoutTx) DeleteCartItems(ctx context.Context, userID uint, ids []uint) error {
	for _, id := range ids {
		if item, ok := t.state.cart[id]; ok && item.UserID == userID {
			delete(t.state.cart, id)
		}
	}
	return nil
}

func (t *fakeCheckoutTx) InsertOutbox(ctx context.Context, msg *model.OutboxMessage) error {
	t.state.outbox = append(t.state.outbox, *msg)
	return nil
}

// ---- 其他協作者的 fake ----

type fakeUserRepo struct{ users map[uint]*model.User }

func (r *fakeUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	r.users[u.UserID] = u
	return nil
}

func (r *fakeUserRepo) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return u, nil
}

type fakeCartCache struct {
	invalidated []uint
}

func (c *fakeCartCache) Get(ctx context.Context, userID uint) ([]model.CartItem, error) {
	return nil, nil
}
func (c *fakeCartCache) Set(ctx context.Context, userID uint, items []model.CartItem) error {
	return nil
}
func (c *fakeCartCache) Invalidate(ctx context.Context, userID uint) error {
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type fakeNudger struct{ nudges int }

func (n *fakeNudger) Nudge() { n.nudges = n.nudges + 1 }

type checkoutFixture struct {
	svc    *CheckoutService
	store  *fakeCheckoutStore
	cache  *fakeCartCache
	nudger *fakeNudger
}

// 測試場景基準：A 單價 10 庫存 5，B 單價 50 庫存 1
// 用戶 1 的購物車：3 個 A（明細 1）、1 個 B（明細 2）
func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	store := &fakeCheckoutStore{state: &storeState{
		products: map[uint]*model.Product{
			1: {ProductID: 1, Code: "A", Name: "Product A", Price: decimal.NewFromInt(10), Stock: 5},
			2: {ProductID: 2, Code: "B", Name: "Product B", Price: decimal.NewFromInt(50), Stock: 1},
		},
		cart: map[uint]*model.CartItem{
			1: {CartItemID: 1, UserID: 1, ProductID: 1, Quantity: 3},
			2: {CartItemID: 2, UserID: 1, ProductID: 2, Quantity: 1},
		},
	}}
	userRepo := &fakeUserRepo{users: map[uint]*model.User{
		1: {UserID: 1, UserName: "Test User", UserEmail: "test@example.com"},
	}}
	promotions, _ := newTestPromotionService()
	cache := &fakeCartCache{}
	nudger := &fakeNudger{}

	assembler := NewOrderAssemblerWithClock(func() time.Time { return testNow }, newSequentialIDs())
	svc := NewCheckoutService(store, userRepo, promotions, assembler, cache, nudger, []int{1, 10}, nil, zerolog.Nop())
	return &checkoutFixture{svc: svc, store: store, cache: cache, nudger: nudger}
}

func testAddress() AddressDetails {
	return AddressDetails{
		StreetAddress: "123 Test St",
		City:          "Taipei",
		PostalCode:    "100",
		PhoneNumber:   "0912345678",
	}
}

func TestCheckout(t *testing.T) {
	f := newCheckoutFixture(t)

	order, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		CartItemIDs: []uint{1, 2},
	})

	require.NoError(t, err)
	require.True(t, order.RawAmount.Equal(decimal.NewFromInt(80)))
	require.True(t, order.FinalAmount.Equal(decimal.NewFromInt(80)))
	require.Nil(t, order.PromotionID)

	// 庫存扣掉、銷量累加
	require.Equal(t, uint(2), f.store.state.products[1].Stock)
	require.Equal(t, uint(3), f.store.state.products[1].TotalSold)
	require.Equal(t, uint(0), f.store.state.products[2].Stock)
	require.Equal(t, uint(1), f.store.state.products[2].TotalSold)

	// 消費掉的購物車明細刪掉了
	require.Empty(t, f.store.state.cart)

	// 訂單連同明細一起存在
	require.Len(t, f.store.state.orders, 1)
	require.Len(t, f.store.state.orders[0].OrderItems, 2)

	// A 5->2 跟 B 1->0 都沒踩到水位 {1, 10}，只有一封確認信
	require.Len(t, f.store.state.outbox, 1)
	require.Equal(t, event.TopicOrderConfirmations, f.store.state.outbox[0].Topic)

	// commit 後快取失效、drainer 被叫醒
	require.Equal(t, []uint{1}, f.cache.invalidated)
	require.Equal(t, 1, f.nudger.nudges)
}

// 確認信 payload 是跟 email consumer 的既定 wire 格式
func TestCheckout_ConfirmationPayload(t *testing.T) {
	f := newCheckoutFixture(t)

	order, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		CartItemIDs: []uint{1, 2},
	})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(f.store.state.outbox[0].Payload, &payload))

	require.Equal(t, "Test User", payload["UserName"])
	require.Equal(t, "test@example.com", payload["Email"])
	require.Equal(t, order.OrderID, payload["OrderId"])
	require.Equal(t, 80.0, payload["Price"])
	require.Equal(t, "123 Test St", payload["StreetAddress"])
	// 下游依賴這個拼錯的 key
	require.Equal(t, "0912345678", payload["PhoheNumber"])
	require.Equal(t, "Taipei", payload["City"])
	require.Equal(t, "100", payload["PostalCode"])
	require.NotContains(t, payload, "PhoneNumber")
}

func TestCheckout_WithPromotion(t *testing.T) {
	f := newCheckoutFixture(t)

	order, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		PromoCode:   "SAVE10",
		CartItemIDs: []uint{1, 2},
	})

	require.NoError(t, err)
	require.True(t, order.RawAmount.Equal(decimal.NewFromInt(80)))
	require.True(t, order.FinalAmount.Equal(decimal.NewFromInt(72)))
	require.NotNil(t, order.PromotionID)
	require.Equal(t, uint(7), *order.PromotionID)
}

// B 缺貨：整筆結帳失敗，A 已扣的庫存要回滾，什麼都不留
func TestCheckout_InsufficientStockRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	f.store.state.products[2].Stock = 0

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		CartItemIDs: []uint{1, 2},
	})

	require.ErrorIs(t, err, db.ErrProductStockNotEnough)
	require.Equal(t, uint(5), f.store.state.products[1].Stock)
	require.Equal(t, uint(0), f.store.state.products[1].TotalSold)
	require.Empty(t, f.store.state.orders)
	require.Empty(t, f.store.state.outbox)
	require.Len(t, f.store.state.cart, 2)
	require.Empty(t, f.cache.invalidated)
	require.Equal(t, 0, f.nudger.nudges)
}

// 折扣碼失敗發生在庫存預留之後，一樣要整筆回滾
func TestCheckout_ExpiredPromotionRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		PromoCode:   "EXPIRED",
		CartItemIDs: []uint{1, 2},
	})

	require.ErrorIs(t, err, ErrPromotionExpired)
	require.Equal(t, uint(5), f.store.state.products[1].Stock)
	require.Equal(t, uint(1), f.store.state.products[2].Stock)
	require.Empty(t, f.store.state.orders)
	require.Empty(t, f.store.state.outbox)
}

func TestCheckout_UnknownPromotion(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		PromoCode:   "NOPE",
		CartItemIDs: []uint{1, 2},
	})

	require.ErrorIs(t, err, db.ErrPromotionNotFound)
	require.Empty(t, f.store.state.orders)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	// 指到不存在的明細
	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		CartItemIDs: []uint{99},
	})

	require.ErrorIs(t, err, ErrCartEmpty)
}

func TestCheckout_ProductGone(t *testing.T) {
	f := newCheckoutFixture(t)
	delete(f.store.state.products, 2)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		CartItemIDs: []uint{1, 2},
	})

	require.ErrorIs(t, err, db.ErrProductNotFound)
	// 先扣的 A 也回滾
	require.Equal(t, uint(5), f.store.state.products[1].Stock)
}

// 別人的購物車明細當不存在處理
func TestCheckout_OtherUsersItems(t *testing.T) {
	f := newCheckoutFixture(t)
	f.store.state.cart[3] = &model.CartItem{CartItemID: 3, UserID: 2, ProductID: 1, Quantity: 1}

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      1,
		Address:     testAddress(),
		CartItemIDs: []uint{3},
	})

	require.ErrorIs(t, err, ErrCartEmpty)
}

func TestCheckout_UnknownUser(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:      99,
		Address:     testAddress(),
		CartItemIDs: []uint{1, 2},
	})

	require.ErrorIs(t, err, db.ErrUserNotFound)
	require.Empty(t, f.store.state.orders)
}

// 每種可預期的失敗都有自己的 metric label，不能混進 persistence_error
func TestFailureReason(t *testing.T) {
	cases := map[string]error{
		"cart_empty":          ErrCartEmpty,
		"user_not_found":      db.ErrUserNotFound,
		"cart_item_not_found": db.ErrCartItemNotFound,
		"product_not_found":   db.ErrProductNotFound,
		"insufficient_stock":  db.ErrProductStockNotEnough,
		"promotion_not_found": db.ErrPromotionNotFound,
		"promotion_expired":   ErrPromotionExpired,
		"persistence_error":   errors.New("connection reset"),
	}

	for want, err := range cases {
		require.Equal(t, want, failureReason(err))
		// wrap 過一層也要認得出來
		require.Equal(t, want, failureReason(fmt.Errorf("checkout: %w", err)))
	}
}

// 剩餘量剛好等於水位才發低庫存事件，高於或穿過都不發
func TestCheckout_LowStockThresholds(t *testing.T) {
	cases := []struct {
		name      string
		stock     uint
		quantity  int
		wantEvent bool
		wantCurr  int
	}{
		{"hits 10", 11, 1, true, 10},
		{"hits 1", 2, 1, true, 1},
		{"lands on 9", 11, 2, false, 0},
		{"lands on 0", 1, 1, false, 0},
		{"crosses 10 without landing", 12, 3, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			f.store.state.products[1].Stock = tc.stock
			f.store.state.cart[1].Quantity = tc.quantity

			_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
				UserID:      1,
				Address:     testAddress(),
				CartItemIDs: []uint{1},
			})
			require.NoError(t, err)

			var lowStock []model.OutboxMessage
			for _, msg := range f.store.state.outbox {
				if msg.Topic == event.TopicLowStock {
					lowStock = append(lowStock, msg)
				}
			}

			if !tc.wantEvent {
				require.Empty(t, lowStock)
				return
			}
			require.Len(t, lowStock, 1)

			var payload map[string]any
			require.NoError(t, json.Unmarshal(lowStock[0].Payload, &payload))
			require.Equal(t, float64(1), payload["ProductId"])
			require.Equal(t, float64(tc.wantCurr), payload["CurrStock"])
		})
	}
}
