package db

import (
	"context"
	"time"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/model"
	"gorm.io/gorm"
)

type IOutboxRepository interface {
	Insert(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error
	FetchPending(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id uint) error
}

// OutboxRepo 事件跟訂單同一個交易落庫，commit 後才由 drainer 發佈
// 交易 rollback 時 outbox 列一起消失，不會發出不存在的訂單
type OutboxRepo struct {
	db *DbDao
}

func NewOutboxRepo(db *DbDao) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// Insert 必須跑在呼叫端的交易 tx 裡
func (r *OutboxRepo) Insert(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	return tx.WithContext(ctx).Create(msg).Error
}

// FetchPending 依寫入順序撈未發佈的事件
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var msgs []model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *OutboxRepo) MarkSent(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("sent_at", now).Error
}

var _ IOutboxRepository = (*OutboxRepo)(nil)
