package model

import "time"

// OutboxMessage 跟訂單同一個交易寫入，commit 後由 drainer 發佈
// SentAt 為 nil 表示尚未發佈成功，至少一次語意
type OutboxMessage struct {
	ID        uint       `gorm:"primaryKey"`
	EventID   string     `gorm:"not null;type:varchar(36)"`
	Topic     string     `gorm:"not null;type:varchar(100);index:idx_outbox_pending,where:sent_at IS NULL"`
	Key       string     `gorm:"not null;type:varchar(100)"`
	Payload   []byte     `gorm:"not null;type:jsonb"`
	CreatedAt time.Time  `gorm:"not null;default:now()"`
	SentAt    *time.Time `gorm:"null"`
}
