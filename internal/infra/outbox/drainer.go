package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/mq"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/db"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
	maxBackoff       = 30 * time.Second
)

/*
Drainer 背景把 outbox 撈出來發到 kafka

至少一次語意：發佈成功才標記 sent_at，
發佈成功但標記失敗的話下一輪會重發，下游 consumer 要自己冪等。
發佈失敗不影響已 commit 的訂單，只記 log 加退避重試。
*/
type Drainer struct {
	repo     db.IOutboxRepository
	producer mq.Producer
	interval time.Duration
	batch    int
	logger   zerolog.Logger
	metrics  *metrics.CheckoutMetrics

	wake chan struct{}
	wg   sync.WaitGroup
}

func NewDrainer(repo db.IOutboxRepository, producer mq.Producer, interval time.Duration, batch int, logger zerolog.Logger, m *metrics.CheckoutMetrics) *Drainer {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Drainer{
		repo:     repo,
		producer: producer,
		interval: interval,
		batch:    batch,
		logger:   logger,
		metrics:  m,
		wake:     make(chan struct{}, 1),
	}
}

// Start 啟動背景 goroutine，ctx 取消時停止
func (d *Drainer) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		backoff := d.interval
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-d.wake:
			}

			if err := d.drainBacklog(ctx); err != nil {
				d.logger.Error().Err(err).Msg("outbox drain failed")
				// 退避後再試，不要打爆 broker
				backoff = backoff * 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				continue
			}
			backoff = d.interval
		}
	}()
}

// Nudge 結帳 commit 後叫醒 drainer，不等下一個 tick
// 滿了就算了，反正 tick 會到
func (d *Drainer) Nudge() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wait 等背景 goroutine 結束，關機流程用
func (d *Drainer) Wait() {
	d.wg.Wait()
}

// drainBacklog 撈到滿批表示後面大概還有，馬上再撈一批，
// 積壓不用等下一個 tick 慢慢消化
func (d *Drainer) drainBacklog(ctx context.Context) error {
	for {
		sent, err := d.DrainOnce(ctx)
		if err != nil || sent < d.batch {
			return err
		}
	}
}

// DrainOnce 撈一批未發佈的事件依序發佈，回傳這一批成功發佈的筆數
// 單筆失敗就中斷這一輪，保留該筆跟之後的，下一輪重來
func (d *Drainer) DrainOnce(ctx context.Context) (int, error) {
	msgs, err := d.repo.FetchPending(ctx, d.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range msgs {
		if err := d.producer.Publish(ctx, msg.Topic, []byte(msg.Key), msg.Payload); err != nil {
			return sent, err
		}
		if err := d.repo.MarkSent(ctx, msg.ID); err != nil {
			// 已發佈但沒標記成功，下一輪會重發，可容忍
			return sent, err
		}
		sent++
		if d.metrics != nil {
			d.metrics.EventsPublished.WithLabelValues(msg.Topic).Inc()
		}
		d.logger.Debug().
			Str("topic", msg.Topic).
			Str("event_id", msg.EventID).
			Msg("outbox event published")
	}
	return sent, nil
}
