package mq

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer interface defines the methods that a Kafka producer must implement
type Producer interface {
	// Publish sends one message to the given topic
	Publish(ctx context.Context, topic string, key, value []byte) error
	// Close closes the producer
	Close() error
}

type Config struct {
	Brokers       []string
	Topics        []string
	BatchSize     int
	BatchTimeout  time.Duration
	RequiredAcks  int
	RetryAttempts int
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers is required")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("at least one topic is required")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	return nil
}

// kafkaProducer implements the Producer interface
// 每個 topic 一個 writer，writer 長駐不做每次開關
type kafkaProducer struct {
	writers map[string]*kafka.Writer
	cfg     *Config
	closed  atomic.Bool
}

// New creates a new Kafka producer
func New(cfg *Config) (Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	writers := make(map[string]*kafka.Writer, len(cfg.Topics))
	for _, topic := range cfg.Topics {
		writers[topic] = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Async:        false,

			MaxAttempts: cfg.RetryAttempts,

			// 重連機制設置
			Transport: &kafka.Transport{
				Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
					dialer := &kafka.Dialer{
						Timeout:   10 * time.Second,
						DualStack: true,
						KeepAlive: 30 * time.Second,
					}
					return dialer.DialContext(ctx, network, address)
				},
			},

			// 壓縮設置
			Compression: kafka.Snappy,
		}
	}

	return &kafkaProducer{
		writers: writers,
		cfg:     cfg,
	}, nil
}

// Publish implements the Producer interface
// 同步發送，會 block 到寫入完成，臨時錯誤在這層重試
func (p *kafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	writer, ok := p.writers[topic]
	if !ok {
		return NewKafkaError("Publish", topic, fmt.Errorf("unknown topic"))
	}

	msg := kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now().UTC(),
	}

	var err error
	for attempt := 0; attempt <= p.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return NewKafkaError("Publish", topic, ctx.Err())
		}
		err = writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		if !IsTemporary(err) {
			break
		}
	}

	return NewKafkaError("Publish", topic, err)
}

// Close implements the Producer interface
func (p *kafkaProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
