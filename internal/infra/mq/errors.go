package mq

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/segmentio/kafka-go"
)

var (
	// ErrProducerClosed 生產者已關閉
	ErrProducerClosed = errors.New("producer is closed")
)

// KafkaError 代表 Kafka 操作錯誤
type KafkaError struct {
	Operation string
	Topic     string
	Err       error
}

func (e *KafkaError) Error() string {
	return fmt.Sprintf("kafka operation %s on topic %s failed: %v", e.Operation, e.Topic, e.Err)
}

func (e *KafkaError) Unwrap() error {
	return e.Err
}

// NewKafkaError 創建新的 KafkaError
func NewKafkaError(operation, topic string, err error) error {
	return &KafkaError{
		Operation: operation,
		Topic:     topic,
		Err:       err,
	}
}

// IsTemporary 判斷是否為可重試的臨時錯誤
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}

	var kafkaErr kafka.Error
	if errors.As(err, &kafkaErr) {
		return kafkaErr.Temporary()
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "leader not available")
}
