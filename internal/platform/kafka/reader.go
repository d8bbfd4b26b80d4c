package kafka

import (
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"stock_dashboard/internal/platform/config"
)

// NewReader は消費者グループ用のReaderを生成する。
// CommitInterval=0 のため CommitMessages は同期コミットになる。
func NewReader(cfg config.KafkaConfig) (*kafkago.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka topic and group id are required")
	}
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafkago.FirstOffset,
		CommitInterval: 0,
	}), nil
}
