package changefeed

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// ReaderConfig selects the brokers, topic and consumer group to read from.
type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaReader builds a consumer-group reader for roster changes.
func NewKafkaReader(cfg ReaderConfig) *kafka.Reader {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topic:           topic,
		MinBytes:        1,
		MaxBytes:        1e6,
		MaxWait:         time.Second,
		CommitInterval:  0,
		ReadLagInterval: -1,
	})
}
