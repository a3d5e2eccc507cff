package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// HandHistoryProducerConfig mirrors the teacher's Kafka producer config
// shape, adapted for the append-only hand-history stream rather than alerts.
type HandHistoryProducerConfig struct {
	Brokers        []string
	Topic          string
	MaxRetries     int
	RetryBackoff   time.Duration
	FlushFrequency time.Duration
	FlushMessages  int
	RequiredAcks   sarama.RequiredAcks
}

// DefaultHandHistoryProducerConfig returns sane production defaults for a
// single-broker or small-cluster deployment.
func DefaultHandHistoryProducerConfig(brokers []string) HandHistoryProducerConfig {
	return HandHistoryProducerConfig{
		Brokers:        brokers,
		Topic:          "poker.hand_history",
		MaxRetries:     5,
		RetryBackoff:   100 * time.Millisecond,
		FlushFrequency: 250 * time.Millisecond,
		FlushMessages:  50,
		RequiredAcks:   sarama.WaitForLocal,
	}
}

// HandHistoryProducerStats tracks delivery counters.
type HandHistoryProducerStats struct {
	HandsSent   int64
	HandsFailed int64
	BytesSent   int64
	LastSentAt  time.Time
}

// HandHistoryProducer publishes completed hands to Kafka as the durable,
// append-only record described for hand-history persistence, the same
// sarama producer setup the teacher uses for its alert bus, pointed at a
// hand-history topic instead.
type HandHistoryProducer struct {
	producer sarama.SyncProducer
	topic    string

	mu    sync.Mutex
	stats HandHistoryProducerStats
}

// NewHandHistoryProducer opens a synchronous Kafka producer for the
// hand-history topic.
func NewHandHistoryProducer(cfg HandHistoryProducerConfig) (*HandHistoryProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Retry.Max = cfg.MaxRetries
	saramaConfig.Producer.Retry.Backoff = cfg.RetryBackoff
	saramaConfig.Producer.Flush.Frequency = cfg.FlushFrequency
	saramaConfig.Producer.Flush.Messages = cfg.FlushMessages
	saramaConfig.Producer.RequiredAcks = cfg.RequiredAcks

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create hand-history Kafka producer: %w", err)
	}
	return &HandHistoryProducer{producer: producer, topic: cfg.Topic}, nil
}

// PublishHand appends one completed hand to the topic, keyed by tableId so
// all hands from one table land in the same partition and preserve order.
func (p *HandHistoryProducer) PublishHand(hand *HandHistory) error {
	data, err := json.Marshal(hand)
	if err != nil {
		return fmt.Errorf("storage: marshal hand history: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(hand.TableID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("hand_id"), Value: []byte(hand.HandID)},
			{Key: []byte("game_type"), Value: []byte(hand.GameType)},
		},
		Timestamp: hand.CompletedAt,
	}

	_, _, err = p.producer.SendMessage(msg)
	p.mu.Lock()
	if err != nil {
		p.stats.HandsFailed++
	} else {
		p.stats.HandsSent++
		p.stats.BytesSent += int64(len(data))
		p.stats.LastSentAt = time.Now()
	}
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("storage: publish hand history: %w", err)
	}
	return nil
}

// Stats returns a copy of current delivery counters.
func (p *HandHistoryProducer) Stats() HandHistoryProducerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *HandHistoryProducer) Close() error {
	return p.producer.Close()
}
