package kafka

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig holds producer configuration. Writes are always
// synchronous so a failed publish surfaces to the caller.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	HashByKey    bool
}

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: 50 * time.Millisecond,
		HashByKey:    true,
	}
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("brokers are required")
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("required acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	return nil
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression accepts gzip, snappy, lz4 or zstd; unknown values fall back to gzip.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = compression }
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchSize = size }
}

// WithBatchTimeout is the linger before a partial batch is flushed.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.BatchTimeout = timeout }
}

func WithBatchBytes(bytes int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchBytes = bytes }
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithHashByKey routes equal keys (pairs) to the same partition.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	AutoOffsetReset string
	WorkerCount     int
	BufferSize      int
	RetryMax        int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	DLQTopic        string
	MinBytes        int
	MaxBytes        int
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:         "relval",
		AutoOffsetReset: "earliest",
		WorkerCount:     1,
		BufferSize:      10,
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        1,
		MaxBytes:        10e6,
	}
}

func (c *ConsumerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("brokers are required")
	}
	if c.GroupID == "" {
		return errors.New("group id is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("backoff max %s is below min %s", c.BackoffMax, c.BackoffMin)
	}
	switch strings.ToLower(c.AutoOffsetReset) {
	case "earliest", "latest":
	default:
		return fmt.Errorf("auto offset reset must be earliest or latest, got %q", c.AutoOffsetReset)
	}
	return nil
}

// startOffset maps AutoOffsetReset to the reader's offset for new groups.
func (c *ConsumerConfig) startOffset() int64 {
	if strings.EqualFold(c.AutoOffsetReset, "latest") {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) { c.GroupID = groupID }
}

// WithConsumerAutoOffsetReset picks where a new group starts: earliest or latest.
func WithConsumerAutoOffsetReset(autoOffsetReset string) ConsumerOption {
	return func(c *ConsumerConfig) { c.AutoOffsetReset = autoOffsetReset }
}

func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) { c.WorkerCount = count }
}

// WithConsumerRetry configures retry attempts and the jittered backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets the topic that receives messages which exhausted retries.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the internal channel buffer size.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}
