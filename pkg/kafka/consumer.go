package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	applogger "RelVal/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads registered topics in a consumer group and hands messages to
// a worker pool. Offsets are committed only after the handler succeeded or
// the message was dead-lettered. At most one message per partition is in
// flight so per-key ordering is kept.
type Consumer struct {
	cfg       *ConsumerConfig
	handlers  map[string]MessageHandler
	readers   map[string]messageReader
	newReader func(topic string) messageReader
	dlq       messageWriter
	hook      ConsumerHook
	l         *applogger.Logger
	m         *clientMetrics

	msgs      chan fetched
	cancel    context.CancelFunc
	readWG    sync.WaitGroup
	workWG    sync.WaitGroup
	stopOnce  sync.Once
	partLocks map[partitionKey]*sync.Mutex
	plMu      sync.Mutex
}

type fetched struct {
	topic string
	km    kafka.Message
}

type partitionKey struct {
	topic     string
	partition int
}

// NewConsumer creates a consumer; nothing connects until Start.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	c := &Consumer{
		cfg:       cfg,
		handlers:  make(map[string]MessageHandler),
		readers:   make(map[string]messageReader),
		hook:      NoopHook{},
		l:         applogger.Nop(),
		m:         getMetrics(),
		msgs:      make(chan fetched, cfg.BufferSize),
		partLocks: make(map[partitionKey]*sync.Mutex),
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.GroupID,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			StartOffset: cfg.startOffset(),
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.Hash{}}
	}
	return c, nil
}

// SetLogger injects a structured logger.
func (c *Consumer) SetLogger(l *applogger.Logger) {
	if l != nil {
		c.l = l
	}
}

// SetHook installs lifecycle hooks; nil restores the no-op hook.
func (c *Consumer) SetHook(h ConsumerHook) {
	if h == nil {
		h = NoopHook{}
	}
	c.hook = h
}

// RegisterHandler registers a handler for its topic. Call before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.l.Warn("kafka consumer: handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start opens one reader per registered topic and the worker pool.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for topic := range c.handlers {
		r := c.newReader(topic)
		c.readers[topic] = r
		c.readWG.Add(1)
		go c.fetchLoop(ctx, topic, r)
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.workWG.Add(1)
		go c.worker(ctx)
	}

	c.l.Info("kafka consumer: started",
		applogger.Int("topics", len(c.handlers)),
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group_id", c.cfg.GroupID),
	)
	return nil
}

// Stop cancels fetching, lets workers drain and closes readers. It returns
// ctx's error if the workers do not finish in time.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.l.Info("kafka consumer: stopping")
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.readWG.Wait()
			close(c.msgs)
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				c.l.Error("kafka consumer: close reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.l.Error("kafka consumer: close dlq writer", applogger.Error(err))
			}
		}
		if stopErr == nil {
			c.l.Info("kafka consumer: stopped")
		}
	})
	return stopErr
}

func (c *Consumer) fetchLoop(ctx context.Context, topic string, r messageReader) {
	defer c.readWG.Done()
	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.l.Error("kafka consumer: fetch", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, 1)):
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case c.msgs <- fetched{topic: topic, km: km}:
			c.m.queueDepth.WithLabelValues(topic).Set(float64(len(c.msgs)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.workWG.Done()
	for f := range c.msgs {
		c.m.queueDepth.WithLabelValues(f.topic).Set(float64(len(c.msgs)))
		c.process(ctx, f)
	}
}

// process handles one message with retries, dead-letters it when retries are
// exhausted, then commits. A message interrupted by shutdown is not committed
// and will be redelivered to the group.
func (c *Consumer) process(ctx context.Context, f fetched) {
	handler, ok := c.handlers[f.topic]
	if !ok {
		return
	}
	pl := c.partitionLock(f.topic, f.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	start := time.Now()
	defer func() {
		c.m.handleDur.WithLabelValues(f.topic).Observe(time.Since(start).Seconds())
	}()

	attempts, err := c.handleWithRetry(ctx, handler, f)
	if ctx.Err() != nil && err != nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		c.l.Error("kafka consumer: handle failed",
			applogger.String("topic", f.topic),
			applogger.Int("partition", f.km.Partition),
			applogger.Int64("offset", f.km.Offset),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		if c.dlq == nil {
			c.m.handled.WithLabelValues(f.topic, result).Inc()
			return
		}
		if dlqErr := c.deadLetter(f, err); dlqErr != nil {
			c.l.Error("kafka consumer: dlq write", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(dlqErr))
			c.m.handled.WithLabelValues(f.topic, result).Inc()
			return
		}
		result = "dead_letter"
	}
	c.m.handled.WithLabelValues(f.topic, result).Inc()
	_ = c.commitWithRetry(c.readers[f.topic], f.km, 3)
}

func (c *Consumer) handleWithRetry(ctx context.Context, handler MessageHandler, f fetched) (attempts int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			c.l.Error("kafka consumer: handler panic", applogger.String("topic", f.topic), applogger.Any("panic", r))
		}
	}()
	for {
		attempts++
		hctx, hmsg, hdata, berr := c.hook.BeforeHandle(ctx, f.topic, f.km, f.km.Value)
		if berr != nil {
			c.hook.OnError(ctx, f.topic, f.km, f.km.Value, berr)
			return attempts, berr
		}
		err = handler.Handle(hctx, hdata)
		c.hook.AfterHandle(hctx, f.topic, hmsg, hdata, err)
		if err == nil {
			return attempts, nil
		}
		c.hook.OnError(hctx, f.topic, hmsg, hdata, err)
		if attempts > c.cfg.RetryMax {
			return attempts, err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-ctx.Done():
			return attempts, ctx.Err()
		}
	}
}

func (c *Consumer) deadLetter(f fetched, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   f.km.Key,
		Value: f.km.Value,
		Time:  time.Now(),
		Headers: append(f.km.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(f.topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
	if err == nil {
		c.m.deadLetter.WithLabelValues(f.topic).Inc()
	}
	return err
}

// commitWithRetry commits a single offset with bounded retries.
func (c *Consumer) commitWithRetry(r messageReader, km kafka.Message, max int) error {
	if r == nil {
		return nil
	}
	if max <= 0 {
		max = 1
	}
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.l.Error("kafka consumer: commit",
		applogger.String("topic", km.Topic),
		applogger.Int64("offset", km.Offset),
		applogger.Int("attempts", max),
		applogger.Error(err),
	)
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.plMu.Lock()
	defer c.plMu.Unlock()
	k := partitionKey{topic: topic, partition: partition}
	mu, ok := c.partLocks[k]
	if !ok {
		mu = &sync.Mutex{}
		c.partLocks[k] = mu
	}
	return mu
}

// backoffWithJitter doubles min per attempt up to max and subtracts up to
// half of it at random.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt <= 30 {
		if e := min * time.Duration(1<<uint(attempt-1)); e > 0 && e < max {
			exp = e
		}
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int64N(half))
}
