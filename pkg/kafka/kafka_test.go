package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(WithConsumerGroupID("g"))
	require.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Lz4, parseCompression("LZ4"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(50*time.Millisecond, 400*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 400*time.Millisecond)
	}
	d := backoffWithJitter(0, 0, 1)
	assert.Greater(t, d, 25*time.Millisecond)
	assert.LessOrEqual(t, d, 50*time.Millisecond)
}

func TestHookFuncsNilAreNoops(t *testing.T) {
	var h HookFuncs
	ctx := context.Background()
	km := kafka.Message{Topic: "t"}
	gotCtx, gotMsg, gotData, err := h.BeforeHandle(ctx, "t", km, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, ctx, gotCtx)
	assert.Equal(t, km, gotMsg)
	assert.Equal(t, []byte("x"), gotData)
	h.AfterHandle(ctx, "t", km, nil, nil)
	h.OnError(ctx, "t", km, nil, errors.New("boom"))
}

func TestHookFuncsOnErrorCalled(t *testing.T) {
	var seen error
	h := HookFuncs{Err: func(_ context.Context, _ string, _ kafka.Message, _ []byte, err error) { seen = err }}
	boom := errors.New("boom")
	h.OnError(context.Background(), "t", kafka.Message{}, nil, boom)
	assert.ErrorIs(t, seen, boom)
}

func TestExtractHeader(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	assert.Equal(t, "abc", ExtractHeader(msg, "trace_id"))
	assert.Equal(t, "", ExtractHeader(msg, "missing"))
}

func TestConsumerConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []ConsumerOption
		ok   bool
	}{
		{"defaults with brokers", []ConsumerOption{WithConsumerBrokers([]string{"b:9092"})}, true},
		{"empty group", []ConsumerOption{WithConsumerBrokers([]string{"b:9092"}), WithConsumerGroupID("")}, false},
		{"no workers", []ConsumerOption{WithConsumerBrokers([]string{"b:9092"}), WithConsumerWorkers(0)}, false},
		{"inverted backoff", []ConsumerOption{WithConsumerBrokers([]string{"b:9092"}), WithConsumerRetry(1, time.Second, time.Millisecond)}, false},
		{"bad offset reset", []ConsumerOption{WithConsumerBrokers([]string{"b:9092"}), WithConsumerAutoOffsetReset("middle")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConsumerConfig()
			for _, o := range tt.opts {
				o(cfg)
			}
			if tt.ok {
				assert.NoError(t, cfg.validate())
			} else {
				assert.Error(t, cfg.validate())
			}
		})
	}
}

func TestConsumerStartOffset(t *testing.T) {
	cfg := defaultConsumerConfig()
	assert.Equal(t, kafka.FirstOffset, cfg.startOffset())
	cfg.AutoOffsetReset = "Latest"
	assert.Equal(t, kafka.LastOffset, cfg.startOffset())
}

func TestProducerConfigValidate(t *testing.T) {
	cfg := defaultProducerConfig()
	cfg.Brokers = []string{"b:9092"}
	assert.NoError(t, cfg.validate())
	cfg.RequiredAcks = 3
	assert.Error(t, cfg.validate())
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		km := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return km, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type funcHandler struct {
	topic string
	fn    func([]byte) error
}

func (h funcHandler) Topic() string                            { return h.topic }
func (h funcHandler) Handle(_ context.Context, b []byte) error { return h.fn(b) }

func newTestConsumer(t *testing.T, r *fakeReader, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{
		WithConsumerBrokers([]string{"b:9092"}),
		WithConsumerRetry(1, time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewConsumer(opts...)
	require.NoError(t, err)
	c.newReader = func(string) messageReader { return r }
	return c
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "req", Offset: 7, Value: []byte("a")}}}
	c := newTestConsumer(t, r)

	var calls atomic.Int32
	c.RegisterHandler(funcHandler{topic: "req", fn: func([]byte) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}})
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{7}, r.commits())
	assert.Equal(t, int32(2), calls.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.True(t, r.closed)
}

func TestConsumerDeadLettersExhaustedMessages(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "req", Offset: 3, Key: []byte("k"), Value: []byte("bad")}}}
	c := newTestConsumer(t, r, WithConsumerDLQ("req.dlq"))
	w := &fakeWriter{}
	c.dlq = w

	var errs atomic.Int32
	c.SetHook(HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { errs.Add(1) }})
	c.RegisterHandler(funcHandler{topic: "req", fn: func([]byte) error { return errors.New("always") }})
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "req.dlq", w.msgs[0].Topic)
	assert.Equal(t, []byte("bad"), w.msgs[0].Value)
	assert.Equal(t, "req", ExtractHeader(w.msgs[0], "source_topic"))
	assert.Equal(t, "always", ExtractHeader(w.msgs[0], "error"))
	assert.Equal(t, int32(2), errs.Load(), "one OnError per attempt")
}

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "req", Offset: 1}}}
	c := newTestConsumer(t, r, WithConsumerRetry(0, time.Millisecond, time.Millisecond), WithConsumerDLQ("dlq"))
	w := &fakeWriter{}
	c.dlq = w
	c.RegisterHandler(funcHandler{topic: "req", fn: func([]byte) error { panic("boom") }})
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 1)
	assert.Contains(t, ExtractHeader(w.msgs[0], "error"), "boom")
}

func TestConsumerStartRequiresHandler(t *testing.T) {
	c := newTestConsumer(t, &fakeReader{})
	assert.Error(t, c.Start())
	assert.NoError(t, c.Stop(context.Background()))
}
