package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu     sync.Mutex
	calls  int
	msgs   []kafka.Message
	err    error
	delay  time.Duration
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func closeProducer(t *testing.T, p *Producer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, logger.NewDiscard())

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	product := domain.Product{ID: 1700000000000, Name: "Fan", Price: "10"}
	p.Publish(domain.NewProductEvent("evt-1", domain.ProductCreated, product, at))
	closeProducer(t, p)

	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "1700000000000" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "product.created" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	var got domain.ProductEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if got.EventID != "evt-1" || got.ProductID != product.ID || got.Product != product || !got.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event %+v", got)
	}
	if !w.closed {
		t.Fatalf("writer must be closed")
	}
}

func TestPublishBatchInSingleWrite(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, logger.NewDiscard())

	at := time.Now()
	events := make([]*domain.ProductEvent, 0, 300)
	for i := 0; i < 300; i++ {
		events = append(events, domain.NewProductEvent("e", domain.ProductCreated, domain.Product{ID: int64(i)}, at))
	}
	p.Publish(events...)
	closeProducer(t, p)

	if w.calls != 1 || len(w.msgs) != 300 {
		t.Fatalf("expected 300 messages in one write, got %d writes / %d messages", w.calls, len(w.msgs))
	}
}

func TestPublishDoesNotBlockCaller(t *testing.T) {
	w := &fakeWriter{delay: 300 * time.Millisecond}
	p := newProducer(w, logger.NewDiscard())

	start := time.Now()
	p.Publish(domain.NewProductEvent("e", domain.ProductDeleted, domain.Product{ID: 1}, start))
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("publish blocked the caller for %v", elapsed)
	}

	closeProducer(t, p)
	if len(w.msgs) != 1 {
		t.Fatalf("close must wait for the in-flight write, got %d messages", len(w.msgs))
	}
}

func TestPublishWriterErrorIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("no brokers")}
	p := newProducer(w, logger.NewDiscard())

	p.Publish(domain.NewProductEvent("e", domain.ProductDeleted, domain.Product{ID: 1}, time.Now()))
	closeProducer(t, p)

	if w.calls != 1 || len(w.msgs) != 0 {
		t.Fatalf("expected one failed write, got %d calls", w.calls)
	}
}

func TestPublishNothing(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, logger.NewDiscard())

	p.Publish()
	p.Publish(nil)
	closeProducer(t, p)

	if w.calls != 0 {
		t.Fatalf("expected no writes, got %d", w.calls)
	}
}

func TestCloseTimesOutOnStuckWrite(t *testing.T) {
	w := &fakeWriter{delay: time.Hour}
	p := newProducer(w, logger.NewDiscard())
	p.timeout = time.Second

	p.Publish(domain.NewProductEvent("e", domain.ProductCreated, domain.Product{ID: 1}, time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Close(ctx); err == nil {
		t.Fatalf("expected shutdown timeout error")
	}
	if !w.closed {
		t.Fatalf("writer must be closed even after timeout")
	}
}
