package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/DRSN-tech/catalog-backend/internal/cfg"
	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 15 * time.Second

// MessageWriter — часть kafka.Writer, которой пользуется Producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer публикует изменения каталога в Kafka. Ключ сообщения — id товара,
// поэтому события одного товара попадают в одну партицию.
// Отправка идёт в фоне и не задерживает запрос, ошибки только логируются.
type Producer struct {
	writer  MessageWriter
	logger  logger.Logger
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchSize:              100,
		BatchTimeout:           100 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}

	return newProducer(writer, logger)
}

func newProducer(writer MessageWriter, logger logger.Logger) *Producer {
	return &Producer{
		writer:  writer,
		logger:  logger,
		timeout: publishTimeout,
	}
}

// Publish отправляет события одним вызовом WriteMessages в отдельной горутине.
func (p *Producer) Publish(events ...*domain.ProductEvent) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event == nil {
			continue
		}
		msg, err := toMessage(event)
		if err != nil {
			p.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		// не зависит от запроса: при остановке Close дожидается отправок в пути
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			p.logger.Warnf("failed to publish %d product events: %v", len(msgs), e.Wrap(whereami.WhereAmI(), err))
			return
		}
		p.logger.Debugf("published %d product events", len(msgs))
	}()
}

// Close дожидается отправок в пути (не дольше ctx) и закрывает writer.
func (p *Producer) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = fmt.Errorf("kafka publish timeout during shutdown: %w", ctx.Err())
	}

	if err := p.writer.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return waitErr
}

func toMessage(event *domain.ProductEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ProductID, 10)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}
