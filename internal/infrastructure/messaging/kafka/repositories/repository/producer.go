package repository

import (
	"context"
	"errors"
	"sync"

	json "github.com/goccy/go-json"

	sdk "github.com/segmentio/kafka-go"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	mapper "github.com/whiteelite/tokenforge/internal/infrastructure/messaging/kafka/repositories/mapper"
	"github.com/whiteelite/tokenforge/internal/log"
)

var (
	ErrPublisherClosed = errors.New("kafka: publisher closed")
	ErrBufferFull      = errors.New("kafka: event buffer full")
)

// Publisher writes lifecycle events from a single background worker so a
// slow broker never holds up a submission.
type Publisher struct {
	writer messageWriter
	bucket chan entities.LifecycleEvent
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ repositories.EventPublisher = (*Publisher)(nil)

func NewPublisher(p KafkaParams) (*Publisher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return newPublisher(newWriter(p), p.BufferSize), nil
}

func newPublisher(w messageWriter, size int) *Publisher {
	if size <= 0 {
		size = defaultBufferSize
	}
	p := &Publisher{writer: w, bucket: make(chan entities.LifecycleEvent, size)}
	p.wg.Add(1)
	go p.startProducer()
	return p
}

// Publish enqueues the event. It never blocks on the broker.
func (p *Publisher) Publish(_ context.Context, event entities.LifecycleEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.bucket <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *Publisher) startProducer() {
	defer p.wg.Done()

	for event := range p.bucket {
		msg, err := encode(event)
		if err != nil {
			log.Events.Error().Err(err).Str("signature", string(event.Signature)).Msg("encode event")
			continue
		}
		if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
			log.Events.Error().Err(err).Str("signature", string(event.Signature)).Msg("write event")
			continue
		}
		log.Events.Debug().Str("operation", string(event.Operation)).Str("signature", string(event.Signature)).Msg("event published")
	}
}

// Close drains queued events, then closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.bucket)
	p.mu.Unlock()

	p.wg.Wait()
	return p.writer.Close()
}

func encode(event entities.LifecycleEvent) (sdk.Message, error) {
	model, err := mapper.ToMessage(event.ID, EventType, &event)
	if err != nil {
		return sdk.Message{}, err
	}
	serialized, err := json.Marshal(model)
	if err != nil {
		return sdk.Message{}, err
	}
	return sdk.Message{
		Key:   []byte(event.Mint),
		Value: serialized,
	}, nil
}
