package repository

import (
	"context"
	"errors"

	sdk "github.com/segmentio/kafka-go"
)

const (
	defaultBufferSize = 256
	// EventType tags lifecycle event envelopes.
	EventType = "token.lifecycle"
)

// KafkaParams configures the lifecycle event producer and consumer.
type KafkaParams struct {
	// Required
	Brokers []string
	Topic   string

	// Optional
	GroupID    string
	BufferSize int
}

func (p KafkaParams) Validate() error {
	if len(p.Brokers) == 0 {
		return errors.New("kafka brokers are required")
	}
	if p.Topic == "" {
		return errors.New("kafka topic is required")
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (sdk.Message, error)
	CommitMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

func newWriter(p KafkaParams) *sdk.Writer {
	return &sdk.Writer{
		Addr:         sdk.TCP(p.Brokers...),
		Topic:        p.Topic,
		RequiredAcks: sdk.RequireAll,
		// Keyed by mint so one mint's events stay ordered.
		Balancer: &sdk.Hash{},
	}
}

func newReader(p KafkaParams) *sdk.Reader {
	return sdk.NewReader(sdk.ReaderConfig{
		Brokers: p.Brokers,
		Topic:   p.Topic,
		GroupID: p.GroupID,
	})
}
