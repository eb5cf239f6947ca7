package repository

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/whiteelite/tokenforge/internal/domain/entities"
	mapper "github.com/whiteelite/tokenforge/internal/infrastructure/messaging/kafka/repositories/mapper"
	models "github.com/whiteelite/tokenforge/internal/infrastructure/messaging/kafka/repositories/models"
	"github.com/whiteelite/tokenforge/internal/log"
)

// Handler receives one decoded event. Returning an error stops consumption
// without committing the message.
type Handler func(ctx context.Context, event entities.LifecycleEvent) error

type Consumer struct {
	reader messageReader
}

func NewConsumer(p KafkaParams) (*Consumer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Consumer{reader: newReader(p)}, nil
}

// Consume reads events until ctx ends or handle fails. Undecodable messages
// are logged and committed so they do not block the group.
func (c *Consumer) Consume(ctx context.Context, handle Handler) error {
	for {
		data, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		event, err := decode(data.Value)
		if err != nil {
			log.Events.Warn().Err(err).Int64("offset", data.Offset).Msg("skipping malformed event")
		} else if err := handle(ctx, *event); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, data); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decode(value []byte) (*entities.LifecycleEvent, error) {
	model := new(models.Message)
	if err := json.Unmarshal(value, model); err != nil {
		return nil, err
	}
	if model.Type != EventType {
		return nil, fmt.Errorf("unexpected message type %q", model.Type)
	}
	return mapper.FromMessage[entities.LifecycleEvent](model)
}
