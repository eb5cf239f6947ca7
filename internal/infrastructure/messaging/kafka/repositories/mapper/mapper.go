package mapper

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	json "github.com/goccy/go-json"

	"github.com/google/uuid"
	"github.com/whiteelite/tokenforge/internal/infrastructure/messaging/kafka/repositories/models"
	shared "github.com/whiteelite/tokenforge/pkg/shared/domain/entities"
)

var ErrHashMismatch = errors.New("mapper: message hash does not match content")

// ToMessage serializes entity and stamps the content hash checked by FromMessage.
func ToMessage[T shared.Entity](id uuid.UUID, typ string, entity *T) (*models.Message, error) {
	serialized, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:      id,
		Type:    typ,
		Content: string(serialized),
		Hash:    hash(serialized),
	}, nil
}

func FromMessage[T shared.Entity](message *models.Message) (*T, error) {
	if hash([]byte(message.Content)) != message.Hash {
		return nil, ErrHashMismatch
	}
	entity := new(T)
	if err := json.Unmarshal([]byte(message.Content), entity); err != nil {
		return nil, err
	}

	return entity, nil
}

func hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
