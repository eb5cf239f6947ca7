package mapper

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestFromMessage_RejectsTamperedContent(t *testing.T) {
	msg, err := ToMessage(uuid.New(), "t", &payload{Name: "a"})
	require.NoError(t, err)

	msg.Content = `{"name":"b"}`
	_, err = FromMessage[payload](msg)
	assert.ErrorIs(t, err, ErrHashMismatch)
}
