package models

import "github.com/google/uuid"

// Message is the envelope written to the topic. Content is the JSON encoded
// payload and Hash its sha256, hex encoded.
type Message struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"`
	Content string    `json:"content"`
	Hash    string    `json:"hash"`
}
