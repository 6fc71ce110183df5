package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried on the wire.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// CoinChangeMessage announces a coin mutation. It carries only the id and
// operation, consumers fetch the full record from the store.
type CoinChangeMessage struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCoinChangeMessage creates a change message stamped with the current time.
func NewCoinChangeMessage(id, op string) *CoinChangeMessage {
	return &CoinChangeMessage{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CoinChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CoinChangeMessageFromJSON creates a message from JSON bytes
func CoinChangeMessageFromJSON(data []byte) (*CoinChangeMessage, error) {
	var msg CoinChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
