package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"connection closed", errors.New("connection closed"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"channel not open", errors.New("channel/connection is not open"), true},
		{"unrelated error", errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestCoinChangeMessageJSON(t *testing.T) {
	msg := NewCoinChangeMessage("coin-123", OpUpdated)
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded, err := CoinChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("CoinChangeMessageFromJSON() error = %v", err)
	}
	if decoded.ID != "coin-123" || decoded.Op != OpUpdated {
		t.Errorf("decoded = %+v, want id coin-123 op updated", decoded)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("decoded timestamp is zero")
	}
}

func TestCoinChangeMessageFromJSONInvalid(t *testing.T) {
	if _, err := CoinChangeMessageFromJSON([]byte("not json")); err == nil {
		t.Error("CoinChangeMessageFromJSON() accepted invalid payload")
	}
}
