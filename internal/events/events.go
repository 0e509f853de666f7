// Package events publishes prediction events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// TypePredictionCreated is emitted once per successful single prediction.
const TypePredictionCreated = "prediction.created"

// Publisher delivers a payload to a topic and returns the broker's
// message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
	Close() error
}

// PredictionCreated is the payload of a TypePredictionCreated event.
type PredictionCreated struct {
	Type            string      `json:"type"`
	PredictionID    string      `json:"prediction_id"`
	RequestID       string      `json:"request_id,omitempty"`
	UserID          string      `json:"user_id,omitempty"`
	ModelName       string      `json:"model_name"`
	PredictedSalary json.Number `json:"predicted_salary"`
	Currency        string      `json:"currency"`
	Period          string      `json:"period"`
	CreatedAt       time.Time   `json:"created_at"`
}

// EventType reports the event type for broker attributes.
func (e PredictionCreated) EventType() string {
	return e.Type
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) (string, error) {
	return "", nil
}

// Close implements Publisher.
func (Nop) Close() error {
	return nil
}
