package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical telemetry envelope for sync-layer events
// published to NATS (mutation outcomes, optimistic rollbacks).
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	ProductID     string          `json:"product_id"`
	Resource      ResourceType    `json:"resource"`
	EventType     string          `json:"event_type"` // e.g. "mutation.succeeded", "optimistic.rolled_back"
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}
