package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the version of the Event envelope layout.
const EnvelopeVersion = 1

// Event is the envelope every message is wrapped in.
type Event struct {
	EventID          string            `json:"event_id"`
	EventType        string            `json:"event_type"`
	AggregateID      string            `json:"aggregate_id"`
	AggregateType    string            `json:"aggregate_type"`
	AggregateVersion int               `json:"aggregate_version,omitempty"`
	Version          int               `json:"version"`
	Timestamp        time.Time         `json:"timestamp"`
	Source           string            `json:"source"`
	CorrelationID    string            `json:"correlation_id,omitempty"`
	Data             json.RawMessage   `json:"data"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh ID and the current time.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", eventType, err)
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       EnvelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          raw,
		Metadata:      make(map[string]string),
	}, nil
}

// WithCorrelationID sets the correlation ID.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithAggregateVersion records the aggregate's version after the change.
func (e *Event) WithAggregateVersion(v int) *Event {
	e.AggregateVersion = v
	return e
}

// WithMetadata adds a key-value pair.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Marshal serializes the event.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent parses an envelope.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
