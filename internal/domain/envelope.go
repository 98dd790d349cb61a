package domain

import (
	"encoding/json"
	"fmt"
)

// Envelope is the prepared-notification payload the multiplexer emits after
// enrichment. It travels over the event bus, so it marshals with an explicit
// kind tag that lets the sender decode the snapshot back into its concrete
// family type.
type Envelope struct {
	TemplateID string
	EventName  string
	RecordID   string
	Data       Snapshot
}

type envelopeWire struct {
	TemplateID string          `json:"template_id"`
	EventName  string          `json:"event_name"`
	RecordID   string          `json:"id"`
	Kind       SnapshotKind    `json:"kind"`
	Data       json.RawMessage `json:"data"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Data == nil {
		return nil, fmt.Errorf("%w: envelope has no snapshot", ErrValidation)
	}

	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s snapshot: %w", e.Data.Kind(), err)
	}

	return json.Marshal(envelopeWire{
		TemplateID: e.TemplateID,
		EventName:  e.EventName,
		RecordID:   e.RecordID,
		Kind:       e.Data.Kind(),
		Data:       data,
	})
}

func (e *Envelope) UnmarshalJSON(raw []byte) error {
	var wire envelopeWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	snapshot, err := NewSnapshot(wire.Kind)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(wire.Data, snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal %s snapshot: %w", wire.Kind, err)
	}

	e.TemplateID = wire.TemplateID
	e.EventName = wire.EventName
	e.RecordID = wire.RecordID
	e.Data = snapshot
	return nil
}
