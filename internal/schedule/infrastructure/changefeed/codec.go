// Package changefeed turns task store writes into change notifications and
// exposes them to the reconciliation engine as a reconcile.Feed.
package changefeed

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// Encode renders a change as its wire envelope {"kind":..., "record":...}.
func Encode(ev domain.ChangeEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses an envelope written by Encode.
func Decode(body []byte) (domain.ChangeEvent, error) {
	var raw struct {
		Kind   string      `json:"kind"`
		Record domain.Task `json:"record"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("decode change: %w", err)
	}
	kind, err := domain.ParseChangeKind(raw.Kind)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	if raw.Record.ID == uuid.Nil {
		return domain.ChangeEvent{}, fmt.Errorf("decode change: record has no id")
	}
	return domain.ChangeEvent{Kind: kind, Record: raw.Record}, nil
}

// notification is the payload of the tasks_notify trigger. It names the row
// but does not carry it.
type notification struct {
	Kind      domain.ChangeKind
	ID        uuid.UUID
	ProfileID uuid.UUID
}

// decodeNotification parses a tasks_notify payload.
func decodeNotification(payload string) (notification, error) {
	var raw struct {
		Kind      string    `json:"kind"`
		ID        uuid.UUID `json:"id"`
		ProfileID uuid.UUID `json:"profile_id"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return notification{}, fmt.Errorf("decode notification: %w", err)
	}
	kind, err := domain.ParseChangeKind(raw.Kind)
	if err != nil {
		return notification{}, err
	}
	if raw.ID == uuid.Nil {
		return notification{}, fmt.Errorf("decode notification: no task id")
	}
	return notification{Kind: kind, ID: raw.ID, ProfileID: raw.ProfileID}, nil
}
