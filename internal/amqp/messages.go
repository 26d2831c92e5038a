package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventLedgerChanged is the type of every ledger change notification.
const EventLedgerChanged = "ledger.changed"

// Entity names the table a ledger event refers to.
type Entity string

const (
	EntityIncome   Entity = "income"
	EntityExpense  Entity = "expense"
	EntityDocument Entity = "document"
)

// Action tells consumers whether the record still exists.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// LedgerEvent is a lightweight change notification. It carries only the
// record identity and version; consumers read the current row from the store.
type LedgerEvent struct {
	Type      string    `json:"type"`
	Entity    Entity    `json:"entity"`
	Action    Action    `json:"action"`
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent creates a ledger.changed event stamped with the current time.
func NewLedgerEvent(entity Entity, action Action, id string, version int64) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventLedgerChanged,
		Entity:    entity,
		Action:    action,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// DedupeKey identifies one delivery of one record version.
func (e *LedgerEvent) DedupeKey() string {
	return fmt.Sprintf("%s:%s:%s:%d", e.Entity, e.ID, e.Action, e.Version)
}

func (e *LedgerEvent) Validate() error {
	switch e.Entity {
	case EntityIncome, EntityExpense, EntityDocument:
	default:
		return fmt.Errorf("unknown entity %q", e.Entity)
	}
	switch e.Action {
	case ActionUpsert, ActionDelete:
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	if e.ID == "" {
		return fmt.Errorf("missing id")
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
