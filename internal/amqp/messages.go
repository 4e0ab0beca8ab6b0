package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventKind names what happened to the ledger.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
	BudgetChanged      EventKind = "budget.changed"
	GoalCompleted      EventKind = "goal.completed"
)

// LedgerEvent is a lightweight notification about a ledger mutation.
// Consumers reload whatever they need from the store; Year and Month locate
// the calendar month the change belongs to.
type LedgerEvent struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	UserID   int64     `json:"user_id"`
	EntityID int64     `json:"entity_id"`
	TxType   string    `json:"tx_type,omitempty"`
	Year     int       `json:"year,omitempty"`
	Month    int       `json:"month,omitempty"`
	At       time.Time `json:"at"`
}

// NewLedgerEvent creates an event with a fresh id and timestamp.
func NewLedgerEvent(kind EventKind, userID, entityID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:       uuid.NewString(),
		Kind:     kind,
		UserID:   userID,
		EntityID: entityID,
		At:       time.Now(),
	}
}

// InMonth sets the calendar month of the event from t.
func (e *LedgerEvent) InMonth(t time.Time) *LedgerEvent {
	e.Year, e.Month = t.Year(), int(t.Month())
	return e
}

// IsTransaction reports whether the event was caused by a transaction change.
func (e *LedgerEvent) IsTransaction() bool {
	switch e.Kind {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
		return true
	}
	return false
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
