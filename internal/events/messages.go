package events

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Event types double as AMQP routing keys.
const (
	TypeCreated = "transaction.created"
	TypeDeleted = "transaction.deleted"
)

// TransactionPayload is the wire form of a transaction.
type TransactionPayload struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Event reports a change to the transaction table.
type Event struct {
	Type        string             `json:"type"`
	Transaction TransactionPayload `json:"transaction"`
	Timestamp   time.Time          `json:"timestamp"`
}

func newEvent(typ string, t core.Transaction) Event {
	return Event{
		Type: typ,
		Transaction: TransactionPayload{
			ID:          t.ID,
			Date:        t.Date.ISO(),
			Category:    string(t.Category),
			Description: t.Description,
			Amount:      t.Amount,
		},
		Timestamp: time.Now().UTC(),
	}
}

// Created builds the event published after a transaction is stored.
func Created(t core.Transaction) Event { return newEvent(TypeCreated, t) }

// Deleted builds the event published after a transaction is removed.
func Deleted(t core.Transaction) Event { return newEvent(TypeDeleted, t) }

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type != TypeCreated && e.Type != TypeDeleted {
		return Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	return e, nil
}

// ToTransaction converts the payload back to a domain transaction.
func (p TransactionPayload) ToTransaction() (core.Transaction, error) {
	d, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	c, err := core.ParseCategory(p.Category)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{ID: p.ID, Date: d, Category: c, Description: p.Description, Amount: p.Amount}, nil
}
