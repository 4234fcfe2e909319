package ledger

import (
	"strings"
	"time"
	"unicode/utf8"

	"ticket-ledger/models"
)

type TxKind string

const (
	TxIssue    TxKind = "issue"
	TxTransfer TxKind = "transfer"
	TxRedeem   TxKind = "redeem"
)

// Transaction records one ticket-affecting action. Event is set only for
// issue transactions and NewOwner only for transfers.
type Transaction struct {
	Kind      TxKind        `json:"kind"`
	TicketID  string        `json:"ticket_id"`
	Owner     string        `json:"owner"`
	Event     *models.Event `json:"event,omitempty"`
	NewOwner  string        `json:"new_owner,omitempty"`
	CreatedAt int64         `json:"created_at"`
}

func NewIssue(ticketID, owner string, event models.Event, at time.Time) Transaction {
	return Transaction{
		Kind:      TxIssue,
		TicketID:  ticketID,
		Owner:     owner,
		Event:     &event,
		CreatedAt: at.UnixNano(),
	}
}

func NewTransfer(ticketID, owner, newOwner string, at time.Time) Transaction {
	return Transaction{
		Kind:      TxTransfer,
		TicketID:  ticketID,
		Owner:     owner,
		NewOwner:  newOwner,
		CreatedAt: at.UnixNano(),
	}
}

func NewRedeem(ticketID, owner string, at time.Time) Transaction {
	return Transaction{
		Kind:      TxRedeem,
		TicketID:  ticketID,
		Owner:     owner,
		CreatedAt: at.UnixNano(),
	}
}

// clone returns a copy that shares no memory with tx.
func (tx Transaction) clone() Transaction {
	if tx.Event != nil {
		ev := *tx.Event
		tx.Event = &ev
	}
	return tx
}

// validUTF8 reports whether every string field is valid UTF-8. The JSON
// hash encoding maps invalid bytes to U+FFFD, so only valid strings hash
// injectively.
func (tx Transaction) validUTF8() bool {
	fields := []string{string(tx.Kind), tx.TicketID, tx.Owner, tx.NewOwner}
	if tx.Event != nil {
		fields = append(fields, tx.Event.Name, tx.Event.City, tx.Event.Venue, tx.Event.TimeSlot)
	}
	for _, f := range fields {
		if !utf8.ValidString(f) {
			return false
		}
	}
	return true
}

func sanitize(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func sanitizeEvent(e models.Event) models.Event {
	e.Name = sanitize(e.Name)
	e.City = sanitize(e.City)
	e.Venue = sanitize(e.Venue)
	e.TimeSlot = sanitize(e.TimeSlot)
	return e
}

// txPayload is the hashed form of a transaction. Fields are declared in
// alphabetical key order so the JSON encoding is canonical.
type txPayload struct {
	CreatedAt int64         `json:"created_at"`
	Event     *eventPayload `json:"event,omitempty"`
	Kind      TxKind        `json:"kind"`
	NewOwner  string        `json:"new_owner,omitempty"`
	Owner     string        `json:"owner"`
	TicketID  string        `json:"ticket_id"`
}

type eventPayload struct {
	City     string `json:"city"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	TimeSlot string `json:"time_slot"`
	Venue    string `json:"venue"`
}

func (tx Transaction) payload() txPayload {
	p := txPayload{
		CreatedAt: tx.CreatedAt,
		Kind:      tx.Kind,
		NewOwner:  tx.NewOwner,
		Owner:     tx.Owner,
		TicketID:  tx.TicketID,
	}
	if tx.Event != nil {
		p.Event = &eventPayload{
			City:     tx.Event.City,
			Name:     tx.Event.Name,
			Price:    tx.Event.Price.String(),
			TimeSlot: tx.Event.TimeSlot,
			Venue:    tx.Event.Venue,
		}
	}
	return p
}
