package ledger

import (
	"fmt"

	"ticket-ledger/internal/status"
	"ticket-ledger/models"
)

// Registry projects the transaction log into the current state of every
// ticket. It is not safe for concurrent use; the owning Ledger serializes
// access.
type Registry struct {
	tickets map[string]*models.Ticket
}

func NewRegistry() *Registry {
	return &Registry{tickets: make(map[string]*models.Ticket)}
}

// Get returns a copy of the ticket's current state.
func (r *Registry) Get(ticketID string) (models.Ticket, bool) {
	t, ok := r.tickets[ticketID]
	if !ok {
		return models.Ticket{}, false
	}
	return *t, true
}

func (r *Registry) Len() int {
	return len(r.tickets)
}

// check reports whether tx may be applied, without changing anything.
func (r *Registry) check(tx Transaction) Result {
	t, exists := r.tickets[tx.TicketID]
	switch tx.Kind {
	case TxIssue:
		if exists {
			return InvalidState
		}
		return Ok
	case TxTransfer, TxRedeem:
		if !exists {
			return NotFound
		}
		if t.Status != models.TicketValid {
			return InvalidState
		}
		return Ok
	default:
		return InvalidState
	}
}

// Apply folds one transaction into the projection. It is the only way the
// registry changes, both for live submissions and for chain replay.
func (r *Registry) Apply(tx Transaction) error {
	if res := r.check(tx); res != Ok {
		return fmt.Errorf("apply %s %s: %w", tx.Kind, tx.TicketID, res.Err())
	}

	switch tx.Kind {
	case TxIssue:
		t := &models.Ticket{ID: tx.TicketID, Owner: tx.Owner, Status: models.TicketValid}
		if tx.Event != nil {
			t.Event = *tx.Event
		}
		r.tickets[tx.TicketID] = t
	case TxTransfer:
		r.tickets[tx.TicketID].Owner = tx.NewOwner
	case TxRedeem:
		r.tickets[tx.TicketID].Status = models.TicketRedeemed
	}
	return nil
}

// Result is the outcome of a ticket command.
type Result int

const (
	Ok Result = iota
	NotFound
	InvalidState
)

func (r Result) OK() bool { return r == Ok }

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case NotFound:
		return "not_found"
	case InvalidState:
		return "invalid_state"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Err maps the result onto the package's sentinel errors. Ok maps to nil.
func (r Result) Err() error {
	switch r {
	case Ok:
		return nil
	case NotFound:
		return status.ErrTicketNotFound
	default:
		return status.ErrTicketNotValid
	}
}
