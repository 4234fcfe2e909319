package models

type TicketStatus string

const (
	TicketValid    TicketStatus = "valid"
	TicketRedeemed TicketStatus = "redeemed"
)

// Ticket is the current state of one ticket as projected from the ledger.
type Ticket struct {
	ID     string       `json:"id"`
	Owner  string       `json:"owner"`
	Status TicketStatus `json:"status"`
	Event  Event        `json:"event"`
}
