package domain

import "errors"

var ErrTicketNotFound = errors.New("ticket not found")

type TicketKind string

const (
	TicketKindSingle TicketKind = "single"
	TicketKindSet    TicketKind = "set"
)

// Ticket is catalog metadata for one purchasable lottery number.
// Remaining is the initial stock used to seed the ledger.
type Ticket struct {
	ID          string     `json:"id" yaml:"id"`
	Number      string     `json:"number" yaml:"number"`
	DrawDate    string     `json:"drawDate" yaml:"drawDate"`
	Price       int64      `json:"price" yaml:"price"`
	Kind        TicketKind `json:"type" yaml:"type"`
	Remaining   int        `json:"remaining" yaml:"remaining"`
	Image       string     `json:"image" yaml:"image"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}
