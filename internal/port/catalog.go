package port

import (
	"context"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

type Catalog interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)

	// GetTicket returns domain.ErrTicketNotFound for unknown ids
	GetTicket(ctx context.Context, id string) (domain.Ticket, error)
}
