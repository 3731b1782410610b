// Package catalog loads ticket metadata and saved carts from YAML or JSON
// files.
package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

type catalogFile struct {
	Tickets []domain.Ticket `yaml:"tickets"`
}

// FileCatalog is an immutable, in-memory catalog read once at startup.
type FileCatalog struct {
	tickets []domain.Ticket
	byID    map[string]int
}

// Load reads path. JSON files parse too since YAML is a superset of it.
func Load(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*FileCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Tickets)
}

func New(tickets []domain.Ticket) (*FileCatalog, error) {
	c := &FileCatalog{byID: make(map[string]int, len(tickets))}
	for _, t := range tickets {
		if t.ID == "" {
			return nil, fmt.Errorf("catalog: ticket %q has no id", t.Number)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate ticket id %s", t.ID)
		}
		if t.Remaining < 0 || t.Price < 0 {
			return nil, fmt.Errorf("catalog: ticket %s has negative stock or price", t.ID)
		}
		if t.Kind == "" {
			t.Kind = domain.TicketKindSingle
		}
		c.byID[t.ID] = len(c.tickets)
		c.tickets = append(c.tickets, t)
	}
	return c, nil
}

func (c *FileCatalog) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	out := make([]domain.Ticket, len(c.tickets))
	copy(out, c.tickets)
	return out, nil
}

func (c *FileCatalog) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return c.tickets[i], nil
}
