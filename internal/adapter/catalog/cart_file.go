package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/lottery-cart/internal/core/service"
)

type cartFile struct {
	Carts []struct {
		SessionID string `yaml:"sessionId"`
		Items     []struct {
			CartID     string    `yaml:"cartId"`
			TicketID   string    `yaml:"ticketId"`
			Quantity   int       `yaml:"quantity"`
			ReservedAt time.Time `yaml:"reservedAt"`
		} `yaml:"items"`
	} `yaml:"carts"`
}

// LoadCarts reads a cart bootstrap file.
func LoadCarts(path string) ([]service.CartSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read carts: %w", err)
	}
	return ParseCarts(data)
}

func ParseCarts(data []byte) ([]service.CartSnapshot, error) {
	var f cartFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse carts: %w", err)
	}

	snaps := make([]service.CartSnapshot, 0, len(f.Carts))
	for _, c := range f.Carts {
		snap := service.CartSnapshot{SessionID: c.SessionID}
		for _, it := range c.Items {
			snap.Lines = append(snap.Lines, service.SnapshotLine{
				CartID:     it.CartID,
				TicketID:   it.TicketID,
				Quantity:   it.Quantity,
				ReservedAt: it.ReservedAt,
			})
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
