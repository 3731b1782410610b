package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

//go:embed schema.sql
var schemaSQL string

// MySQLAdapter serves both the stock ledger and the ticket catalog from MySQL.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT remaining FROM stock_ledger WHERE ticket_id = ? FOR UPDATE`, ticketID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Insufficient(0), nil
	}
	if err != nil {
		return domain.StockResult{}, fmt.Errorf("lock stock: %w", err)
	}
	if current < quantity {
		return domain.Insufficient(current), nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE stock_ledger
		SET remaining = remaining - ?, version = version + 1, updated_at = NOW()
		WHERE ticket_id = ? AND remaining >= ?`,
		quantity, ticketID, quantity,
	)
	if err != nil {
		return domain.StockResult{}, fmt.Errorf("update stock: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.Insufficient(current), nil
	}

	if err := tx.Commit(); err != nil {
		return domain.StockResult{}, fmt.Errorf("commit reserve: %w", err)
	}
	return domain.Reserved(quantity, current-quantity), nil
}

func (m *MySQLAdapter) Release(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_ledger (ticket_id, remaining) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE remaining = remaining + ?, version = version + 1, updated_at = NOW()`,
		ticketID, quantity, quantity,
	)
	if err != nil {
		return domain.StockResult{}, fmt.Errorf("credit stock: %w", err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `
		SELECT remaining FROM stock_ledger WHERE ticket_id = ?`, ticketID,
	).Scan(&remaining); err != nil {
		return domain.StockResult{}, fmt.Errorf("read stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.StockResult{}, fmt.Errorf("commit release: %w", err)
	}
	return domain.Released(quantity, remaining), nil
}

func (m *MySQLAdapter) Seed(ctx context.Context, ticketID string, initial int) (bool, error) {
	if initial < 0 {
		return false, domain.ErrInvalidQuantity
	}

	result, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO stock_ledger (ticket_id, remaining) VALUES (?, ?)`,
		ticketID, initial,
	)
	if err != nil {
		return false, fmt.Errorf("seed stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (m *MySQLAdapter) Remaining(ctx context.Context, ticketID string) (int, error) {
	var remaining int
	err := m.db.QueryRowContext(ctx, `
		SELECT remaining FROM stock_ledger WHERE ticket_id = ?`, ticketID,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return remaining, nil
}

func (m *MySQLAdapter) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, number, draw_date, price, kind, initial_stock, image, description
		FROM tickets ORDER BY draw_date, number`)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

func (m *MySQLAdapter) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, number, draw_date, price, kind, initial_stock, image, description
		FROM tickets WHERE id = ?`, id)

	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, err
}

// SaveTicket inserts or updates catalog metadata. It never touches the ledger.
func (m *MySQLAdapter) SaveTicket(ctx context.Context, t domain.Ticket) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO tickets (id, number, draw_date, price, kind, initial_stock, image, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE number = VALUES(number), draw_date = VALUES(draw_date),
			price = VALUES(price), kind = VALUES(kind), initial_stock = VALUES(initial_stock),
			image = VALUES(image), description = VALUES(description)`,
		t.ID, t.Number, t.DrawDate, t.Price, string(t.Kind), t.Remaining, t.Image, nullString(t.Description),
	)
	if err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(s rowScanner) (domain.Ticket, error) {
	var (
		t    domain.Ticket
		kind string
		desc sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Number, &t.DrawDate, &t.Price, &kind, &t.Remaining, &t.Image, &desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Ticket{}, err
		}
		return domain.Ticket{}, fmt.Errorf("scan ticket: %w", err)
	}
	t.Kind = domain.TicketKind(kind)
	t.Description = desc.String
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
