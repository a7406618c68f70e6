package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-presale/internal/domain"
	"solana-presale/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const selectEventColumns = `
	SELECT event_id, sale_id, seq, kind, account, counterparty,
		amount::text, secondary::text, event_ts, created_at
	FROM ledger_events
`

// Append adds a new event. Returns ErrDuplicateKey if event_id or (sale_id, seq) exists.
func (s *EventStore) Append(ctx context.Context, e *domain.LedgerEvent) error {
	if err := storage.ValidateEvent(e); err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_events (
			event_id, sale_id, seq, kind, account, counterparty, amount, secondary, event_ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		e.EventID,
		e.SaleID,
		int64(e.Seq),
		string(e.Kind),
		e.Account,
		e.Counterparty,
		formatAmount(e.Amount),
		formatAmount(e.Secondary),
		e.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// GetBySale retrieves all events of a sale, ordered by seq ASC.
func (s *EventStore) GetBySale(ctx context.Context, saleID string) ([]*domain.LedgerEvent, error) {
	query := selectEventColumns + `
		WHERE sale_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("get events by sale: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByAccount retrieves all events of a sale touching an account, ordered by seq ASC.
func (s *EventStore) GetByAccount(ctx context.Context, saleID, account string) ([]*domain.LedgerEvent, error) {
	query := selectEventColumns + `
		WHERE sale_id = $1 AND (account = $2 OR counterparty = $2)
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, saleID, account)
	if err != nil {
		return nil, fmt.Errorf("get events by account: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByKind retrieves all events of a sale with the given kind, ordered by seq ASC.
func (s *EventStore) GetByKind(ctx context.Context, saleID string, kind domain.EventKind) ([]*domain.LedgerEvent, error) {
	query := selectEventColumns + `
		WHERE sale_id = $1 AND kind = $2
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, saleID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("get events by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByID retrieves a single event. Returns ErrNotFound if not exists.
func (s *EventStore) GetByID(ctx context.Context, eventID string) (*domain.LedgerEvent, error) {
	query := selectEventColumns + `
		WHERE event_id = $1
	`

	e, err := scanEvent(s.pool.QueryRow(ctx, query, eventID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get event by id: %w", err)
	}
	return e, nil
}

// scanEvent scans a single row into a LedgerEvent.
func scanEvent(row pgx.Row) (*domain.LedgerEvent, error) {
	var (
		e         domain.LedgerEvent
		seq       int64
		kind      string
		amount    string
		secondary string
	)

	err := row.Scan(
		&e.EventID,
		&e.SaleID,
		&seq,
		&kind,
		&e.Account,
		&e.Counterparty,
		&amount,
		&secondary,
		&e.Timestamp,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Seq = uint64(seq)
	e.Kind = domain.EventKind(kind)
	if e.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	if e.Secondary, err = parseAmount(secondary); err != nil {
		return nil, err
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of LedgerEvent.
func scanEvents(rows pgx.Rows) ([]*domain.LedgerEvent, error) {
	var events []*domain.LedgerEvent

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger event row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger event rows: %w", err)
	}

	return events, nil
}
