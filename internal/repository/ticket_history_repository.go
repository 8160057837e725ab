package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-relay/internal/domain"
)

// TicketHistoryRepository stores audit entries. Entries are write-only for the
// relay itself; tickets are never rebuilt from them.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds the postgres-backed repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, actor_id, change_type, old_status, new_status, details)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id::text, created_at`
	return r.pool.QueryRow(ctx, query,
		history.TicketID,
		string(history.ActorID),
		history.ChangeType,
		history.OldStatus,
		history.NewStatus,
		history.Details,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id::text, ticket_id, actor_id, change_type, old_status, new_status, details, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var (
			history domain.TicketHistory
			actor   string
		)
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&actor,
			&history.ChangeType,
			&history.OldStatus,
			&history.NewStatus,
			&history.Details,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		history.ActorID = domain.Identity(actor)
		result = append(result, history)
	}
	return result, rows.Err()
}

// memoryHistoryRepository keeps audit entries in process memory when no
// database is configured.
type memoryHistoryRepository struct {
	mu      sync.Mutex
	entries map[string][]domain.TicketHistory
	seq     int
}

// NewMemoryTicketHistoryRepository returns an in-process repository.
func NewMemoryTicketHistoryRepository() TicketHistoryRepository {
	return &memoryHistoryRepository{entries: make(map[string][]domain.TicketHistory)}
}

func (r *memoryHistoryRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	history.ID = fmt.Sprintf("h-%d", r.seq)
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}
	r.entries[history.TicketID] = append(r.entries[history.TicketID], *history)
	return nil
}

func (r *memoryHistoryRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries[ticketID]), nil
}
