// README: Rating persistence: Postgres store and an in-memory twin for tests.
package rating

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"errandhub/internal/types"
)

var ErrDuplicate = fmt.Errorf("%w: assignment already rated by this user", types.ErrConflict)

type Repository interface {
	Create(ctx context.Context, r *Rating) error
	ListForUser(ctx context.Context, rateeID types.ID, page types.Page) ([]*Rating, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Rating) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ratings (id, assignment_id, request_id, rater_id, ratee_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(r.ID), string(r.AssignmentID), string(r.RequestID),
		string(r.RaterID), string(r.RateeID), r.Score, r.Comment, r.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *Store) ListForUser(ctx context.Context, rateeID types.ID, page types.Page) ([]*Rating, error) {
	page = page.Clamp()
	rows, err := s.db.Query(ctx, `
		SELECT id, assignment_id, request_id, rater_id, ratee_id, score, comment, created_at
		FROM ratings
		WHERE ratee_id = $1
		ORDER BY created_at DESC, id ASC
		OFFSET $2 LIMIT $3`,
		string(rateeID), page.Skip, page.Limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Rating, error) {
		var r Rating
		err := row.Scan(&r.ID, &r.AssignmentID, &r.RequestID, &r.RaterID, &r.RateeID, &r.Score, &r.Comment, &r.CreatedAt)
		return &r, err
	})
}

type MemoryRepository struct {
	mu      sync.Mutex
	ratings []*Rating
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Create(_ context.Context, r *Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.ratings {
		if existing.AssignmentID == r.AssignmentID && existing.RaterID == r.RaterID {
			return ErrDuplicate
		}
	}
	cp := *r
	m.ratings = append(m.ratings, &cp)
	return nil
}

func (m *MemoryRepository) ListForUser(_ context.Context, rateeID types.ID, page types.Page) ([]*Rating, error) {
	m.mu.Lock()
	out := make([]*Rating, 0)
	for _, r := range m.ratings {
		if r.RateeID == rateeID {
			cp := *r
			out = append(out, &cp)
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return types.Apply(out, page.Clamp()), nil
}
