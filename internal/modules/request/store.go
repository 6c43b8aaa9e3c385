// README: Request and assignment store backed by PostgreSQL.
package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"errandhub/internal/types"
)

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const requestColumns = `
	id, requester_id, title, description, service_type,
	pickup_lat, pickup_lng, destination_lat, destination_lng,
	offered_amount, offered_currency, status, payment_status, status_version,
	created_at, updated_at`

const assignmentColumns = `
	id, request_id, provider_id, status, status_version,
	provider_notes, completion_notes, estimated_completion, completed_at,
	created_at, updated_at`

func (s *Store) CreateRequest(ctx context.Context, r *ServiceRequest) error {
	var destLat, destLng *float64
	if r.Destination != nil {
		destLat, destLng = &r.Destination.Lat, &r.Destination.Lng
	}
	var amount *int64
	var currency *string
	if r.OfferedAmount != nil {
		amount, currency = &r.OfferedAmount.Amount, &r.OfferedAmount.Currency
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO service_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		string(r.ID), string(r.RequesterID), r.Title, r.Description, string(r.ServiceType),
		r.Pickup.Lat, r.Pickup.Lng, destLat, destLng,
		amount, currency, string(r.Status), string(r.PaymentStatus), r.StatusVersion,
		r.CreatedAt, r.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: request %s already exists", types.ErrConflict, r.ID)
	}
	return err
}

func (s *Store) GetRequest(ctx context.Context, id types.ID) (*ServiceRequest, error) {
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, string(id))
	r, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	return r, err
}

func (s *Store) ListByRequester(ctx context.Context, requesterID types.ID, page types.Page) ([]*ServiceRequest, error) {
	page = page.Clamp()
	rows, err := s.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC, id ASC
		OFFSET $2 LIMIT $3`,
		string(requesterID), page.Skip, page.Limit,
	)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *Store) ListOpen(ctx context.Context, q OpenQuery) ([]*ServiceRequest, error) {
	args := []any{string(StatusPending)}
	where := "status = $1"
	if q.Within != nil {
		args = append(args, q.Within.MinLat, q.Within.MaxLat, q.Within.MinLng, q.Within.MaxLng)
		where += " AND pickup_lat BETWEEN $2 AND $3 AND pickup_lng BETWEEN $4 AND $5"
	}
	if q.After != nil {
		args = append(args, q.After.CreatedAt, string(q.After.ID))
		where += fmt.Sprintf(" AND (created_at, id) > ($%d, $%d)", len(args)-1, len(args))
	}
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE ` + where +
		` ORDER BY created_at ASC, id ASC`
	if q.Skip > 0 {
		args = append(args, q.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// UpdatePending applies patch in one conditional write; nil fields keep their
// stored value through COALESCE. It reports false when the request exists but
// is no longer pending.
func (s *Store) UpdatePending(ctx context.Context, id types.ID, patch Patch, at time.Time) (*ServiceRequest, bool, error) {
	var destLat, destLng *float64
	if patch.Destination != nil {
		destLat, destLng = &patch.Destination.Lat, &patch.Destination.Lng
	}
	var amount *int64
	var currency *string
	if patch.OfferedAmount != nil {
		amount, currency = &patch.OfferedAmount.Amount, &patch.OfferedAmount.Currency
	}
	r, err := scanRequest(s.db.QueryRow(ctx, `
		UPDATE service_requests
		SET title = COALESCE($1::text, title),
		    description = COALESCE($2::text, description),
		    destination_lat = COALESCE($3::double precision, destination_lat),
		    destination_lng = COALESCE($4::double precision, destination_lng),
		    offered_amount = COALESCE($5::bigint, offered_amount),
		    offered_currency = COALESCE($6::text, offered_currency),
		    status_version = status_version + 1,
		    updated_at = $7
		WHERE id = $8 AND status = 'pending'
		RETURNING `+requestColumns,
		patch.Title, patch.Description, destLat, destLng, amount, currency, at, string(id),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM service_requests WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
			return nil, false, err
		}
		if !exists {
			return nil, false, ErrRequestNotFound
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (s *Store) DeletePending(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM service_requests r
		WHERE r.id = $1 AND r.status = 'pending'
		  AND NOT EXISTS (SELECT 1 FROM service_assignments a WHERE a.request_id = r.id)`,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CancelPending(ctx context.Context, id types.ID, version int, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_requests
		SET status = 'cancelled', status_version = status_version + 1, updated_at = $1
		WHERE id = $2 AND status = 'pending' AND status_version = $3`,
		at, string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CreateAssignment(ctx context.Context, a *Assignment, requestVersion int) (bool, error) {
	applied := false
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE service_requests
			SET status = $1, status_version = status_version + 1, updated_at = $2
			WHERE id = $3 AND status = 'pending' AND status_version = $4`,
			string(a.Status.RequestStatus()), a.CreatedAt, string(a.RequestID), requestVersion,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO service_assignments (`+assignmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			string(a.ID), string(a.RequestID), string(a.ProviderID), string(a.Status), a.StatusVersion,
			a.ProviderNotes, a.CompletionNotes, a.EstimatedCompletion, a.CompletedAt,
			a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *Store) GetAssignment(ctx context.Context, id types.ID) (*Assignment, error) {
	row := s.db.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM service_assignments WHERE id = $1`, string(id))
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	return a, err
}

func (s *Store) ActiveAssignment(ctx context.Context, requestID types.ID) (*Assignment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM service_assignments
		WHERE request_id = $1 AND status <> 'cancelled'`, string(requestID))
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	return a, err
}

func (s *Store) LatestAssignment(ctx context.Context, requestID types.ID) (*Assignment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM service_assignments
		WHERE request_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, string(requestID))
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	return a, err
}

func (s *Store) TransitionAssignment(ctx context.Context, t Transition) (bool, error) {
	applied := false
	var providerNotes, completionNotes *string
	if t.Notes != nil {
		if t.To == AssignmentCompleted {
			completionNotes = t.Notes
		} else {
			providerNotes = t.Notes
		}
	}
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE service_assignments
			SET status = $1,
			    status_version = status_version + 1,
			    provider_notes = COALESCE($2, provider_notes),
			    completion_notes = COALESCE($3, completion_notes),
			    completed_at = CASE WHEN $1 = 'completed' THEN COALESCE(completed_at, $4) ELSE completed_at END,
			    updated_at = $4
			WHERE id = $5 AND status = $6 AND status_version = $7`,
			string(t.To), providerNotes, completionNotes, t.At,
			string(t.AssignmentID), string(t.From), t.Version,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return nil
		}
		tag, err = tx.Exec(ctx, `
			UPDATE service_requests
			SET status = $1,
			    status_version = CASE WHEN status = $1 THEN status_version ELSE status_version + 1 END,
			    updated_at = $2
			WHERE id = $3 AND status = $4`,
			string(t.RequestTo), t.At, string(t.RequestID), string(t.RequestFrom),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			// request moved underneath us; undo the assignment write
			return errRollback
		}
		applied = true
		return nil
	})
	if errors.Is(err, errRollback) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

var errRollback = errors.New("rollback")

func (s *Store) SetPaymentStatus(ctx context.Context, requestID types.ID, from, to PaymentStatus, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE service_requests
		SET payment_status = $1, status_version = status_version + 1, updated_at = $2
		WHERE id = $3 AND status = 'completed' AND payment_status = $4`,
		string(to), at, string(requestID), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO request_events (
			request_id, assignment_id, from_status, to_status, actor_id, actor_role, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.RequestID),
		toStringPtr(e.AssignmentID),
		e.FromStatus,
		e.ToStatus,
		toStringPtr(e.ActorID),
		e.ActorRole,
		e.CreatedAt,
	)
	return err
}

func scanRequest(row pgx.Row) (*ServiceRequest, error) {
	var r ServiceRequest
	var destLat, destLng *float64
	var amount *int64
	var currency *string
	err := row.Scan(
		&r.ID, &r.RequesterID, &r.Title, &r.Description, &r.ServiceType,
		&r.Pickup.Lat, &r.Pickup.Lng, &destLat, &destLng,
		&amount, &currency, &r.Status, &r.PaymentStatus, &r.StatusVersion,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if destLat != nil && destLng != nil {
		r.Destination = &types.Point{Lat: *destLat, Lng: *destLng}
	}
	if amount != nil {
		m := types.Money{Amount: *amount, Currency: types.DefaultCurrency}
		if currency != nil && *currency != "" {
			m.Currency = *currency
		}
		r.OfferedAmount = &m
	}
	return &r, nil
}

func collectRequests(rows pgx.Rows) ([]*ServiceRequest, error) {
	defer rows.Close()
	out := make([]*ServiceRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(
		&a.ID, &a.RequestID, &a.ProviderID, &a.Status, &a.StatusVersion,
		&a.ProviderNotes, &a.CompletionNotes, &a.EstimatedCompletion, &a.CompletedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
