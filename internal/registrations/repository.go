package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatepass/backend/internal/models"
)

var (
	// ErrNotFound means no registration exists with the given ID.
	ErrNotFound = errors.New("registration not found")
	// ErrNotPending means an approve/reject hit a registration that has
	// already been decided or checked in. Decisions are one-shot.
	ErrNotPending = errors.New("registration is not pending")
	// ErrAlreadyRegistered means the user already has a registration for
	// the event; the original token is never reissued.
	ErrAlreadyRegistered = errors.New("already registered for this event")
)

const uniqueViolation = "23505"

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const regColumns = `id, event_id, user_id, responses, status, token, token_secret,
	approved_by, approved_at, rejected_by, rejected_at, created_at, updated_at`

func scanRegistration(row pgx.Row, reg *models.Registration) error {
	return row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Responses, &reg.Status, &reg.Token,
		&reg.TokenSecret, &reg.ApprovedBy, &reg.ApprovedAt, &reg.RejectedBy, &reg.RejectedAt,
		&reg.CreatedAt, &reg.UpdatedAt)
}

// Create inserts a registration with its one-time token. The ID, token and
// secret are generated by the caller before insert so the token can embed
// the registration ID. Unique per (event, user) and per token.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, event_id, user_id, responses, token, token_secret)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING status, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, reg.ID, reg.EventID, reg.UserID, reg.Responses, reg.Token, reg.TokenSecret).
		Scan(&reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetByID returns a registration with its checkpoint history.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	var reg models.Registration
	err := scanRegistration(r.pool.QueryRow(ctx, `SELECT `+regColumns+` FROM registrations WHERE id = $1`, id), &reg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadCheckIns(ctx, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListByEvent returns all registrations for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+regColumns+` FROM registrations WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := scanRegistration(rows, &reg); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// CountByEvent returns total, approved and checked-in registration counts.
func (r *Repository) CountByEvent(ctx context.Context, eventID uuid.UUID) (total, approved, checkedIn int, err error) {
	const q = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'approved'),
		COUNT(*) FILTER (WHERE status = 'checked_in')
		FROM registrations WHERE event_id = $1`
	err = r.pool.QueryRow(ctx, q, eventID).Scan(&total, &approved, &checkedIn)
	return total, approved, checkedIn, err
}

// Approve moves a pending registration to approved. The status check and
// the write are one statement, so a decision racing a scan or another
// decision resolves at the database.
func (r *Repository) Approve(ctx context.Context, id, actorID uuid.UUID) (*models.Registration, error) {
	return r.decide(ctx, id, actorID, `UPDATE registrations
		SET status = 'approved', approved_by = $2, approved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+regColumns)
}

// Reject moves a pending registration to rejected (terminal).
func (r *Repository) Reject(ctx context.Context, id, actorID uuid.UUID) (*models.Registration, error) {
	return r.decide(ctx, id, actorID, `UPDATE registrations
		SET status = 'rejected', rejected_by = $2, rejected_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+regColumns)
}

func (r *Repository) decide(ctx context.Context, id, actorID uuid.UUID, q string) (*models.Registration, error) {
	var reg models.Registration
	err := scanRegistration(r.pool.QueryRow(ctx, q, id, actorID), &reg)
	if err == nil {
		return &reg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("decide registration: %w", err)
	}
	// No row updated: either missing or already decided.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrNotPending
}

// RecipientEmail returns the applicant's email for notifications.
func (r *Repository) RecipientEmail(ctx context.Context, registrationID uuid.UUID) (string, error) {
	const q = `SELECT u.email FROM users u JOIN registrations r ON r.user_id = u.id WHERE r.id = $1`
	var email string
	if err := r.pool.QueryRow(ctx, q, registrationID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func (r *Repository) loadCheckIns(ctx context.Context, reg *models.Registration) error {
	rows, err := r.pool.Query(ctx, `SELECT id, registration_id, checkpoint_name, actor_id, created_at
		FROM checkpoint_checkins WHERE registration_id = $1 ORDER BY created_at, checkpoint_name`, reg.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rec models.CheckpointCheckIn
		if err := rows.Scan(&rec.ID, &rec.RegistrationID, &rec.Checkpoint, &rec.ActorID, &rec.CreatedAt); err != nil {
			return err
		}
		reg.CheckIns = append(reg.CheckIns, rec)
	}
	return rows.Err()
}
