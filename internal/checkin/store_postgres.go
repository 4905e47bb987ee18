package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatepass/backend/internal/models"
)

// PostgresStore is the durable Store backed by pgx. The schema carries a
// unique index on (registration_id, checkpoint_name), so duplicate scans
// are rejected by the store itself rather than by read-then-write logic.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed check-in store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetRegistration loads a registration and its checkpoint history.
func (s *PostgresStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT id, event_id, user_id, responses, status, token, token_secret,
		approved_by, approved_at, rejected_by, rejected_at, created_at, updated_at
		FROM registrations WHERE id = $1`
	var reg models.Registration
	err := s.pool.QueryRow(ctx, q, id).Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Responses, &reg.Status,
		&reg.Token, &reg.TokenSecret, &reg.ApprovedBy, &reg.ApprovedAt, &reg.RejectedBy, &reg.RejectedAt,
		&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("load registration: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT id, registration_id, checkpoint_name, actor_id, created_at
		FROM checkpoint_checkins WHERE registration_id = $1 ORDER BY created_at, checkpoint_name`, id)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec models.CheckpointCheckIn
		if err := rows.Scan(&rec.ID, &rec.RegistrationID, &rec.Checkpoint, &rec.ActorID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint record: %w", err)
		}
		reg.CheckIns = append(reg.CheckIns, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load checkpoint history: %w", err)
	}
	return &reg, nil
}

// GetEvent loads the event referenced by a registration.
func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, title, description, starts_at, ends_at, created_by,
		checkpoints, unlocked_checkpoints, registration_form, created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := s.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.CreatedBy, &e.Checkpoints, &e.UnlockedCheckpoints, &e.RegistrationForm, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return &e, nil
}

// AppendCheckpoint records a scan inside one transaction. The registration
// row is locked first so a scan cannot race an approval/rejection or a
// concurrent scan on the same pair; the unique index backs this up even
// across the lock.
func (s *PostgresStore) AppendCheckpoint(ctx context.Context, registrationID uuid.UUID, checkpoint string, actorID uuid.UUID) (models.CheckpointCheckIn, bool, error) {
	var rec models.CheckpointCheckIn
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return rec, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.Status
	err = tx.QueryRow(ctx, `SELECT status FROM registrations WHERE id = $1 FOR UPDATE`, registrationID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, false, ErrRegistrationNotFound
		}
		return rec, false, fmt.Errorf("lock registration: %w", err)
	}
	if !status.CanCheckIn() {
		return rec, false, ErrRegistrationNotApproved
	}

	rec.RegistrationID = registrationID
	rec.Checkpoint = checkpoint
	rec.ActorID = actorID
	inserted := true
	err = tx.QueryRow(ctx, `INSERT INTO checkpoint_checkins (id, registration_id, checkpoint_name, actor_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (registration_id, checkpoint_name) DO NOTHING
		RETURNING id, created_at`, registrationID, checkpoint, actorID).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return rec, false, fmt.Errorf("insert checkpoint record: %w", err)
		}
		// Pair already recorded: idempotent re-scan, return the winner.
		inserted = false
		err = tx.QueryRow(ctx, `SELECT id, actor_id, created_at FROM checkpoint_checkins
			WHERE registration_id = $1 AND checkpoint_name = $2`, registrationID, checkpoint).
			Scan(&rec.ID, &rec.ActorID, &rec.CreatedAt)
		if err != nil {
			return rec, false, fmt.Errorf("load existing checkpoint record: %w", err)
		}
	}

	if inserted && status == models.StatusApproved {
		if _, err := tx.Exec(ctx, `UPDATE registrations SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3`, models.StatusCheckedIn, registrationID, models.StatusApproved); err != nil {
			return rec, false, fmt.Errorf("transition status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return rec, false, fmt.Errorf("commit: %w", err)
	}
	return rec, inserted, nil
}
