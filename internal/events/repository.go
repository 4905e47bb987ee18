package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatepass/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, description, starts_at, ends_at, created_by,
	checkpoints, unlocked_checkpoints, registration_form, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }, e *models.Event) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.CreatedBy,
		&e.Checkpoints, &e.UnlockedCheckpoints, &e.RegistrationForm, &e.CreatedAt, &e.UpdatedAt)
}

// Create inserts a new event with its checkpoint list.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, starts_at, ends_at, created_by, checkpoints, unlocked_checkpoints, registration_form)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.StartsAt, e.EndsAt, e.CreatedBy,
		e.Checkpoints, e.UnlockedCheckpoints, e.RegistrationForm).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var e models.Event
	err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id), &e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns all events, newest start first.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update updates event fields (title, description, starts_at, ends_at).
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description string, startsAt, endsAt *time.Time) error {
	const q = `UPDATE events SET
		title = COALESCE(NULLIF($1, ''), title), description = COALESCE(NULLIF($2, ''), description),
		starts_at = COALESCE($3, starts_at), ends_at = COALESCE($4, ends_at), updated_at = NOW()
		WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, title, description, startsAt, endsAt, id)
	return err
}

// UpdateRegistrationForm replaces the organizer-defined form config.
func (r *Repository) UpdateRegistrationForm(ctx context.Context, id uuid.UUID, form []byte) error {
	const q = `UPDATE events SET registration_form = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, form, id)
	return err
}

// SetUnlockedCheckpoints replaces the set of checkpoints open for scanning.
func (r *Repository) SetUnlockedCheckpoints(ctx context.Context, id uuid.UUID, unlocked []string) error {
	const q = `UPDATE events SET unlocked_checkpoints = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, unlocked, id)
	return err
}
