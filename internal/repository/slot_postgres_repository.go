package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// slotsSchema creates the key-value table the Postgres backend persists into.
const slotsSchema = `CREATE TABLE IF NOT EXISTS lms_slots (
    key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

type slotRow struct {
	Key       string    `db:"key"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PostgresSlotRepository persists collection payloads as rows of lms_slots.
type PostgresSlotRepository struct {
	db *sqlx.DB
}

// NewPostgresSlotRepository constructs the repository.
func NewPostgresSlotRepository(db *sqlx.DB) *PostgresSlotRepository {
	return &PostgresSlotRepository{db: db}
}

// EnsureSchema creates the slots table when missing.
func (r *PostgresSlotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, slotsSchema); err != nil {
		return fmt.Errorf("create lms_slots: %w", err)
	}
	return nil
}

// Get fetches the payload stored under key.
func (r *PostgresSlotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT key, payload, updated_at FROM lms_slots WHERE key = $1`
	var row slotRow
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot %s: %w", key, err)
	}
	return []byte(row.Payload), nil
}

// Set upserts the payload under key.
func (r *PostgresSlotRepository) Set(ctx context.Context, key string, payload []byte) error {
	const query = `INSERT INTO lms_slots (key, payload, updated_at)
VALUES (:key, :payload, :updated_at)
ON CONFLICT (key)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	row := slotRow{Key: key, Payload: string(payload), UpdatedAt: time.Now().UTC()}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert slot %s: %w", key, err)
	}
	return nil
}
