package overlay

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/bondweb/internal/database"
)

const (
	loadOverlaySQL = `SELECT payload::text FROM overlay_state WHERE key = $1`

	saveOverlaySQL = `
		INSERT INTO overlay_state (key, payload, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
)

// PostgresBackend stores each dataset's blob as one row of overlay_state.
// A save is a single upsert, so readers never observe a partial write.
type PostgresBackend struct {
	db  database.DBTX
	key string
}

// NewPostgresBackend returns a backend for the row identified by key.
func NewPostgresBackend(db database.DBTX, key string) *PostgresBackend {
	return &PostgresBackend{db: db, key: key}
}

func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var payload string
	err := b.db.QueryRow(ctx, loadOverlaySQL, b.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select overlay_state %s: %w", b.key, err)
	}
	return []byte(payload), nil
}

func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	if _, err := b.db.Exec(ctx, saveOverlaySQL, b.key, string(data)); err != nil {
		return fmt.Errorf("upsert overlay_state %s: %w", b.key, err)
	}
	return nil
}
