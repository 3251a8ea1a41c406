package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/resourcehub/internal/repository"
)

// TokenKey is the well-known key the bearer token is stored under.
const TokenKey = "token"

var _ repository.SessionRepository = (*DB)(nil)

// GetToken returns the stored token, or "" when the user is logged out.
func (db *DB) GetToken(ctx context.Context) (string, error) {
	var token string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM session WHERE key = ?`, TokenKey,
	).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("sqlite: reading session token: %w", err)
	}
	return token, nil
}

// SaveToken writes the token, replacing any previous one.
//
// UPSERT:
// "INSERT ... ON CONFLICT(key) DO UPDATE" does the insert-or-replace in one
// statement, so a crash can never leave two tokens behind.
func (db *DB) SaveToken(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO session (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		TokenKey, token, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session token: %w", err)
	}
	return nil
}

// DeleteToken clears the token. Deleting when nothing is stored is not an error.
func (db *DB) DeleteToken(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM session WHERE key = ?`, TokenKey,
	); err != nil {
		return fmt.Errorf("sqlite: deleting session token: %w", err)
	}
	return nil
}
