package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, rec Record) error {
	if rec.Serialized == "" {
		return errors.New("save token: empty serialized form")
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}
	if rec.Payload == nil {
		rec.Payload = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_token (id, serialized, user_id, page_space, expires_at, payload, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			serialized = excluded.serialized,
			user_id = excluded.user_id,
			page_space = excluded.page_space,
			expires_at = excluded.expires_at,
			payload = excluded.payload,
			saved_at = excluded.saved_at
	`, rec.Serialized, rec.UserID, rec.PageSpace, rec.ExpiresAt, rec.Payload, rec.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save token for %q: %w", rec.UserID, err)
	}
	return nil
}

func (r *SQLiteRepository) Current(ctx context.Context) (Record, error) {
	var (
		rec   Record
		saved int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT serialized, user_id, page_space, expires_at, payload, saved_at
		FROM saved_token WHERE id = 1`,
	).Scan(&rec.Serialized, &rec.UserID, &rec.PageSpace, &rec.ExpiresAt, &rec.Payload, &saved)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load token: %w", err)
	}
	rec.SavedAt = time.UnixMilli(saved).UTC()
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saved_token`); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
