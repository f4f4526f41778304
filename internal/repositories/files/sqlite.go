package files

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/dbx"
	"github.com/dmitrijs2005/swiftvfs/internal/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const upsertQuery = `
	INSERT INTO files (scope, remote_path, name, content_type, size, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(scope, remote_path) DO UPDATE SET
		name = excluded.name,
		content_type = excluded.content_type,
		size = excluded.size,
		created_at = excluded.created_at
`

func upsert(ctx context.Context, db dbx.DBTX, scope string, f models.RemoteFile) error {
	var created int64
	if !f.CreationDate.IsZero() {
		created = f.CreationDate.UnixMilli()
	}
	if _, err := db.ExecContext(ctx, upsertQuery, scope, f.RemotePath, f.Name, f.Type, f.Size, created); err != nil {
		return fmt.Errorf("upsert file %q: %w", f.RemotePath, err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, scope string, f models.RemoteFile) error {
	return upsert(ctx, r.db, scope, f)
}

func (r *SQLiteRepository) Delete(ctx context.Context, scope, remotePath string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE scope = ? AND remote_path = ?`, scope, remotePath)
	if err != nil {
		return fmt.Errorf("delete file %q: %w", remotePath, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, scope string) ([]models.RemoteFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT remote_path, name, content_type, size, created_at
		FROM files WHERE scope = ? ORDER BY remote_path`, scope)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []models.RemoteFile
	for rows.Next() {
		var (
			f       models.RemoteFile
			created int64
		)
		if err := rows.Scan(&f.RemotePath, &f.Name, &f.Type, &f.Size, &created); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if created != 0 {
			f.CreationDate = time.UnixMilli(created).UTC()
		}
		f.Status = models.StatusSuccess
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, scope string, files []models.RemoteFile) error {
	return dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE scope = ?`, scope); err != nil {
			return fmt.Errorf("clear scope %q: %w", scope, err)
		}
		for _, f := range files {
			if err := upsert(ctx, tx, scope, f); err != nil {
				return err
			}
		}
		return nil
	})
}
