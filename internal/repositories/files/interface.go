// Package files caches the file records of a storage scope in the local
// state database, so a listing can be shown before the storage answers.
package files

import (
	"context"

	"github.com/dmitrijs2005/swiftvfs/internal/models"
)

// Repository keeps RemoteFile records per scope. A scope is the
// container-relative prefix the records are relative to.
type Repository interface {
	// Upsert stores f, replacing the record with the same remote path.
	Upsert(ctx context.Context, scope string, f models.RemoteFile) error
	// Delete removes the record at remotePath. A missing record is not an error.
	Delete(ctx context.Context, scope, remotePath string) error
	// List returns the records of scope ordered by remote path.
	List(ctx context.Context, scope string) ([]models.RemoteFile, error)
	// Replace makes files the exact content of scope.
	Replace(ctx context.Context, scope string, files []models.RemoteFile) error
}
