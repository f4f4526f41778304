package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/swiftvfs/internal/models"
	"github.com/dmitrijs2005/swiftvfs/internal/repositories/tokens"
)

func TestOpen_MigratesAndServes(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "state.db")

	repos, err := Open(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, repos.Tokens.Save(ctx, tokens.Record{Serialized: "t", UserID: "alice", ExpiresAt: 1}))
	require.NoError(t, repos.Files.Upsert(ctx, "scope", models.RemoteFile{Name: "a", RemotePath: "a"}))
	require.NoError(t, repos.Close())

	// reopening runs migrations again without effect
	repos, err = Open(ctx, dsn)
	require.NoError(t, err)
	defer repos.Close()

	rec, err := repos.Tokens.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", rec.Serialized)

	list, err := repos.Files.List(ctx, "scope")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpen_MigrationFailure(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })
	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("locked") }

	_, err := Open(context.Background(), ":memory:")
	assert.ErrorContains(t, err, "locked")
}
