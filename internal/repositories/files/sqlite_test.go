package files

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/swiftvfs/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE files (
  scope        TEXT    NOT NULL,
  remote_path  TEXT    NOT NULL,
  name         TEXT    NOT NULL,
  content_type TEXT    NOT NULL DEFAULT '',
  size         INTEGER NOT NULL DEFAULT 0,
  created_at   INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (scope, remote_path)
);`)
	require.NoError(t, err)
	return db
}

func file(p string, size int64) models.RemoteFile {
	return models.RemoteFile{
		Name:         p[len(p)-5:],
		Type:         "text/plain",
		Size:         size,
		CreationDate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		RemotePath:   p,
		Status:       models.StatusSuccess,
	}
}

func TestUpsertAndList_PerScope(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "site/alice/docs", file("b/x.txt", 1)))
	require.NoError(t, r.Upsert(ctx, "site/alice/docs", file("a/y.txt", 2)))
	require.NoError(t, r.Upsert(ctx, "site/alice/docs", file("b/x.txt", 3)))
	require.NoError(t, r.Upsert(ctx, "site/bob/docs", file("c/z.txt", 4)))

	got, err := r.List(ctx, "site/alice/docs")
	require.NoError(t, err)
	want := []models.RemoteFile{file("a/y.txt", 2), file("b/x.txt", 3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteAndReplace(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "s", file("a/1.txt", 1)))
	require.NoError(t, r.Delete(ctx, "s", "a/1.txt"))
	require.NoError(t, r.Delete(ctx, "s", "missing"))

	got, err := r.List(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, r.Upsert(ctx, "s", file("old/.txt", 1)))
	require.NoError(t, r.Replace(ctx, "s", []models.RemoteFile{file("n/1.txt", 1), file("n/2.txt", 2)}))
	got, err = r.List(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n/1.txt", got[0].RemotePath)
}

func TestReplace_RollsBackOnFailure(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "s", file("keep.txt", 1)))
	_, err := db.Exec(`CREATE TRIGGER no_big BEFORE INSERT ON files WHEN NEW.size > 100 BEGIN SELECT RAISE(ABORT, 'too big'); END;`)
	require.NoError(t, err)

	err = r.Replace(ctx, "s", []models.RemoteFile{file("ok/1.txt", 1), file("no/2.txt", 1000)})
	require.Error(t, err)

	got, err := r.List(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep.txt", got[0].RemotePath)
}
