package tokens

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE saved_token (
  id          INTEGER PRIMARY KEY CHECK (id = 1),
  serialized  TEXT    NOT NULL,
  user_id     TEXT    NOT NULL,
  page_space  TEXT    NOT NULL DEFAULT '',
  expires_at  INTEGER NOT NULL,
  payload     BLOB    NOT NULL,
  saved_at    INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func record(user string, expires int64) Record {
	return Record{
		Serialized: "h." + user + ".s",
		UserID:     user,
		PageSpace:  "docs",
		ExpiresAt:  expires,
		Payload:    []byte(`{"user":"` + user + `"}`),
		SavedAt:    time.UnixMilli(1700000000123).UTC(),
	}
}

func TestSaveReplacesCurrent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, record("alice", 100)))
	require.NoError(t, r.Save(ctx, record("bob", 200)))

	got, err := r.Current(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(record("bob", 200), got); diff != "" {
		t.Errorf("Current mismatch (-want +got):\n%s", diff)
	}
}

func TestCurrent_NoneSaved(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Current(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Delete(ctx))
	require.NoError(t, r.Save(ctx, record("alice", 100)))
	require.NoError(t, r.Delete(ctx))

	_, err := r.Current(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_Defaults(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	assert.Error(t, r.Save(ctx, Record{UserID: "alice"}))

	before := time.Now().Add(-time.Second)
	require.NoError(t, r.Save(ctx, Record{Serialized: "h.p.s", UserID: "alice", ExpiresAt: 5}))
	got, err := r.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
	assert.True(t, got.SavedAt.After(before))
}

func TestRecord_Expired(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.True(t, Record{ExpiresAt: 1000}.Expired(now))
	assert.False(t, Record{ExpiresAt: 1001}.Expired(now))
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())
	ctx := context.Background()

	assert.ErrorContains(t, r.Save(ctx, record("alice", 1)), `save token for "alice"`)
	_, err := r.Current(ctx)
	assert.ErrorContains(t, err, "load token")
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, r.Delete(ctx), "delete token")
}
