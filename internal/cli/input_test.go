package cli

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecret(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte("k"), nil }
	var out bytes.Buffer
	got, err := GetSecret(&out, "Key: ")
	require.NoError(t, err)
	assert.Equal(t, "k", string(got))
	assert.Equal(t, "Key: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetSecret(&out, "Key: ")
	assert.ErrorContains(t, err, "boom")
}

func TestReadLine(t *testing.T) {
	got, err := ReadLine(strings.NewReader("  abc.def.ghi \nnext\n"))
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got)

	got, err = ReadLine(strings.NewReader("last"))
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = ReadLine(strings.NewReader(""))
	assert.ErrorIs(t, err, io.EOF)
}

func TestIdentity(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	id := addIdentity(fs)
	require.NoError(t, fs.Parse([]string{"-user", "alice", "-email", "a@example.com"}))

	assert.True(t, id.set())
	u := id.user()
	assert.Equal(t, "alice", u.ID)
	require.NotNil(t, u.Email)
	assert.Equal(t, "a@example.com", *u.Email)
	assert.Nil(t, u.DisplayName)

	assert.False(t, (&identity{}).set())
	assert.True(t, (&identity{suffix: "shared"}).set())

	assert.Nil(t, fs.Lookup("saved"))
	fs = flag.NewFlagSet("t", flag.ContinueOnError)
	id = addStorageIdentity(fs)
	require.NoError(t, fs.Parse([]string{"-saved"}))
	assert.True(t, id.saved)
	assert.False(t, id.set())
}

func TestHelpers(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.Equal(t, int64(0), expiresAt(now, 0))
	assert.Equal(t, int64(1060), expiresAt(now, time.Minute))

	assert.Nil(t, splitMethods(""))
	assert.Equal(t, []string{"GET", "PUT"}, splitMethods(" get, ,put"))

	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KiB", humanSize(1536))
	assert.Equal(t, "2.0 MiB", humanSize(2<<20))
}
