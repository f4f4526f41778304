package flagx

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet() (*flag.FlagSet, *string, *bool) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", "", "")
	deep := fs.Bool("deep", false, "")
	return fs, user, deep
}

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"separate value", []string{"-user", "alice", "-x", "1"}, []string{"-user", "alice"}},
		{"equals form", []string{"--user=alice", "-x"}, []string{"--user=alice"}},
		{"double dash", []string{"--user", "alice"}, []string{"--user", "alice"}},
		{"bool takes no value", []string{"-deep", "docs"}, []string{"-deep"}},
		{"bool with explicit value", []string{"-deep=false", "docs"}, []string{"-deep=false"}},
		{"unknown ignored", []string{"-x", "1", "positional"}, []string{}},
		{"missing value at end", []string{"-user"}, []string{"-user"}},
		{"next token is a flag", []string{"-user", "-deep"}, []string{"-user", "-deep"}},
		{"repeated preserved", []string{"-user", "a", "-user", "b"}, []string{"-user", "a", "-user", "b"}},
		{"terminator stops", []string{"--", "-user", "a"}, []string{}},
		{"empty", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, _, _ := newSet()
			assert.Equal(t, tt.want, FilterArgs(tt.args, fs))
		})
	}
}

func TestParse_ReturnsRemainingArgs(t *testing.T) {
	fs, user, deep := newSet()

	rest, err := Parse(fs, []string{"ls", "-storage", "x", "-user", "alice", "docs", "-deep", "--", "-literal"})
	require.NoError(t, err)
	assert.Equal(t, "alice", *user)
	assert.True(t, *deep)
	assert.Equal(t, []string{"ls", "-storage", "x", "docs", "-literal"}, rest)

	fs, _, _ = newSet()
	_, err = Parse(fs, []string{"-deep=maybe"})
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/path/short.json", ConfigPath([]string{"-c", "/path/short.json"}))
	assert.Equal(t, "/path/long.json", ConfigPath([]string{"token", "-config", "/path/long.json", "-user", "a"}))
	assert.Equal(t, "/path/2.json", ConfigPath([]string{"-c", "/path/1.json", "--config=/path/2.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1", "-y", "2"}))
}
