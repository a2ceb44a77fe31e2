package flagutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandList(t *testing.T) {
	list := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(list, []byte("001\n\n  002 \n003"), 0o644))

	got, err := ExpandList([]string{"010", FilePrefix + list})
	require.NoError(t, err)
	assert.Equal(t, []string{"010", "001", "002", "003"}, got)

	got, err = ExpandList(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandListMissingFile(t *testing.T) {
	_, err := ExpandList([]string{FilePrefix + filepath.Join(t.TempDir(), "none")})
	assert.Error(t, err)
}
