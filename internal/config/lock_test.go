package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "bridge.lock")

	first, err := AcquireLock(path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(b)))

	_, err = AcquireLock(path)
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorContains(t, err, strconv.Itoa(os.Getpid()))

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	second, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
