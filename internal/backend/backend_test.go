package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
)

func TestOpenMemorySeedsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.csv"),
		[]byte("id,user_id,name,type,currency,balance\nchk,u1,Checking,checking,PHP,1500.50\n"), 0o644))

	res, err := Open(&config.Config{DataBackend: "memory", SeedDir: dir}, nil)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, MemoryBackend, res.Type)
	assert.Nil(t, res.Ready)
	assert.False(t, res.Type.Shared())

	accounts, err := res.Store.ListAccounts(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "1500.5", accounts[0].Balance.String())
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fintrack.db")

	res, err := Open(&config.Config{DataBackend: "sqlite", SQLiteDBPath: path}, nil)
	require.NoError(t, err)
	defer res.Close()

	assert.True(t, res.Type.Shared())
	require.NotNil(t, res.Ready)
	assert.NoError(t, res.Ready(context.Background()))
	assert.FileExists(t, path)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(&config.Config{DataBackend: "sheets"}, nil)
	assert.ErrorContains(t, err, "unsupported backend type")

	_, err = Open(nil, nil)
	assert.Error(t, err)

	_, err = Open(&config.Config{DataBackend: "sqlite"}, nil)
	assert.ErrorContains(t, err, "path is required")
}

func TestTypeIsValid(t *testing.T) {
	assert.True(t, SQLiteBackend.IsValid())
	assert.True(t, MemoryBackend.IsValid())
	assert.False(t, Type("sheets").IsValid())
	assert.Equal(t, "sqlite", SQLiteBackend.String())
}
