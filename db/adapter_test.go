package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/textadventure/server/config"
)

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "game.db")
	gdb, err := Open(config.DatabaseConfig{Mode: ModeSQLite, SQLitePath: path})
	require.NoError(t, err)
	require.NoError(t, gdb.Exec("CREATE TABLE t (id INTEGER)").Error)
	assert.FileExists(t, path)
}

func TestOpen_Memory(t *testing.T) {
	gdb, err := Open(config.DatabaseConfig{Mode: ModeSQLite, SQLitePath: MemoryPath})
	require.NoError(t, err)
	require.NoError(t, gdb.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, gdb.Exec("INSERT INTO t VALUES (1)").Error)
	var n int64
	require.NoError(t, gdb.Table("t").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "oracle"})
	assert.Error(t, err)
	_, err = Open(config.DatabaseConfig{Mode: ModeMySQL})
	assert.Error(t, err)
}
