package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kasuganosora/textadventure/server/config"
	dbmysql "github.com/kasuganosora/textadventure/server/db/mysql"
	dbsqlite "github.com/kasuganosora/textadventure/server/db/sqlite"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"

	// MemoryPath opens a private in-memory SQLite database.
	MemoryPath = ":memory:"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("db: mysql mode needs database.mysql_dsn")
		}
		return dbmysql.Open(dbmysql.Options{
			DSN:     cfg.MySQLDSN,
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		})
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
