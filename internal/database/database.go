package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reporter/internal/config"
)

// Error describes a database failure. Op distinguishes connection
// failures from query failures so the operator can tell an unreachable
// server from a broken statement.
type Error struct {
	Op  string // "connect" or "query"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewDatabase opens a connection for the configured driver and verifies
// it with a ping. The vending database is read-only for this system.
func NewDatabase(cfg config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Database)
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}

	// One query per run; a large pool has nothing to do here.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(2)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, &Error{Op: "connect", Err: err}
	}

	return db, nil
}

// Close releases the underlying connection. Registered as a lifecycle
// hook so the connection is returned on every exit path.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlserver":
		return sqlserver.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
