package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bookgrading/pkg/config"
	"bookgrading/pkg/models"
)

// Dialector picks the gorm driver for a connection string. SQLAlchemy style
// URLs ("postgresql+psycopg2://", "sqlite:///books.db") are accepted.
func Dialector(dsn string) (gorm.Dialector, error) {
	scheme, rest, hasScheme := strings.Cut(dsn, "://")
	if !hasScheme {
		if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:" {
			return sqlite.Open(sqliteDSN(dsn)), nil
		}
		// libpq key=value form
		return postgres.Open(dsn), nil
	}

	if base, _, ok := strings.Cut(scheme, "+"); ok {
		scheme = base
	}
	switch scheme {
	case "postgres", "postgresql":
		return postgres.Open("postgres://" + rest), nil
	case "sqlite":
		// sqlite:///relative.db and sqlite:////abs/path.db
		return sqlite.Open(sqliteDSN(strings.TrimPrefix(rest, "/"))), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

type Options struct {
	Attempts int
	Delay    time.Duration
	LogLevel logger.LogLevel
}

func OptionsFrom(cfg config.Database) Options {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	return Options{
		Attempts: cfg.ConnectAttempts,
		Delay:    cfg.ConnectDelay,
		LogLevel: level,
	}
}

// Open connects and migrates the schema, retrying up to opts.Attempts times.
// It gives up with an error once the attempts are exhausted or ctx is done.
func Open(ctx context.Context, dsn string, opts Options) (*gorm.DB, error) {
	dialector, err := Dialector(dsn)
	if err != nil {
		return nil, err
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	var lastErr error
	for i := 0; i < opts.Attempts; i++ {
		db, err := connect(ctx, dialector, opts.LogLevel)
		if err == nil {
			log.Println("[db] database connected")
			return db, nil
		}
		lastErr = err
		log.Printf("[db] waiting for database (attempt %d/%d): %v", i+1, opts.Attempts, err)

		if i == opts.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connect cancelled: %w", ctx.Err())
		case <-time.After(opts.Delay):
		}
	}
	return nil, fmt.Errorf("database unavailable after %d attempts: %w", opts.Attempts, lastErr)
}

func connect(ctx context.Context, dialector gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dialector.Name() == "sqlite" {
		// every new connection to :memory: is a fresh empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := Migrate(db.WithContext(ctx)); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
