package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/s/peripatos/internal/config"
	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/storage"
	"github.com/s/peripatos/internal/storage/memstore"
	"github.com/s/peripatos/internal/storage/sqlstore"
)

var (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.Open(cfg.DatabaseURL), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DatabaseURL), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
}

// Connect opens the SQL database, retrying while it is still starting up.
func Connect(cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	level := gormlogger.Warn
	if cfg.IsProduction() {
		level = gormlogger.Error
	}

	var db *gorm.DB
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dial, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
		if err == nil {
			log.Info("connected to database", "driver", cfg.DBDriver)
			return db, nil
		}
		log.Warn("database connection attempt failed", "attempt", i+1, "error", err)
		time.Sleep(connectBackoff)
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, err)
}

// OpenStore returns the document store selected by cfg along with a
// function releasing it.
func OpenStore(cfg *config.Config, log *logger.Logger) (storage.Store, func() error, error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Warn("using in-memory document store, data is lost on exit")
		return memstore.New(), func() error { return nil }, nil
	}

	db, err := Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBDriver == config.DriverSQLite {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	return sqlstore.New(db), sqlDB.Close, nil
}
