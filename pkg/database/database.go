package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"taskflow-backend/pkg/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the database selected by cfg.Storage
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		return NewPostgresConnection(cfg.DatabaseURL)
	case config.StorageSQLite:
		return NewSQLiteConnection(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown STORAGE %q (want %s or %s)", cfg.Storage, config.StoragePostgres, config.StorageSQLite)
	}
}

func NewPostgresConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Println("[Database] Connected to postgres")
	return db, nil
}

// NewSQLiteConnection opens a single-file database through the pure-Go
// driver. ":memory:" keeps everything in process.
func NewSQLiteConnection(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps :memory: shared
	sqlDB.SetMaxOpenConns(1)

	log.Printf("[Database] Opened sqlite database %s", path)
	return db, nil
}
