package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcosta/bibman/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (creating if necessary) the SQLite file at dbPath and
// ensures all tables exist. Foreign key enforcement is switched on so that
// dangling references are rejected rather than silently stored.
func NewDatabase(dbPath string) (*Database, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities. The writes join table is created from the
	// Document/Author association together with its foreign keys.
	err = db.AutoMigrate(
		&entities.Publisher{},
		&entities.Author{},
		&entities.Document{},
		&entities.Book{},
		&entities.Paper{},
		&entities.User{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
