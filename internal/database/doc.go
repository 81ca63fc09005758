// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations
//	├── errors.go        # SQLite constraint error classification
//	├── publishers/      # Publisher CRUD and natural-key resolution
//	├── authors/         # Author CRUD, natural-key resolution, document links
//	├── documents/       # Book/paper inserts, polymorphic fetches, deletes
//	└── users/           # User accounts
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./bibman.db")
//
//	// Create domain-specific repositories
//	pubRepo := publishers.NewRepository(db.DB)
//	docRepo := documents.NewRepository(db.DB)
//
//	// Use repositories
//	created, id, err := docRepo.InsertBook(&book)
//
// One *gorm.DB is opened at startup and shared by every repository; each
// multi-statement operation runs inside its own transaction.
package database
