package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcosta/bibman/internal/entities"
)

func TestNewDatabase_CreatesTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bibman.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"publishers", "authors", "documents", "books", "papers", "writes", "users"} {
		assert.True(t, db.DB.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestNewDatabase_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bibman.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&entities.Publisher{Name: "ACM"}).Error)
	require.NoError(t, db.Close())

	// Creating tables is idempotent and data survives
	db, err = NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int64
	require.NoError(t, db.DB.Model(&entities.Publisher{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIsUniqueViolation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bibman.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.DB.Create(&entities.Publisher{Name: "ACM"}).Error)

	err = db.DB.Create(&entities.Publisher{Name: "ACM"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestIsUniqueViolation_OtherErrors(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(os.ErrNotExist))
	assert.False(t, IsForeignKeyViolation(os.ErrNotExist))
}

func TestNewDatabase_WritesReferencesEnforced(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bibman.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	// A link row pointing at a document or author that does not exist is
	// rejected, not stored.
	err = db.DB.Exec("INSERT INTO writes (document_id, author_id) VALUES (?, ?)", 1, 1).Error
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}

func TestIsForeignKeyViolation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bibman.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	bogus := uint(999)
	err = db.DB.Create(&entities.Document{Title: "X", Year: 2020, Type: entities.DocumentTypeBook, PublisherID: &bogus}).Error
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}
