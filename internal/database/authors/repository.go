// Package authors provides database operations for author management and the
// document/author join table.
//
// # Usage
//
//	repo := authors.NewRepository(db)
//	id, err := repo.GetOrCreate(&author)
//	err = repo.Link(documentID, id)
package authors

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mcosta/bibman/internal/database"
	"github.com/mcosta/bibman/internal/entities"
)

// Repository handles all author database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new authors repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreate inserts the author and returns its id. (LastName,
// RemainingName) is the natural key: a duplicate insert resolves to the
// existing row's id instead of failing.
func (r *Repository) GetOrCreate(author *entities.Author) (uint, error) {
	return GetOrCreateTx(r.db, author)
}

// GetOrCreateTx is GetOrCreate running on a caller-supplied transaction
// handle, for use inside multi-statement document inserts.
func GetOrCreateTx(tx *gorm.DB, author *entities.Author) (uint, error) {
	err := tx.Create(author).Error
	if err == nil {
		return author.AuthorID, nil
	}
	if !database.IsUniqueViolation(err) {
		return 0, fmt.Errorf("failed to insert author: %w", err)
	}

	var existing entities.Author
	err = tx.Where("last_name = ? AND remaining_name = ?", author.LastName, author.RemainingName).
		First(&existing).Error
	if err != nil {
		return 0, fmt.Errorf("failed to resolve existing author %q: %w", author.FullName(), err)
	}
	author.AuthorID = existing.AuthorID
	return existing.AuthorID, nil
}

// Link records that the author wrote the document. Linking a pair that is
// already linked is a no-op, not an error.
func (r *Repository) Link(documentID, authorID uint) error {
	return LinkTx(r.db, documentID, authorID)
}

// LinkTx is Link running on a caller-supplied transaction handle.
func LinkTx(tx *gorm.DB, documentID, authorID uint) error {
	err := tx.Exec("INSERT INTO writes (document_id, author_id) VALUES (?, ?)", documentID, authorID).Error
	if err != nil && !database.IsUniqueViolation(err) {
		return fmt.Errorf("failed to link author %d to document %d: %w", authorID, documentID, err)
	}
	return nil
}

// GetByID retrieves an author and the ids of the documents they wrote.
func (r *Repository) GetByID(id uint) (*entities.Author, error) {
	var author entities.Author
	if err := r.db.First(&author, id).Error; err != nil {
		return nil, err
	}

	err := r.db.Table("writes").
		Where("author_id = ?", id).
		Order("document_id ASC").
		Pluck("document_id", &author.DocumentIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load document ids for author %d: %w", id, err)
	}
	return &author, nil
}

// GetByName retrieves an author by the exact, case-sensitive natural key.
func (r *Repository) GetByName(lastName, remainingName string) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Where("last_name = ? AND remaining_name = ?", lastName, remainingName).
		First(&author).Error
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// GetAll retrieves all authors ordered by id.
func (r *Repository) GetAll() ([]entities.Author, error) {
	var authors []entities.Author
	err := r.db.Order("author_id ASC").Find(&authors).Error
	return authors, err
}

// Update writes all author columns by primary key. A missing row is an
// error, not a silent success.
func (r *Repository) Update(author *entities.Author) error {
	result := r.db.Model(&entities.Author{}).
		Where("author_id = ?", author.AuthorID).
		Updates(map[string]interface{}{
			"last_name":      author.LastName,
			"remaining_name": author.RemainingName,
			"birth_date":     author.BirthDate,
			"email":          author.Email,
			"social_url":     author.SocialURL,
			"nationality":    author.Nationality,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an author together with their join rows, as one transaction.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM writes WHERE author_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete author links: %w", err)
		}
		result := tx.Delete(&entities.Author{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
