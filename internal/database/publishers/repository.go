// Package publishers provides database operations for publisher management.
//
// # Usage
//
//	repo := publishers.NewRepository(db)
//	id, err := repo.GetOrCreate(&publisher)
package publishers

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mcosta/bibman/internal/database"
	"github.com/mcosta/bibman/internal/entities"
)

// Repository handles all publisher database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new publishers repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreate inserts the publisher and returns its id. The publisher name is
// the natural key: if a row with the same name already exists, the existing
// id is returned and nothing is written. The insert commits on its own, even
// when the caller is about to start a document transaction; publishers are
// reference data and are allowed to outlive a failed document insert.
func (r *Repository) GetOrCreate(publisher *entities.Publisher) (uint, error) {
	err := r.db.Create(publisher).Error
	if err == nil {
		return publisher.PublisherID, nil
	}
	if !database.IsUniqueViolation(err) {
		return 0, fmt.Errorf("failed to insert publisher: %w", err)
	}

	var existing entities.Publisher
	if err := r.db.Where("name = ?", publisher.Name).First(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve existing publisher %q: %w", publisher.Name, err)
	}
	publisher.PublisherID = existing.PublisherID
	return existing.PublisherID, nil
}

// GetByID retrieves a publisher and the ids of the documents it published.
func (r *Repository) GetByID(id uint) (*entities.Publisher, error) {
	var publisher entities.Publisher
	if err := r.db.First(&publisher, id).Error; err != nil {
		return nil, err
	}

	err := r.db.Model(&entities.Document{}).
		Where("publisher_id = ?", id).
		Order("document_id ASC").
		Pluck("document_id", &publisher.DocumentIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load document ids for publisher %d: %w", id, err)
	}
	return &publisher, nil
}

// GetByName retrieves a publisher by its exact, case-sensitive name.
func (r *Repository) GetByName(name string) (*entities.Publisher, error) {
	var publisher entities.Publisher
	if err := r.db.Where("name = ?", name).First(&publisher).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

// GetAll retrieves all publishers ordered by id.
func (r *Repository) GetAll() ([]entities.Publisher, error) {
	var publishers []entities.Publisher
	err := r.db.Order("publisher_id ASC").Find(&publishers).Error
	return publishers, err
}

// Update writes all publisher columns by primary key. A missing row is an
// error, not a silent success.
func (r *Repository) Update(publisher *entities.Publisher) error {
	result := r.db.Model(&entities.Publisher{}).
		Where("publisher_id = ?", publisher.PublisherID).
		Updates(map[string]interface{}{
			"name":    publisher.Name,
			"address": publisher.Address,
			"url":     publisher.URL,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a publisher. Dependent documents are kept but their
// publisher reference is cleared first, in the same transaction, so no
// dangling foreign keys survive the delete.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("UPDATE documents SET publisher_id = NULL WHERE publisher_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to detach documents from publisher %d: %w", id, err)
		}
		result := tx.Delete(&entities.Publisher{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
