// Package documents provides the document-level database operations: inserting
// books and papers (with publisher and author resolution), polymorphic
// fetches dispatched on the document discriminator, updates, and cascading
// deletes.
//
// # Usage
//
//	repo := documents.NewRepository(db)
//	created, id, err := repo.InsertBook(&book)
//	work, err := repo.GetByID(id)
package documents

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mcosta/bibman/internal/database"
	"github.com/mcosta/bibman/internal/database/authors"
	"github.com/mcosta/bibman/internal/database/publishers"
	"github.com/mcosta/bibman/internal/entities"
)

// Repository handles all document database operations.
type Repository struct {
	db         *gorm.DB
	publishers *publishers.Repository
}

// NewRepository creates a new documents repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		publishers: publishers.NewRepository(db),
	}
}

// InsertBook stores a book. The publisher is resolved or created first, as
// its own committed step; the document row, the book subtype row and all
// author links then go in as a single transaction. If a document with the
// same (title, year) already exists, the existing id is returned with
// created=false and neither subtype fields nor authors are appended to it.
func (r *Repository) InsertBook(book *entities.Book) (created bool, id uint, err error) {
	book.Document.Type = entities.DocumentTypeBook
	if err := r.resolvePublisher(&book.Document); err != nil {
		return false, 0, err
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		docCreated, docID, err := insertDocument(tx, &book.Document)
		if err != nil {
			return err
		}
		created = docCreated
		book.DocumentID = docID
		if !docCreated {
			return nil
		}

		if err := tx.Omit("Document").Create(book).Error; err != nil {
			return fmt.Errorf("failed to insert book row: %w", err)
		}
		return linkAuthors(tx, docID, book.Document.Authors)
	})
	if err != nil {
		return false, 0, err
	}
	return created, book.DocumentID, nil
}

// InsertPaper stores a paper, following the same contract as InsertBook.
func (r *Repository) InsertPaper(paper *entities.Paper) (created bool, id uint, err error) {
	paper.Document.Type = entities.DocumentTypePaper
	if err := r.resolvePublisher(&paper.Document); err != nil {
		return false, 0, err
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		docCreated, docID, err := insertDocument(tx, &paper.Document)
		if err != nil {
			return err
		}
		created = docCreated
		paper.DocumentID = docID
		if !docCreated {
			return nil
		}

		if err := tx.Omit("Document").Create(paper).Error; err != nil {
			return fmt.Errorf("failed to insert paper row: %w", err)
		}
		return linkAuthors(tx, docID, paper.Document.Authors)
	})
	if err != nil {
		return false, 0, err
	}
	return created, paper.DocumentID, nil
}

// Insert dispatches on the concrete type of the work.
func (r *Repository) Insert(work entities.Work) (created bool, id uint, err error) {
	switch w := work.(type) {
	case *entities.Book:
		return r.InsertBook(w)
	case *entities.Paper:
		return r.InsertPaper(w)
	default:
		return false, 0, fmt.Errorf("unsupported work type %T", work)
	}
}

// GetByID fetches the document row with its publisher and author list, then
// the subtype row selected by the discriminator column, and returns the
// reconstructed *entities.Book or *entities.Paper.
func (r *Repository) GetByID(id uint) (entities.Work, error) {
	var doc entities.Document
	err := r.db.Preload("Publisher").Preload("Authors").First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return r.loadSubtype(&doc)
}

// GetBooks retrieves all books with their document, publisher and authors.
func (r *Repository) GetBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Document").Preload("Document.Publisher").Preload("Document.Authors").
		Order("document_id ASC").Find(&books).Error
	return books, err
}

// GetPapers retrieves all papers with their document, publisher and authors.
func (r *Repository) GetPapers() ([]entities.Paper, error) {
	var papers []entities.Paper
	err := r.db.Preload("Document").Preload("Document.Publisher").Preload("Document.Authors").
		Order("document_id ASC").Find(&papers).Error
	return papers, err
}

// GetByAuthor retrieves every document the author is linked to.
func (r *Repository) GetByAuthor(authorID uint) ([]entities.Work, error) {
	var ids []uint
	err := r.db.Table("writes").
		Where("author_id = ?", authorID).
		Order("document_id ASC").
		Pluck("document_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for author %d: %w", authorID, err)
	}
	return r.getByIDs(ids)
}

// GetByPublisher retrieves every document published by the publisher.
func (r *Repository) GetByPublisher(publisherID uint) ([]entities.Work, error) {
	var ids []uint
	err := r.db.Model(&entities.Document{}).
		Where("publisher_id = ?", publisherID).
		Order("document_id ASC").
		Pluck("document_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for publisher %d: %w", publisherID, err)
	}
	return r.getByIDs(ids)
}

// SetPublisher reassigns the document's publisher reference. A missing
// document or a nonexistent publisher id is returned as an error.
func (r *Repository) SetPublisher(documentID, publisherID uint) error {
	result := r.db.Model(&entities.Document{}).
		Where("document_id = ?", documentID).
		Update("publisher_id", publisherID)
	if result.Error != nil {
		if database.IsForeignKeyViolation(result.Error) {
			return fmt.Errorf("publisher %d does not exist: %w", publisherID, result.Error)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateBook writes the document and book subtype columns by primary key, as
// one transaction. A missing row on either side is an error.
func (r *Repository) UpdateBook(book *entities.Book) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := updateDocument(tx, &book.Document, book.DocumentID); err != nil {
			return err
		}
		result := tx.Model(&entities.Book{}).
			Where("document_id = ?", book.DocumentID).
			Updates(map[string]interface{}{
				"isbn":              book.ISBN,
				"edition":           book.Edition,
				"publication_place": book.PublicationPlace,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// UpdatePaper writes the document and paper subtype columns by primary key,
// as one transaction. A missing row on either side is an error.
func (r *Repository) UpdatePaper(paper *entities.Paper) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := updateDocument(tx, &paper.Document, paper.DocumentID); err != nil {
			return err
		}
		result := tx.Model(&entities.Paper{}).
			Where("document_id = ?", paper.DocumentID).
			Updates(map[string]interface{}{
				"doi":     paper.DOI,
				"journal": paper.Journal,
				"issue":   paper.Issue,
				"pages":   paper.Pages,
				"volume":  paper.Volume,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Update dispatches on the concrete type of the work.
func (r *Repository) Update(work entities.Work) error {
	switch w := work.(type) {
	case *entities.Book:
		return r.UpdateBook(w)
	case *entities.Paper:
		return r.UpdatePaper(w)
	default:
		return fmt.Errorf("unsupported work type %T", work)
	}
}

// Delete removes the document, its subtype row and its author links as one
// transaction. The subtype table is chosen by the discriminator column. A
// nonexistent id returns gorm.ErrRecordNotFound and leaves the store
// unchanged.
func (r *Repository) Delete(id uint) error {
	var doc entities.Document
	if err := r.db.Select("document_id", "type").First(&doc, id).Error; err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		switch doc.Type {
		case entities.DocumentTypeBook:
			if err := tx.Exec("DELETE FROM books WHERE document_id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to delete book row: %w", err)
			}
		case entities.DocumentTypePaper:
			if err := tx.Exec("DELETE FROM papers WHERE document_id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to delete paper row: %w", err)
			}
		default:
			return fmt.Errorf("document %d has unknown type %q", id, doc.Type)
		}

		if err := tx.Exec("DELETE FROM writes WHERE document_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete author links: %w", err)
		}
		return tx.Delete(&entities.Document{}, id).Error
	})
}

func (r *Repository) resolvePublisher(doc *entities.Document) error {
	if doc.Publisher == nil || doc.Publisher.Name == "" {
		return nil
	}
	id, err := r.publishers.GetOrCreate(doc.Publisher)
	if err != nil {
		return err
	}
	doc.PublisherID = &id
	return nil
}

func (r *Repository) getByIDs(ids []uint) ([]entities.Work, error) {
	works := make([]entities.Work, 0, len(ids))
	for _, id := range ids {
		work, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		works = append(works, work)
	}
	return works, nil
}

func (r *Repository) loadSubtype(doc *entities.Document) (entities.Work, error) {
	switch doc.Type {
	case entities.DocumentTypeBook:
		var book entities.Book
		if err := r.db.First(&book, doc.DocumentID).Error; err != nil {
			return nil, fmt.Errorf("document %d has no book row: %w", doc.DocumentID, err)
		}
		book.Document = *doc
		return &book, nil
	case entities.DocumentTypePaper:
		var paper entities.Paper
		if err := r.db.First(&paper, doc.DocumentID).Error; err != nil {
			return nil, fmt.Errorf("document %d has no paper row: %w", doc.DocumentID, err)
		}
		paper.Document = *doc
		return &paper, nil
	default:
		return nil, fmt.Errorf("document %d has unknown type %q", doc.DocumentID, doc.Type)
	}
}

// insertDocument creates the base row. A (title, year) collision resolves to
// the existing document's id with created=false; the caller must then skip
// subtype and author insertion.
func insertDocument(tx *gorm.DB, doc *entities.Document) (created bool, id uint, err error) {
	err = tx.Omit(clause.Associations).Create(doc).Error
	if err == nil {
		return true, doc.DocumentID, nil
	}
	if !database.IsUniqueViolation(err) {
		return false, 0, fmt.Errorf("failed to insert document: %w", err)
	}

	var existing entities.Document
	err = tx.Where("title = ? AND year = ?", doc.Title, doc.Year).First(&existing).Error
	if err != nil {
		return false, 0, fmt.Errorf("failed to resolve existing document %q (%d): %w", doc.Title, doc.Year, err)
	}
	doc.DocumentID = existing.DocumentID
	return false, existing.DocumentID, nil
}

func updateDocument(tx *gorm.DB, doc *entities.Document, id uint) error {
	result := tx.Model(&entities.Document{}).
		Where("document_id = ?", id).
		Updates(map[string]interface{}{
			"title":    doc.Title,
			"language": doc.Language,
			"year":     doc.Year,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// linkAuthors resolves or creates each author and records the join rows, all
// on the caller's transaction handle.
func linkAuthors(tx *gorm.DB, documentID uint, list []entities.Author) error {
	for i := range list {
		authorID, err := authors.GetOrCreateTx(tx, &list[i])
		if err != nil {
			return err
		}
		if err := authors.LinkTx(tx, documentID, authorID); err != nil {
			return err
		}
	}
	return nil
}
