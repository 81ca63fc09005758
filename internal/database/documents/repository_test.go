package documents

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcosta/bibman/internal/database/authors"
	"github.com/mcosta/bibman/internal/database/publishers"
	"github.com/mcosta/bibman/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_documents_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Publisher{},
		&entities.Author{},
		&entities.Document{},
		&entities.Book{},
		&entities.Paper{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func strPtr(s string) *string {
	return &s
}

func sampleBook() *entities.Book {
	return &entities.Book{
		ISBN:             strPtr("978-85-359-0277-5"),
		Edition:          "1st",
		PublicationPlace: "Rio de Janeiro",
		Document: entities.Document{
			Title:    "Dom Casmurro",
			Language: "pt",
			Year:     1899,
			Publisher: &entities.Publisher{
				Name: "Livraria Garnier",
			},
			Authors: []entities.Author{
				{LastName: "Assis", RemainingName: "Machado de"},
			},
		},
	}
}

func samplePaper(doi string) *entities.Paper {
	return &entities.Paper{
		DOI:     strPtr(doi),
		Journal: "CACM",
		Volume:  "63",
		Issue:   "4",
		Pages:   "21-23",
		Document: entities.Document{
			Title:    "X",
			Language: "en",
			Year:     2020,
			Publisher: &entities.Publisher{
				Name: "ACM",
			},
		},
	}
}

func TestRepository_InsertBook(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	created, id, err := repo.InsertBook(sampleBook())

	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)

	// Document, subtype, publisher, author and link rows all exist
	var docs, books, pubs, auths, links int64
	require.NoError(t, db.Model(&entities.Document{}).Count(&docs).Error)
	require.NoError(t, db.Model(&entities.Book{}).Count(&books).Error)
	require.NoError(t, db.Model(&entities.Publisher{}).Count(&pubs).Error)
	require.NoError(t, db.Model(&entities.Author{}).Count(&auths).Error)
	require.NoError(t, db.Table("writes").Count(&links).Error)
	assert.Equal(t, []int64{1, 1, 1, 1, 1}, []int64{docs, books, pubs, auths, links})
}

func TestRepository_InsertBook_DuplicateTitleYear(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	created, firstID, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)
	require.True(t, created)

	// Same (title, year), different subtype fields and authors
	dup := sampleBook()
	dup.ISBN = strPtr("000-00-000-0000-0")
	dup.Document.Authors = []entities.Author{{LastName: "Someone", RemainingName: "Else"}}

	created, secondID, err := repo.InsertBook(dup)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, firstID, secondID)

	// Subtype fields kept from the first insert, no extra link rows
	work, err := repo.GetByID(firstID)
	require.NoError(t, err)
	book := work.(*entities.Book)
	require.NotNil(t, book.ISBN)
	assert.Equal(t, "978-85-359-0277-5", *book.ISBN)

	var links int64
	require.NoError(t, db.Table("writes").Where("document_id = ?", firstID).Count(&links).Error)
	assert.Equal(t, int64(1), links)
}

func TestRepository_InsertPaper_DuplicateKeepsFirstDOI(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, firstID, err := repo.InsertPaper(samplePaper("10.1/x"))
	require.NoError(t, err)
	require.True(t, created)

	created, secondID, err := repo.InsertPaper(samplePaper("10.1/y"))
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, firstID, secondID)

	work, err := repo.GetByID(firstID)
	require.NoError(t, err)
	paper := work.(*entities.Paper)
	require.NotNil(t, paper.DOI)
	assert.Equal(t, "10.1/x", *paper.DOI)
}

func TestRepository_Insert_AbsentIdentifiersDoNotCollide(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	// Two books and two papers without ISBN/DOI must not trip the unique
	// indexes on those columns.
	first := sampleBook()
	first.ISBN = nil
	_, _, err := repo.InsertBook(first)
	require.NoError(t, err)

	second := sampleBook()
	second.ISBN = nil
	second.Document.Title = "Quincas Borba"
	second.Document.Year = 1891

	created, _, err := repo.InsertBook(second)
	require.NoError(t, err)
	assert.True(t, created)

	firstPaper := samplePaper("")
	firstPaper.DOI = nil
	_, _, err = repo.InsertPaper(firstPaper)
	require.NoError(t, err)

	secondPaper := samplePaper("")
	secondPaper.DOI = nil
	secondPaper.Document.Title = "Y"

	created, _, err = repo.InsertPaper(secondPaper)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRepository_InsertBook_SameTitleDifferentYearIsDistinct(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, firstID, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	other := sampleBook()
	other.ISBN = strPtr("978-85-359-0277-6")
	other.Document.Year = 1900

	created, secondID, err := repo.InsertBook(other)
	require.NoError(t, err)

	assert.True(t, created)
	assert.NotEqual(t, firstID, secondID)
}

func TestRepository_InsertBook_SharedAuthorAndPublisher(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, _, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	second := sampleBook()
	second.Document.Title = "Memórias Póstumas de Brás Cubas"
	second.Document.Year = 1881
	second.ISBN = strPtr("978-85-359-0278-2")

	_, _, err = repo.InsertBook(second)
	require.NoError(t, err)

	// The author and publisher were resolved, not duplicated
	var auths, pubs int64
	require.NoError(t, db.Model(&entities.Author{}).Count(&auths).Error)
	require.NoError(t, db.Model(&entities.Publisher{}).Count(&pubs).Error)
	assert.Equal(t, int64(1), auths)
	assert.Equal(t, int64(1), pubs)
}

func TestRepository_GetByID_DispatchesToBook(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	work, err := repo.GetByID(id)
	require.NoError(t, err)

	require.Equal(t, entities.DocumentTypeBook, work.Kind())
	book, ok := work.(*entities.Book)
	require.True(t, ok)
	require.NotNil(t, book.ISBN)
	assert.Equal(t, "978-85-359-0277-5", *book.ISBN)
	assert.Equal(t, "1st", book.Edition)
	assert.Equal(t, "Rio de Janeiro", book.PublicationPlace)
	assert.Equal(t, "Dom Casmurro", book.Document.Title)
	require.NotNil(t, book.Document.Publisher)
	assert.Equal(t, "Livraria Garnier", book.Document.Publisher.Name)
	require.Len(t, book.Document.Authors, 1)
	assert.Equal(t, "Machado de Assis", book.Document.Authors[0].FullName())
}

func TestRepository_GetByID_DispatchesToPaper(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertPaper(samplePaper("10.1/x"))
	require.NoError(t, err)

	work, err := repo.GetByID(id)
	require.NoError(t, err)

	require.Equal(t, entities.DocumentTypePaper, work.Kind())
	paper, ok := work.(*entities.Paper)
	require.True(t, ok)
	assert.Equal(t, "CACM", paper.Journal)
	assert.Equal(t, "63", paper.Volume)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByID(42)

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_GetBooksAndPapers(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, _, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)
	_, _, err = repo.InsertPaper(samplePaper("10.1/x"))
	require.NoError(t, err)

	books, err := repo.GetBooks()
	require.NoError(t, err)
	papers, err := repo.GetPapers()
	require.NoError(t, err)

	require.Len(t, books, 1)
	require.Len(t, papers, 1)
	assert.Equal(t, "Dom Casmurro", books[0].Document.Title)
	assert.Equal(t, "X", papers[0].Document.Title)
}

func TestRepository_GetByAuthor(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	author, err := authors.NewRepository(db).GetByName("Assis", "Machado de")
	require.NoError(t, err)

	works, err := repo.GetByAuthor(author.AuthorID)
	require.NoError(t, err)

	require.Len(t, works, 1)
	assert.Equal(t, id, works[0].Record().DocumentID)
}

func TestRepository_GetByPublisher(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertPaper(samplePaper("10.1/x"))
	require.NoError(t, err)

	publisher, err := publishers.NewRepository(db).GetByName("ACM")
	require.NoError(t, err)

	works, err := repo.GetByPublisher(publisher.PublisherID)
	require.NoError(t, err)

	require.Len(t, works, 1)
	assert.Equal(t, id, works[0].Record().DocumentID)
}

func TestRepository_SetPublisher(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	newPub := entities.Publisher{Name: "Penguin"}
	require.NoError(t, db.Create(&newPub).Error)

	require.NoError(t, repo.SetPublisher(id, newPub.PublisherID))

	work, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Penguin", work.Record().Publisher.Name)
}

func TestRepository_SetPublisher_MissingDocument(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	pub := entities.Publisher{Name: "Penguin"}
	require.NoError(t, db.Create(&pub).Error)

	err := repo.SetPublisher(42, pub.PublisherID)

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_SetPublisher_MissingPublisher(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	err = repo.SetPublisher(id, 999)

	assert.Error(t, err)
}

func TestRepository_UpdateBook(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	work, err := repo.GetByID(id)
	require.NoError(t, err)
	book := work.(*entities.Book)
	book.Edition = "2nd"
	book.Document.Language = "pt-BR"

	require.NoError(t, repo.UpdateBook(book))

	work, err = repo.GetByID(id)
	require.NoError(t, err)
	updated := work.(*entities.Book)
	assert.Equal(t, "2nd", updated.Edition)
	assert.Equal(t, "pt-BR", updated.Document.Language)
}

func TestRepository_UpdateBook_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	book := sampleBook()
	book.DocumentID = 42

	err := repo.UpdateBook(book)

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_UpdatePaper(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertPaper(samplePaper("10.1/x"))
	require.NoError(t, err)

	work, err := repo.GetByID(id)
	require.NoError(t, err)
	paper := work.(*entities.Paper)
	paper.Pages = "21-30"

	require.NoError(t, repo.UpdatePaper(paper))

	work, err = repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "21-30", work.(*entities.Paper).Pages)
}

func TestRepository_Delete(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(id))

	_, err = repo.GetByID(id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Subtype and link rows went with it
	var books, links int64
	require.NoError(t, db.Model(&entities.Book{}).Where("document_id = ?", id).Count(&books).Error)
	require.NoError(t, db.Table("writes").Where("document_id = ?", id).Count(&links).Error)
	assert.Zero(t, books)
	assert.Zero(t, links)

	// Authors and publishers are untouched
	var auths, pubs int64
	require.NoError(t, db.Model(&entities.Author{}).Count(&auths).Error)
	require.NoError(t, db.Model(&entities.Publisher{}).Count(&pubs).Error)
	assert.Equal(t, int64(1), auths)
	assert.Equal(t, int64(1), pubs)
}

func TestRepository_Delete_Paper(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertPaper(samplePaper("10.1/x"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(id))

	var papers int64
	require.NoError(t, db.Model(&entities.Paper{}).Count(&papers).Error)
	assert.Zero(t, papers)
}

func TestRepository_Delete_SubtypeFailureKeepsDocument(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, id, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	// Make the book row delete fail mid-transaction
	require.NoError(t, db.Exec("ALTER TABLE books RENAME TO books_backup").Error)

	err = repo.Delete(id)
	require.Error(t, err)

	// The rollback keeps the document and its author links
	var docs, links int64
	require.NoError(t, db.Model(&entities.Document{}).Where("document_id = ?", id).Count(&docs).Error)
	require.NoError(t, db.Table("writes").Where("document_id = ?", id).Count(&links).Error)
	assert.Equal(t, int64(1), docs)
	assert.Equal(t, int64(1), links)
}

func TestRepository_Delete_NotFound(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	_, _, err := repo.InsertBook(sampleBook())
	require.NoError(t, err)

	err = repo.Delete(42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Store unchanged
	var docs int64
	require.NoError(t, db.Model(&entities.Document{}).Count(&docs).Error)
	assert.Equal(t, int64(1), docs)
}

func TestRepository_Insert_DispatchesOnType(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, _, err := repo.Insert(sampleBook())
	require.NoError(t, err)
	assert.True(t, created)

	created, _, err = repo.Insert(samplePaper("10.1/x"))
	require.NoError(t, err)
	assert.True(t, created)
}
