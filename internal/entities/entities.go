package entities

import (
	"fmt"
	"time"
)

// DocumentType discriminates which subtype row accompanies a document row.
type DocumentType string

const (
	DocumentTypeBook  DocumentType = "book"
	DocumentTypePaper DocumentType = "paper"
)

type Publisher struct {
	PublisherID uint      `gorm:"primaryKey;column:publisher_id" json:"publisher_id"`
	Name        string    `gorm:"uniqueIndex;size:256;not null" json:"name"`
	Address     string    `gorm:"size:512" json:"address,omitempty"`
	URL         string    `gorm:"size:2048;column:url" json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// DocumentIDs is a reverse index filled in on fetch, not a column.
	DocumentIDs []uint `gorm:"-" json:"document_ids,omitempty"`
}

type Author struct {
	AuthorID      uint      `gorm:"primaryKey;column:author_id" json:"author_id"`
	LastName      string    `gorm:"uniqueIndex:idx_authors_name;size:256" json:"last_name"`
	RemainingName string    `gorm:"uniqueIndex:idx_authors_name;size:256" json:"remaining_name"`
	BirthDate     time.Time `json:"birth_date,omitempty"`
	Email         string    `gorm:"size:256" json:"email,omitempty"`
	SocialURL     string    `gorm:"size:2048;column:social_url" json:"social_url,omitempty"`
	Nationality   string    `gorm:"size:100" json:"nationality,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// DocumentIDs is a reverse index filled in on fetch, not a column.
	DocumentIDs []uint `gorm:"-" json:"document_ids,omitempty"`
}

// Document is the base row shared by books and papers. (Title, Year) is the
// deduplication key: inserting the same pair twice resolves to the existing row.
type Document struct {
	DocumentID  uint         `gorm:"primaryKey;column:document_id" json:"document_id"`
	Title       string       `gorm:"uniqueIndex:idx_documents_title_year;size:512;not null" json:"title"`
	Year        int          `gorm:"uniqueIndex:idx_documents_title_year" json:"year"`
	Language    string       `gorm:"size:50" json:"language,omitempty"`
	Type        DocumentType `gorm:"size:10" json:"type"`
	PublisherID *uint        `json:"publisher_id,omitempty"`
	Publisher   *Publisher   `json:"publisher,omitempty"`
	Authors     []Author     `gorm:"many2many:writes;foreignKey:DocumentID;joinForeignKey:DocumentID;references:AuthorID;joinReferences:AuthorID" json:"authors,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Book holds the subtype columns for documents with Type == DocumentTypeBook.
// Its row shares the document's primary key one-to-one.
type Book struct {
	DocumentID       uint     `gorm:"primaryKey;column:document_id" json:"document_id"`
	ISBN             *string  `gorm:"uniqueIndex;size:20;column:isbn" json:"isbn,omitempty"`
	Edition          string   `gorm:"size:50" json:"edition,omitempty"`
	PublicationPlace string   `gorm:"size:256" json:"publication_place,omitempty"`
	Document         Document `json:"document"`
}

// Paper holds the subtype columns for documents with Type == DocumentTypePaper.
type Paper struct {
	DocumentID uint     `gorm:"primaryKey;column:document_id" json:"document_id"`
	DOI        *string  `gorm:"uniqueIndex;size:256;column:doi" json:"doi,omitempty"`
	Journal    string   `gorm:"size:256" json:"journal,omitempty"`
	Issue      string   `gorm:"size:50" json:"issue,omitempty"`
	Pages      string   `gorm:"size:50" json:"pages,omitempty"`
	Volume     string   `gorm:"size:50" json:"volume,omitempty"`
	Document   Document `json:"document"`
}

type User struct {
	UserID       uint      `gorm:"primaryKey;column:user_id" json:"user_id"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	Email        string    `gorm:"size:256" json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Work is the polymorphic view over books and papers returned by fetch
// operations. Concrete type is decided by the document's discriminator.
type Work interface {
	Record() *Document
	Kind() DocumentType
	Label() string
}

func (b *Book) Record() *Document  { return &b.Document }
func (b *Book) Kind() DocumentType { return DocumentTypeBook }

func (p *Paper) Record() *Document  { return &p.Document }
func (p *Paper) Kind() DocumentType { return DocumentTypePaper }

// Label renders a one-line summary for listings.
func (b *Book) Label() string {
	return fmt.Sprintf("[book]  #%d %q (%d) isbn=%s", b.DocumentID, b.Document.Title, b.Document.Year, deref(b.ISBN))
}

func (p *Paper) Label() string {
	return fmt.Sprintf("[paper] #%d %q (%d) doi=%s", p.DocumentID, p.Document.Title, p.Document.Year, deref(p.DOI))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FullName renders the author's display name, remaining name first.
func (a *Author) FullName() string {
	if a.RemainingName == "" {
		return a.LastName
	}
	return a.RemainingName + " " + a.LastName
}

func (Publisher) TableName() string {
	return "publishers"
}

func (Author) TableName() string {
	return "authors"
}

func (Document) TableName() string {
	return "documents"
}

func (Book) TableName() string {
	return "books"
}

func (Paper) TableName() string {
	return "papers"
}

func (User) TableName() string {
	return "users"
}
