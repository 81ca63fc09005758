// Package csl decodes bibliographic citation JSON (CSL-style item arrays)
// into domain entities for bulk import.
//
// # Format
//
// The input is a JSON array of items. Fields consumed:
//
//   - title, language, type ("book" or "article-journal"/"paper")
//   - issued.date-parts[0][0] — publication year
//   - publisher{name,address,url}
//   - author[]{given,family}
//   - container-title, volume, issue, page, DOI (papers)
//   - publisher-place, ISBN, edition (books)
package csl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mcosta/bibman/internal/entities"
)

type ItemPublisher struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	URL     string `json:"url"`
}

type ItemAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type Issued struct {
	DateParts [][]int `json:"date-parts"`
}

// Item is one citation entry as found on disk.
type Item struct {
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Language       string         `json:"language"`
	Issued         *Issued        `json:"issued"`
	Publisher      *ItemPublisher `json:"publisher"`
	Authors        []ItemAuthor   `json:"author"`
	ContainerTitle string         `json:"container-title"`
	Volume         string         `json:"volume"`
	Issue          string         `json:"issue"`
	Page           string         `json:"page"`
	DOI            string         `json:"DOI"`
	PublisherPlace string         `json:"publisher-place"`
	ISBN           string         `json:"ISBN"`
	Edition        string         `json:"edition"`
}

// Parse decodes a citation array from r.
func Parse(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode citation payload: %w", err)
	}
	return items, nil
}

// ParseFile decodes a citation array from the file at path.
func ParseFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open citation file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Year extracts the publication year from the nested date-parts encoding. An
// absent or empty structure is a decode error, not a crash.
func (it *Item) Year() (int, error) {
	if it.Issued == nil || len(it.Issued.DateParts) == 0 || len(it.Issued.DateParts[0]) == 0 {
		return 0, fmt.Errorf("item %q has no issued.date-parts year", it.Title)
	}
	return it.Issued.DateParts[0][0], nil
}

// ToWork converts the item to a *entities.Book or *entities.Paper depending
// on its type field.
func (it *Item) ToWork() (entities.Work, error) {
	if it.Title == "" {
		return nil, fmt.Errorf("item has no title")
	}
	year, err := it.Year()
	if err != nil {
		return nil, err
	}

	doc := entities.Document{
		Title:    it.Title,
		Language: it.Language,
		Year:     year,
	}
	if it.Publisher != nil && it.Publisher.Name != "" {
		doc.Publisher = &entities.Publisher{
			Name:    it.Publisher.Name,
			Address: it.Publisher.Address,
			URL:     it.Publisher.URL,
		}
	}
	for _, a := range it.Authors {
		doc.Authors = append(doc.Authors, entities.Author{
			LastName:      a.Family,
			RemainingName: a.Given,
		})
	}

	switch it.Type {
	case "book":
		doc.Type = entities.DocumentTypeBook
		book := &entities.Book{
			Edition:          it.Edition,
			PublicationPlace: it.PublisherPlace,
			Document:         doc,
		}
		if it.ISBN != "" {
			book.ISBN = &it.ISBN
		}
		return book, nil
	case "paper", "article-journal":
		doc.Type = entities.DocumentTypePaper
		paper := &entities.Paper{
			Journal:  it.ContainerTitle,
			Issue:    it.Issue,
			Pages:    it.Page,
			Volume:   it.Volume,
			Document: doc,
		}
		if it.DOI != "" {
			paper.DOI = &it.DOI
		}
		return paper, nil
	default:
		return nil, fmt.Errorf("item %q has unsupported type %q", it.Title, it.Type)
	}
}
