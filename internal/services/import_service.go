package services

import (
	"fmt"

	"github.com/mcosta/bibman/internal/entities"
	"github.com/mcosta/bibman/internal/importers/csl"
)

// WorkInserter stores a book or paper, reporting whether a new document row
// was created. Implemented by documents.Repository.
type WorkInserter interface {
	Insert(work entities.Work) (created bool, id uint, err error)
}

// ImportResult summarizes a bulk import run.
type ImportResult struct {
	Created int // new documents inserted
	Skipped int // items that resolved to an already existing (title, year)
	Failed  int // items that could not be decoded or stored
	Errors  []string
}

func (r ImportResult) String() string {
	return fmt.Sprintf("%d created, %d already present, %d failed", r.Created, r.Skipped, r.Failed)
}

// ImportService bulk-populates books and papers from citation files.
type ImportService struct {
	inserter WorkInserter
}

// NewImportService creates a new ImportService.
func NewImportService(inserter WorkInserter) *ImportService {
	return &ImportService{inserter: inserter}
}

// ImportFile decodes the citation file at path and stores every item. A
// malformed item fails on its own; the rest of the file is still imported.
func (s *ImportService) ImportFile(path string) (ImportResult, error) {
	items, err := csl.ParseFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportItems(items), nil
}

// ImportItems stores the decoded items one by one.
func (s *ImportService) ImportItems(items []csl.Item) ImportResult {
	var result ImportResult
	for i := range items {
		work, err := items[i].ToWork()
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		created, _, err := s.inserter.Insert(work)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%q: %v", items[i].Title, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}
	return result
}
