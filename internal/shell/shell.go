// Package shell implements the interactive numbered menu. It collects input,
// builds domain objects, hands them to the repositories and prints the
// outcome; errors are printed and the loop continues.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mcosta/bibman/internal/auth"
	"github.com/mcosta/bibman/internal/database/authors"
	"github.com/mcosta/bibman/internal/database/documents"
	"github.com/mcosta/bibman/internal/database/publishers"
	"github.com/mcosta/bibman/internal/database/users"
	"github.com/mcosta/bibman/internal/entities"
	"github.com/mcosta/bibman/internal/services"
)

// Shell is the interactive session. A logged-in user is required for every
// mutating option.
type Shell struct {
	in  *bufio.Reader
	out io.Writer

	auth       *auth.Service
	publishers *publishers.Repository
	authors    *authors.Repository
	documents  *documents.Repository
	importer   *services.ImportService

	current *entities.User
}

// New wires a shell over the shared database handle.
func New(db *gorm.DB, bcryptCost int, in io.Reader, out io.Writer) *Shell {
	docRepo := documents.NewRepository(db)
	return &Shell{
		in:         bufio.NewReader(in),
		out:        out,
		auth:       auth.NewService(users.NewRepository(db), bcryptCost),
		publishers: publishers.NewRepository(db),
		authors:    authors.NewRepository(db),
		documents:  docRepo,
		importer:   services.NewImportService(docRepo),
	}
}

// Run loops over the menu until the user picks exit or input ends.
func (s *Shell) Run() error {
	for {
		s.printMenu()
		choice, err := s.prompt("Choice")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if choice == "0" {
			fmt.Fprintln(s.out, "Bye.")
			return nil
		}
		if err := s.dispatch(choice); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out)
	if s.current != nil {
		fmt.Fprintf(s.out, "Logged in as %s\n", s.current.Username)
	} else {
		fmt.Fprintln(s.out, "Not logged in")
	}
	fmt.Fprint(s.out, ` 1) Register             2) Log in                3) Log out
 4) Add publisher         5) List publishers       6) Update publisher      7) Delete publisher
 8) Add author            9) List authors         10) Update author        11) Delete author
12) Add book             13) List books           14) Update book
15) Add paper            16) List papers          17) Update paper
18) Show document        19) Delete document
20) Documents by author  21) Documents by publisher
22) Link author          23) Set document publisher
24) Import citation file
 0) Exit
`)
}

func (s *Shell) dispatch(choice string) error {
	switch choice {
	case "1":
		return s.register()
	case "2":
		return s.login()
	case "3":
		s.current = nil
		fmt.Fprintln(s.out, "Logged out.")
		return nil
	case "4":
		return s.loggedIn(s.addPublisher)
	case "5":
		return s.listPublishers()
	case "6":
		return s.loggedIn(s.updatePublisher)
	case "7":
		return s.loggedIn(s.deletePublisher)
	case "8":
		return s.loggedIn(s.addAuthor)
	case "9":
		return s.listAuthors()
	case "10":
		return s.loggedIn(s.updateAuthor)
	case "11":
		return s.loggedIn(s.deleteAuthor)
	case "12":
		return s.loggedIn(s.addBook)
	case "13":
		return s.listBooks()
	case "14":
		return s.loggedIn(s.updateBook)
	case "15":
		return s.loggedIn(s.addPaper)
	case "16":
		return s.listPapers()
	case "17":
		return s.loggedIn(s.updatePaper)
	case "18":
		return s.showDocument()
	case "19":
		return s.loggedIn(s.deleteDocument)
	case "20":
		return s.documentsByAuthor()
	case "21":
		return s.documentsByPublisher()
	case "22":
		return s.loggedIn(s.linkAuthor)
	case "23":
		return s.loggedIn(s.setDocumentPublisher)
	case "24":
		return s.loggedIn(s.importFile)
	default:
		fmt.Fprintf(s.out, "Unknown option %q\n", choice)
		return nil
	}
}

func (s *Shell) loggedIn(action func() error) error {
	if s.current == nil {
		fmt.Fprintln(s.out, "Please log in first.")
		return nil
	}
	return action()
}

func (s *Shell) register() error {
	username, err := s.prompt("Username")
	if err != nil {
		return err
	}
	password, err := s.prompt("Password")
	if err != nil {
		return err
	}
	email, err := s.prompt("Email")
	if err != nil {
		return err
	}
	user, err := s.auth.Register(username, password, email)
	if err != nil {
		return err
	}
	s.current = user
	fmt.Fprintf(s.out, "Registered and logged in as %s (user #%d).\n", user.Username, user.UserID)
	return nil
}

func (s *Shell) login() error {
	username, err := s.prompt("Username")
	if err != nil {
		return err
	}
	password, err := s.prompt("Password")
	if err != nil {
		return err
	}
	user, err := s.auth.Login(username, password)
	if err != nil {
		return err
	}
	s.current = user
	fmt.Fprintf(s.out, "Welcome back, %s.\n", user.Username)
	return nil
}

func (s *Shell) addPublisher() error {
	publisher, err := s.readPublisher()
	if err != nil {
		return err
	}
	id, err := s.publishers.GetOrCreate(publisher)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Publisher #%d: %s\n", id, publisher.Name)
	return nil
}

func (s *Shell) listPublishers() error {
	list, err := s.publishers.GetAll()
	if err != nil {
		return err
	}
	for i := range list {
		p := &list[i]
		fmt.Fprintf(s.out, "#%d %s  %s  %s\n", p.PublisherID, p.Name, p.Address, p.URL)
	}
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No publishers yet.")
	}
	return nil
}

func (s *Shell) updatePublisher() error {
	id, err := s.promptID("Publisher id")
	if err != nil {
		return err
	}
	existing, err := s.publishers.GetByID(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updating #%d %s\n", existing.PublisherID, existing.Name)
	publisher, err := s.readPublisher()
	if err != nil {
		return err
	}
	publisher.PublisherID = id
	if err := s.publishers.Update(publisher); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Updated.")
	return nil
}

func (s *Shell) deletePublisher() error {
	id, err := s.promptID("Publisher id")
	if err != nil {
		return err
	}
	if err := s.publishers.Delete(id); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Deleted. Its documents are kept without a publisher.")
	return nil
}

func (s *Shell) addAuthor() error {
	author, err := s.readAuthor()
	if err != nil {
		return err
	}
	id, err := s.authors.GetOrCreate(author)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Author #%d: %s\n", id, author.FullName())
	return nil
}

func (s *Shell) listAuthors() error {
	list, err := s.authors.GetAll()
	if err != nil {
		return err
	}
	for i := range list {
		a := &list[i]
		fmt.Fprintf(s.out, "#%d %s  %s  %s\n", a.AuthorID, a.FullName(), a.Email, a.Nationality)
	}
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No authors yet.")
	}
	return nil
}

func (s *Shell) updateAuthor() error {
	id, err := s.promptID("Author id")
	if err != nil {
		return err
	}
	existing, err := s.authors.GetByID(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updating #%d %s\n", existing.AuthorID, existing.FullName())
	author, err := s.readAuthor()
	if err != nil {
		return err
	}
	author.AuthorID = id
	if err := s.authors.Update(author); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Updated.")
	return nil
}

func (s *Shell) deleteAuthor() error {
	id, err := s.promptID("Author id")
	if err != nil {
		return err
	}
	if err := s.authors.Delete(id); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Deleted, together with their document links.")
	return nil
}

func (s *Shell) addBook() error {
	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	book := &entities.Book{Document: *doc}
	book.ISBN, err = s.promptOptional("ISBN (optional)")
	if err != nil {
		return err
	}
	book.Edition, err = s.prompt("Edition")
	if err != nil {
		return err
	}
	book.PublicationPlace, err = s.prompt("Publication place")
	if err != nil {
		return err
	}

	created, id, err := s.documents.InsertBook(book)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(s.out, "Book #%d created.\n", id)
	} else {
		fmt.Fprintf(s.out, "Document #%d already exists; nothing changed.\n", id)
	}
	return nil
}

func (s *Shell) addPaper() error {
	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	paper := &entities.Paper{Document: *doc}
	paper.DOI, err = s.promptOptional("DOI (optional)")
	if err != nil {
		return err
	}
	paper.Journal, err = s.prompt("Journal")
	if err != nil {
		return err
	}
	paper.Volume, err = s.prompt("Volume")
	if err != nil {
		return err
	}
	paper.Issue, err = s.prompt("Issue")
	if err != nil {
		return err
	}
	paper.Pages, err = s.prompt("Pages")
	if err != nil {
		return err
	}

	created, id, err := s.documents.InsertPaper(paper)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(s.out, "Paper #%d created.\n", id)
	} else {
		fmt.Fprintf(s.out, "Document #%d already exists; nothing changed.\n", id)
	}
	return nil
}

func (s *Shell) listBooks() error {
	books, err := s.documents.GetBooks()
	if err != nil {
		return err
	}
	for i := range books {
		fmt.Fprintln(s.out, books[i].Label())
	}
	if len(books) == 0 {
		fmt.Fprintln(s.out, "No books yet.")
	}
	return nil
}

func (s *Shell) listPapers() error {
	papers, err := s.documents.GetPapers()
	if err != nil {
		return err
	}
	for i := range papers {
		fmt.Fprintln(s.out, papers[i].Label())
	}
	if len(papers) == 0 {
		fmt.Fprintln(s.out, "No papers yet.")
	}
	return nil
}

func (s *Shell) updateBook() error {
	id, err := s.promptID("Book id")
	if err != nil {
		return err
	}
	work, err := s.documents.GetByID(id)
	if err != nil {
		return err
	}
	book, ok := work.(*entities.Book)
	if !ok {
		return fmt.Errorf("document %d is a %s, not a book", id, work.Kind())
	}
	fmt.Fprintf(s.out, "Updating %s\n", book.Label())

	if err := s.readDocumentFields(&book.Document); err != nil {
		return err
	}
	book.ISBN, err = s.promptOptional("ISBN (optional)")
	if err != nil {
		return err
	}
	book.Edition, err = s.prompt("Edition")
	if err != nil {
		return err
	}
	book.PublicationPlace, err = s.prompt("Publication place")
	if err != nil {
		return err
	}
	if err := s.documents.UpdateBook(book); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Updated.")
	return nil
}

func (s *Shell) updatePaper() error {
	id, err := s.promptID("Paper id")
	if err != nil {
		return err
	}
	work, err := s.documents.GetByID(id)
	if err != nil {
		return err
	}
	paper, ok := work.(*entities.Paper)
	if !ok {
		return fmt.Errorf("document %d is a %s, not a paper", id, work.Kind())
	}
	fmt.Fprintf(s.out, "Updating %s\n", paper.Label())

	if err := s.readDocumentFields(&paper.Document); err != nil {
		return err
	}
	paper.DOI, err = s.promptOptional("DOI (optional)")
	if err != nil {
		return err
	}
	paper.Journal, err = s.prompt("Journal")
	if err != nil {
		return err
	}
	paper.Volume, err = s.prompt("Volume")
	if err != nil {
		return err
	}
	paper.Issue, err = s.prompt("Issue")
	if err != nil {
		return err
	}
	paper.Pages, err = s.prompt("Pages")
	if err != nil {
		return err
	}
	if err := s.documents.UpdatePaper(paper); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Updated.")
	return nil
}

func (s *Shell) showDocument() error {
	id, err := s.promptID("Document id")
	if err != nil {
		return err
	}
	work, err := s.documents.GetByID(id)
	if err != nil {
		return err
	}
	s.printWork(work)
	return nil
}

func (s *Shell) deleteDocument() error {
	id, err := s.promptID("Document id")
	if err != nil {
		return err
	}
	if err := s.documents.Delete(id); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Deleted.")
	return nil
}

func (s *Shell) documentsByAuthor() error {
	id, err := s.promptID("Author id")
	if err != nil {
		return err
	}
	works, err := s.documents.GetByAuthor(id)
	if err != nil {
		return err
	}
	for _, w := range works {
		fmt.Fprintln(s.out, w.Label())
	}
	if len(works) == 0 {
		fmt.Fprintln(s.out, "No documents for this author.")
	}
	return nil
}

func (s *Shell) documentsByPublisher() error {
	id, err := s.promptID("Publisher id")
	if err != nil {
		return err
	}
	works, err := s.documents.GetByPublisher(id)
	if err != nil {
		return err
	}
	for _, w := range works {
		fmt.Fprintln(s.out, w.Label())
	}
	if len(works) == 0 {
		fmt.Fprintln(s.out, "No documents for this publisher.")
	}
	return nil
}

func (s *Shell) linkAuthor() error {
	docID, err := s.promptID("Document id")
	if err != nil {
		return err
	}
	authorID, err := s.promptID("Author id")
	if err != nil {
		return err
	}
	if _, err := s.documents.GetByID(docID); err != nil {
		return err
	}
	if _, err := s.authors.GetByID(authorID); err != nil {
		return err
	}
	if err := s.authors.Link(docID, authorID); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Linked.")
	return nil
}

func (s *Shell) setDocumentPublisher() error {
	docID, err := s.promptID("Document id")
	if err != nil {
		return err
	}
	pubID, err := s.promptID("Publisher id")
	if err != nil {
		return err
	}
	if err := s.documents.SetPublisher(docID, pubID); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Publisher set.")
	return nil
}

func (s *Shell) importFile() error {
	path, err := s.prompt("Citation file path")
	if err != nil {
		return err
	}
	result, err := s.importer.ImportFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Import finished: %s\n", result)
	for _, msg := range result.Errors {
		fmt.Fprintf(s.out, "  skipped: %s\n", msg)
	}
	return nil
}

func (s *Shell) printWork(work entities.Work) {
	doc := work.Record()
	fmt.Fprintln(s.out, work.Label())
	if doc.Language != "" {
		fmt.Fprintf(s.out, "  language: %s\n", doc.Language)
	}
	if doc.Publisher != nil {
		fmt.Fprintf(s.out, "  publisher: #%d %s\n", doc.Publisher.PublisherID, doc.Publisher.Name)
	}
	for i := range doc.Authors {
		fmt.Fprintf(s.out, "  author: #%d %s\n", doc.Authors[i].AuthorID, doc.Authors[i].FullName())
	}
	switch w := work.(type) {
	case *entities.Book:
		fmt.Fprintf(s.out, "  edition: %s  place: %s\n", w.Edition, w.PublicationPlace)
	case *entities.Paper:
		fmt.Fprintf(s.out, "  journal: %s vol %s no %s pp %s\n", w.Journal, w.Volume, w.Issue, w.Pages)
	}
}

func (s *Shell) readPublisher() (*entities.Publisher, error) {
	name, err := s.prompt("Name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("publisher name must not be empty")
	}
	address, err := s.prompt("Address")
	if err != nil {
		return nil, err
	}
	url, err := s.prompt("URL")
	if err != nil {
		return nil, err
	}
	return &entities.Publisher{Name: name, Address: address, URL: url}, nil
}

func (s *Shell) readAuthor() (*entities.Author, error) {
	lastName, err := s.prompt("Last name")
	if err != nil {
		return nil, err
	}
	if lastName == "" {
		return nil, errors.New("last name must not be empty")
	}
	remaining, err := s.prompt("Remaining name")
	if err != nil {
		return nil, err
	}
	author := &entities.Author{LastName: lastName, RemainingName: remaining}

	birth, err := s.prompt("Birth date (YYYY-MM-DD, optional)")
	if err != nil {
		return nil, err
	}
	if birth != "" {
		t, err := time.Parse("2006-01-02", birth)
		if err != nil {
			return nil, fmt.Errorf("invalid birth date: %w", err)
		}
		author.BirthDate = t
	}
	author.Email, err = s.prompt("Email")
	if err != nil {
		return nil, err
	}
	author.SocialURL, err = s.prompt("Social handle")
	if err != nil {
		return nil, err
	}
	author.Nationality, err = s.prompt("Nationality")
	if err != nil {
		return nil, err
	}
	return author, nil
}

// readDocumentFields collects title, language and year into doc.
func (s *Shell) readDocumentFields(doc *entities.Document) error {
	title, err := s.prompt("Title")
	if err != nil {
		return err
	}
	if title == "" {
		return errors.New("title must not be empty")
	}
	language, err := s.prompt("Language")
	if err != nil {
		return err
	}
	year, err := s.promptInt("Year")
	if err != nil {
		return err
	}
	doc.Title = title
	doc.Language = language
	doc.Year = year
	return nil
}

// readDocument collects the base document fields shared by books and papers,
// plus the optional publisher and the author list.
func (s *Shell) readDocument() (*entities.Document, error) {
	doc := &entities.Document{}
	if err := s.readDocumentFields(doc); err != nil {
		return nil, err
	}

	publisherName, err := s.prompt("Publisher name (optional)")
	if err != nil {
		return nil, err
	}
	if publisherName != "" {
		doc.Publisher = &entities.Publisher{Name: publisherName}
	}

	for {
		lastName, err := s.prompt("Author last name (empty to finish)")
		if err != nil {
			return nil, err
		}
		if lastName == "" {
			break
		}
		remaining, err := s.prompt("Author remaining name")
		if err != nil {
			return nil, err
		}
		doc.Authors = append(doc.Authors, entities.Author{LastName: lastName, RemainingName: remaining})
	}
	return doc, nil
}

func (s *Shell) prompt(label string) (string, error) {
	fmt.Fprintf(s.out, "%s: ", label)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptOptional returns nil for an empty answer so that absent identifiers
// are stored as NULL rather than empty strings.
func (s *Shell) promptOptional(label string) (*string, error) {
	raw, err := s.prompt(label)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return &raw, nil
}

func (s *Shell) promptInt(label string) (int, error) {
	raw, err := s.prompt(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", label, err)
	}
	return n, nil
}

func (s *Shell) promptID(label string) (uint, error) {
	n, err := s.promptInt(label)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be a positive id", label)
	}
	return uint(n), nil
}
