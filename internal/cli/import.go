package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mcosta/bibman/internal/config"
	"github.com/mcosta/bibman/internal/database"
	"github.com/mcosta/bibman/internal/database/documents"
	"github.com/mcosta/bibman/internal/services"
)

// ImportCommand bulk-populates books and papers from a citation JSON file
// without entering the interactive shell.
type ImportCommand struct {
	FilePath     string
	DatabasePath string
	Verbose      bool
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the citation JSON file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the bibliography database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every skipped item")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import books and papers from a citation JSON array.\n\n")
		fmt.Fprintf(os.Stderr, "Items whose (title, year) already exist are skipped; malformed items\n")
		fmt.Fprintf(os.Stderr, "are reported and do not stop the rest of the file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *ImportCommand) Run() error {
	if _, err := os.Stat(cmd.FilePath); os.IsNotExist(err) {
		return fmt.Errorf("citation file not found: %s", cmd.FilePath)
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	importer := services.NewImportService(documents.NewRepository(db.DB))
	result, err := importer.ImportFile(cmd.FilePath)
	if err != nil {
		return err
	}

	fmt.Printf("Import finished: %s\n", result)
	if cmd.Verbose {
		for _, msg := range result.Errors {
			fmt.Printf("  skipped: %s\n", msg)
		}
	}
	return nil
}
