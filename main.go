package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mcosta/bibman/internal/cli"
	"github.com/mcosta/bibman/internal/config"
	"github.com/mcosta/bibman/internal/database"
	"github.com/mcosta/bibman/internal/shell"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// No arguments (or "shell") runs the interactive menu
	if len(os.Args) < 2 || os.Args[1] == "shell" {
		runShell()
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "import":
		cmd := cli.NewImportCommand()
		if err := cmd.ParseFlags(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "version":
		fmt.Printf("bibman %s (%s)\n", Version, Commit)

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runShell() {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Could not open database: %v", err)
	}
	defer db.Close()

	s := shell.New(db.DB, cfg.Auth.BcryptCost, os.Stdin, os.Stdout)
	if err := s.Run(); err != nil {
		log.Fatalf("Shell terminated: %v", err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [command] [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  shell     Start the interactive menu (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  import    Import books and papers from a citation JSON file\n")
	fmt.Fprintf(os.Stderr, "  version   Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
