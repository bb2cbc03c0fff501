package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/learnloop/learnloop/internal/app"
	"github.com/learnloop/learnloop/internal/config"
	"github.com/learnloop/learnloop/internal/rag"
)

// maxIngestFileBytes caps the size of a single ingested file.
const maxIngestFileBytes = 10 << 20 // 10 MiB

// runIngest reads files and indexes them as documents for a user.
func runIngest() error {
	logger := initLogger()

	ingestFlags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestFlags.SetOutput(os.Stderr)
	userID := ingestFlags.String("user", "", "User ID owning the documents (required)")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := ingestFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing ingest flags: %w", err)
	}
	if *userID == "" {
		return fmt.Errorf("ingest requires -user")
	}
	files := ingestFlags.Args()
	if len(files) == 0 {
		return fmt.Errorf("ingest requires at least one file")
	}

	documents := make([]rag.Document, 0, len(files))
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if info.Size() > maxIngestFileBytes {
			return fmt.Errorf("%s exceeds the %d byte limit", path, maxIngestFileBytes)
		}
		content, err := os.ReadFile(path) // #nosec G304 -- paths come from the operator's command line
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		documents = append(documents, rag.Document{
			Content: string(content),
			Source:  filepath.Base(path),
		})
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if !a.Pipeline.AddDocuments(ctx, *userID, documents) {
		return fmt.Errorf("indexing failed for %d document(s)", len(documents))
	}

	fmt.Printf("Indexed %d document(s) for user %s\n", len(documents), *userID)
	return nil
}
