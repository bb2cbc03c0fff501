package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/learnloop/learnloop/internal/app"
	"github.com/learnloop/learnloop/internal/config"
	"github.com/learnloop/learnloop/internal/rag"
)

// runAsk answers a single question and prints the result.
func runAsk() error {
	logger := initLogger()

	askFlags := flag.NewFlagSet("ask", flag.ContinueOnError)
	askFlags.SetOutput(os.Stderr)
	userID := askFlags.String("user", "", "User ID asking the question (required)")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := askFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing ask flags: %w", err)
	}
	if *userID == "" {
		return fmt.Errorf("ask requires -user")
	}
	question := strings.TrimSpace(strings.Join(askFlags.Args(), " "))
	if question == "" {
		return fmt.Errorf("ask requires a question")
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

	prompt := question
	if enrolled, err := a.Catalog.EnrolledContext(ctx, *userID); err == nil {
		prompt = rag.JoinQuestion(enrolled, question)
	} else {
		logger.Warn("enrollment lookup failed, answering without enrollment context",
			"user_id", *userID, "error", err)
	}

	fmt.Println(a.Pipeline.AnswerQuery(ctx, *userID, prompt))
	return nil
}
