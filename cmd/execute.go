// Package cmd contains the CLI entry points.
//
// Command routing is hand-rolled on os.Args: the binary has a small, fixed
// set of subcommands and does not need a framework for them.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/learnloop/learnloop/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the learnloop CLI.
// It handles flag parsing and command routing, and is designed to be called
// from main().
func Execute() error {
	if len(os.Args) < 2 {
		printHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest()
	case "ask":
		return runAsk()
	case "version", "--version", "-v":
		printVersionInfo()
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable: set (any value)
// means debug level, unset means info level. Logs go to stderr so command
// output on stdout stays machine-parseable.
func initLogger() log.Logger {
	return log.NewWithWriter(os.Stderr, log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("LEARNLOOP_LOG_JSON") != "",
	})
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func printVersionInfo() {
	fmt.Printf("learnloop v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("learnloop - learning platform assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  learnloop serve [addr]            Start the HTTP API server")
	fmt.Println("  learnloop ingest -user ID FILE... Index documents for a user")
	fmt.Println("  learnloop ask -user ID QUESTION   Ask a one-shot question")
	fmt.Println("  learnloop version                 Print version information")
	fmt.Println("  learnloop help                    Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GEMINI_API_KEY    API key for the default gemini provider")
	fmt.Println("  DEBUG             Enable debug logging when set")
	fmt.Println("  DATABASE_URL      Override PostgreSQL connection settings")
}
