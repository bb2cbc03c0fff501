// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles the answering pipeline from its
// parts: Genkit with the configured AI provider, the PostgreSQL pool, the
// vector store, the course catalog, and the HTTP server.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnloop/learnloop/internal/api"
	"github.com/learnloop/learnloop/internal/catalog"
	"github.com/learnloop/learnloop/internal/config"
	"github.com/learnloop/learnloop/internal/feedback"
	"github.com/learnloop/learnloop/internal/log"
	"github.com/learnloop/learnloop/internal/rag"
	"github.com/learnloop/learnloop/internal/vecstore"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	VecStore *vecstore.Store
	Catalog  *catalog.Store
	Feedback *feedback.Store
	Pipeline *rag.Pipeline
	Server   *api.Server

	dbCleanup   func()
	otelCleanup func()
}

// Close releases all resources. Safe to call after a partial Setup failure.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
