package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/llm"
	"contract-analyzer/internal/llm/azure"
	"contract-analyzer/internal/services/health"
	"contract-analyzer/internal/sessions"
	"contract-analyzer/internal/shared/config"
	"contract-analyzer/internal/shared/server"
	"contract-analyzer/internal/shared/storage/db"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	LLM             llm.Client
	Analyzer        *analyses.Analyzer
	SessionsRepo    sessions.Repo
	Sessions        *sessions.Service
	SessionsHandler *sessions.Handler
	Health          *health.Service
}

// Option customizes Build.
type Option func(*App)

// WithLLM replaces the Azure OpenAI client, mainly for tests.
func WithLLM(client llm.Client) Option {
	return func(a *App) {
		a.LLM = client
	}
}

// Build wires storage, the model client, sessions and the router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.LLM == nil {
		client, err := NewLLMClient(cfg.Azure)
		if err != nil {
			return nil, err
		}
		app.LLM = client
	}

	sqlDB, err := buildDB(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	if app.DB != nil {
		app.SessionsRepo = &sessions.PGRepo{DB: app.DB}
	} else {
		app.SessionsRepo = sessions.NewMemoryRepo()
	}

	app.Analyzer = analyses.NewAnalyzer(app.LLM, cfg.Concurrency)
	app.Sessions = sessions.NewService(app.SessionsRepo, app.Analyzer, app.LLM, sessions.Options{
		TTL:              cfg.SessionTTL,
		MaxDocumentChars: cfg.MaxDocumentChars,
	})
	app.SessionsHandler = sessions.NewHandler(app.Sessions, cfg.MaxUploadBytes)
	app.Health = health.NewService(app.DB)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		SessionsHandler: app.SessionsHandler,
		Health:          app.Health,
	})
	return app, nil
}

// NewLLMClient builds the Azure OpenAI client from configuration. Missing
// settings fail here, before any request is served.
func NewLLMClient(cfg config.AzureOpenAI) (*azure.Client, error) {
	client, err := azure.NewClient(azure.Config{
		Endpoint:     cfg.Endpoint,
		Deployment:   cfg.Deployment,
		APIVersion:   cfg.APIVersion,
		AuthType:     cfg.AuthType,
		APIKey:       cfg.APIKey,
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configure azure openai: %w", err)
	}
	return client, nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory sessions")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.ConnectAndMigrate(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory sessions: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}
