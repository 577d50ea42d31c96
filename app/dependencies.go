package app

import (
	"context"
	"fmt"

	"github.com/upb/sop-assistant/config"
	"github.com/upb/sop-assistant/identity"
	"github.com/upb/sop-assistant/internal/rag"
	"github.com/upb/sop-assistant/middleware"
	"github.com/upb/sop-assistant/repositories"
	"github.com/upb/sop-assistant/repositories/postgres"
	"github.com/upb/sop-assistant/services/chat"
	"github.com/upb/sop-assistant/services/documents"
	"github.com/upb/sop-assistant/services/providers"
	"github.com/upb/sop-assistant/services/providers/openai"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Documents     repositories.DocumentRepository
	Conversations repositories.ConversationRepository
	TxManager     repositories.TransactionManager

	// Model provider
	Provider providers.StreamingProvider

	// RAG pipeline
	Embedder  *rag.EmbeddingClient
	Retriever *rag.Retriever

	// Services
	DocumentService *documents.Service
	ChatService     *chat.Service

	// HTTP middleware
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.UserRateLimiter
}

// NewDependencies connects to the database, ensures the schema exists and wires every component
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	deps := NewDependenciesWithFactory(cfg, factory, logger)
	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesWithFactory wires every component over an already opened database
func NewDependenciesWithFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) *Dependencies {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.initAuth(cfg)
	deps.initRateLimit(cfg)

	return deps
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Documents = repos.Documents
	d.Conversations = repos.Conversations
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices wires the OpenAI adapter into the RAG pipeline and the services
func (d *Dependencies) initServices(cfg *config.Config) {
	providerCfg := providers.DefaultProviderConfig()
	providerCfg.APIKey = cfg.OpenAI.APIKey
	providerCfg.OrgID = cfg.OpenAI.Organization
	providerCfg.BaseURL = cfg.OpenAI.BaseURL
	providerCfg.Timeout = cfg.OpenAI.Timeout
	adapter := openai.NewOpenAIAdapter(providerCfg)
	d.Provider = adapter

	if cfg.OpenAI.APIKey == "" {
		d.Logger.Warn("OPENAI_API_KEY not set, requests without a preview token will be rejected upstream")
	}

	d.Embedder = rag.NewEmbeddingClient(adapter, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimensions, d.Logger)
	d.Retriever = rag.NewRetriever(d.Embedder, d.Documents, d.Logger)

	d.DocumentService = documents.NewService(
		d.Documents,
		d.Embedder,
		d.Retriever,
		documents.NewTextExtractor(),
		cfg.Upload,
		cfg.Retrieval,
		d.Logger,
	)
	d.ChatService = chat.NewService(
		d.Retriever,
		adapter,
		d.Conversations,
		d.TxManager,
		cfg.OpenAI,
		cfg.Retrieval,
		d.Logger,
	)

	d.Logger.Info("services initialized",
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("retrieval_scope", cfg.Retrieval.Scope),
	)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("auth JWT secret not configured, protected routes reject every request")
		d.AuthMiddleware = middleware.NewAuthMiddleware(&rejectAllValidator{}, d.Logger)
		return
	}
	// Adapter converts identity.Identity to middleware.Claims for AuthMiddleware
	tokenValidator := &identityTokenValidatorAdapter{validator: identity.NewValidator(cfg.Auth)}
	d.AuthMiddleware = middleware.NewAuthMiddleware(tokenValidator, d.Logger)
	d.Logger.Info("auth middleware initialized")
}

func (d *Dependencies) initRateLimit(cfg *config.Config) {
	if cfg.Chat.RateLimitPerMinute <= 0 {
		return
	}
	d.RateLimiter = middleware.NewUserRateLimiter(cfg.Chat.RateLimitPerMinute, d.Logger)
	d.Logger.Info("chat rate limit enabled", zap.Int("per_minute", cfg.Chat.RateLimitPerMinute))
}

// identityTokenValidatorAdapter adapts identity.Validator to middleware.TokenValidator
type identityTokenValidatorAdapter struct {
	validator *identity.Validator
}

func (a *identityTokenValidatorAdapter) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	id, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
	}, nil
}

// rejectAllValidator rejects all tokens (used when no JWT secret is configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*middleware.Claims, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
