package postgres

import (
	"context"

	"github.com/upb/sop-assistant/config"
	"github.com/upb/sop-assistant/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	dims   int
	logger *zap.Logger
}

// NewRepositoryFactory opens the database described by cfg
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return NewRepositoryFactoryWithDB(db, cfg.OpenAI.EmbeddingDimensions, logger), nil
}

// NewRepositoryFactoryWithDB builds a factory over an already opened pool
func NewRepositoryFactoryWithDB(db *DB, dims int, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, dims: dims, logger: logger}
}

// InitSchema creates the tables if they do not exist yet
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	return f.db.InitSchema(ctx, f.dims)
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Documents:     NewDocumentRepository(f.db, f.dims, f.logger),
		Conversations: NewConversationRepository(f.db, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
