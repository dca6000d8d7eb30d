package repository

import (
	"fmt"

	"github.com/yourusername/linelogic/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Game       GameRepository
	Quote      QuoteRepository
	Decision   DecisionRepository
	Settlement SettlementRepository
	Checkpoint CheckpointRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Game:       NewPostgresGameRepository(db),
		Quote:      NewPostgresQuoteRepository(db),
		Decision:   NewPostgresDecisionRepository(db),
		Settlement: NewPostgresSettlementRepository(db),
		Checkpoint: NewPostgresCheckpointRepository(db),
	}, nil
}

// NewMemoryRepositories returns repositories that live in process memory.
// They back paper runs without a database and the unit tests.
func NewMemoryRepositories() *Repositories {
	store := NewMemoryStore()
	return &Repositories{
		Game:       store.Games(),
		Quote:      store.Quotes(),
		Decision:   store.Decisions(),
		Settlement: store.Settlements(),
		Checkpoint: store.Checkpoints(),
	}
}
