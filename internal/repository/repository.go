// Package repository provides PostgreSQL access to recorded bets.
package repository

import (
	"fmt"

	"github.com/yourusername/turf-ledger/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Bets *PostgresBetRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Bets: NewPostgresBetRepository(db),
	}, nil
}

var (
	_ BetStore  = (*PostgresBetRepository)(nil)
	_ BetReader = (*PostgresBetRepository)(nil)
)
