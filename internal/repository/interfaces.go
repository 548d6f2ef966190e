package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/turf-ledger/internal/models"
)

// BetStore defines the persistence operations a settlement pass needs
type BetStore interface {
	// ListUnsettled returns every bet whose status still needs settling
	ListUnsettled(ctx context.Context) ([]*models.Bet, error)
	// ApplySettlement writes a result onto a bet only if its status is still prev.
	// Returns models.ErrStaleBet when the bet changed since it was read.
	ApplySettlement(ctx context.Context, id uuid.UUID, prev models.BetStatus, res models.SettlementResult) error
}

// BetReader reads individual bets
type BetReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error)
}
