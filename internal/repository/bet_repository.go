package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/yourusername/turf-ledger/internal/database"
	"github.com/yourusername/turf-ledger/internal/models"
)

const betColumns = `
	id, track_name, horse_name, race_date, stake::text, odds::text,
	COALESCE(each_way, false), COALESCE(status, ''), rule_4_adjusted_odds::text,
	COALESCE(fin_pos, ''), created_at, updated_at`

// unsettledFilter mirrors models.BetStatus.IsUnsettled
const unsettledFilter = `
	status IS NULL
	OR btrim(status) = ''
	OR lower(btrim(status)) IN ('new', 'partial update')
	OR status ILIKE '%pending%'
	OR status ILIKE '%open%'`

// PostgresBetRepository implements BetStore for PostgreSQL
type PostgresBetRepository struct {
	db *database.DB
}

// NewPostgresBetRepository creates a new bet repository
func NewPostgresBetRepository(db *database.DB) *PostgresBetRepository {
	return &PostgresBetRepository{db: db}
}

// GetByID retrieves a bet by ID
func (b *PostgresBetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM ` + database.BetsTable + ` WHERE id = $1`

	bet, err := scanBet(b.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}

	return bet, nil
}

// ListUnsettled retrieves all bets awaiting settlement, oldest race first
func (b *PostgresBetRepository) ListUnsettled(ctx context.Context) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM ` + database.BetsTable +
		` WHERE ` + unsettledFilter + ` ORDER BY race_date ASC, created_at ASC`

	rows, err := b.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsettled bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		if bet.Status.IsUnsettled() {
			bets = append(bets, bet)
		}
	}

	return bets, rows.Err()
}

// ApplySettlement writes the settlement fields as a conditional update keyed by id and previous status
func (b *PostgresBetRepository) ApplySettlement(ctx context.Context, id uuid.UUID, prev models.BetStatus, res models.SettlementResult) error {
	query := `
		UPDATE ` + database.BetsTable + ` SET
			status = $3, returns = $4::numeric, profit_loss = $5::numeric,
			sp_industry = $6::numeric, ovr_btn = $7::numeric, fin_pos = $8,
			closing_line_value = $9::numeric, multi_sp = $10, updated_at = $11
		WHERE id = $1 AND COALESCE(status, '') = $2
	`

	commandTag, err := b.db.GetPool().Exec(ctx, query, settlementArgs(id, prev, res, time.Now().UTC())...)
	if err != nil {
		return fmt.Errorf("failed to apply settlement: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrStaleBet
	}

	return nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (*models.Bet, error) {
	var (
		bet         models.Bet
		status      string
		stake, odds *string
		rule4       *string
		raceDate    time.Time
		createdAt   *time.Time
		updatedAt   *time.Time
	)

	err := row.Scan(
		&bet.ID, &bet.TrackName, &bet.HorseName, &raceDate, &stake, &odds,
		&bet.EachWay, &status, &rule4, &bet.FinishPosition, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	bet.RaceDate = raceDate
	bet.Status = models.BetStatus(status)
	if bet.Stake, err = parseRequiredDecimal(stake); err != nil {
		return nil, fmt.Errorf("bet %s stake: %w", bet.ID, err)
	}
	if bet.Odds, err = parseRequiredDecimal(odds); err != nil {
		return nil, fmt.Errorf("bet %s odds: %w", bet.ID, err)
	}
	if bet.Rule4AdjustedOdds, err = parseNullDecimal(rule4); err != nil {
		return nil, fmt.Errorf("bet %s rule 4 odds: %w", bet.ID, err)
	}
	if createdAt != nil {
		bet.CreatedAt = *createdAt
	}
	if updatedAt != nil {
		bet.UpdatedAt = *updatedAt
	}

	return &bet, nil
}

func settlementArgs(id uuid.UUID, prev models.BetStatus, res models.SettlementResult, now time.Time) []any {
	return []any{
		id,
		string(prev),
		string(res.Status),
		res.Returns.StringFixed(2),
		nullDecimalArg(res.ProfitLoss),
		nullDecimalArg(res.StartingPrice),
		nullDecimalArg(res.OverallBeaten),
		nullStringArg(res.FinishPosition),
		nullDecimalArg(res.ClosingLineValue),
		nullStringArg(res.MultiSP),
		now,
	}
}

func parseRequiredDecimal(s *string) (decimal.Decimal, error) {
	if s == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*s)
}

func parseNullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func nullDecimalArg(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func nullStringArg(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
