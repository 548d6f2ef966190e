package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/config"
)

// BetsTable is the table holding recorded racing bets
const BetsTable = "racing_bets"

// settlementColumns are written by a settlement and must exist before a pass runs
var settlementColumns = []string{
	"status", "returns", "profit_loss", "sp_industry", "ovr_btn",
	"fin_pos", "closing_line_value", "multi_sp", "updated_at",
}

// Initialize creates a database connection pool and verifies the bets table schema
func Initialize(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	missing, err := db.missingColumns(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to inspect %s: %w", BetsTable, err)
	}
	if len(missing) == len(settlementColumns) {
		db.Close()
		return nil, fmt.Errorf("table %s not found, apply the schema migrations first", BetsTable)
	}
	if len(missing) > 0 {
		db.Close()
		return nil, fmt.Errorf("table %s is missing settlement columns %v", BetsTable, missing)
	}

	logger.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
		"table":    BetsTable,
	}).Info("Database connection established")

	return db, nil
}

func (db *DB) missingColumns(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = $1`, BetsTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, col := range settlementColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing, nil
}
