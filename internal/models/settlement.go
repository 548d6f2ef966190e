package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementResult is the computed outcome of a bet against its matched results
type SettlementResult struct {
	Status                    BetStatus           `json:"status"`
	Returns                   decimal.Decimal     `json:"returns"`
	ProfitLoss                decimal.NullDecimal `json:"profit_loss"` // not claimed for Pending and Partial Update
	StartingPrice             decimal.NullDecimal `json:"sp_industry"`
	OverallBeaten             decimal.NullDecimal `json:"ovr_btn"`
	FinishPosition            string              `json:"fin_pos"`
	ClosingLineValue          decimal.NullDecimal `json:"closing_line_value"`
	MultiSP                   string              `json:"multi_sp,omitempty"`
	EachWayMultipleSimplified bool                `json:"each_way_multiple_simplified,omitempty"`
}

// IsSettled checks if the result carries a final outcome
func (r *SettlementResult) IsSettled() bool {
	return r.Status.IsFinal()
}

// SettlementEvent is published after a settlement has been persisted
type SettlementEvent struct {
	PassID         uuid.UUID           `json:"pass_id"`
	BetID          uuid.UUID           `json:"bet_id"`
	PreviousStatus BetStatus           `json:"previous_status"`
	Status         BetStatus           `json:"status"`
	Returns        decimal.Decimal     `json:"returns"`
	ProfitLoss     decimal.NullDecimal `json:"profit_loss"`
	FinishPosition string              `json:"fin_pos"`
	SettledAt      time.Time           `json:"settled_at"`
}

// PassSummary aggregates the counts of one settlement pass
type PassSummary struct {
	PassID           uuid.UUID         `json:"pass_id"`
	StartedAt        time.Time         `json:"started_at"`
	Duration         time.Duration     `json:"duration"`
	Processed        int               `json:"processed"`
	Updated          int               `json:"updated"`
	Unmatched        int               `json:"unmatched"`
	Pending          int               `json:"pending"`
	Errors           int               `json:"errors"`
	Groups           int               `json:"groups"`
	UnresolvedGroups int               `json:"unresolved_groups"`
	FailedGroups     int               `json:"failed_groups"`
	StatusCounts     map[BetStatus]int `json:"status_counts"`
}
