package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetStatus represents the settlement state of a bet
type BetStatus string

const (
	BetStatusPending       BetStatus = "Pending"
	BetStatusWon           BetStatus = "Won"
	BetStatusLost          BetStatus = "Lost"
	BetStatusPlaced        BetStatus = "Placed"
	BetStatusVoid          BetStatus = "Void"
	BetStatusPartialUpdate BetStatus = "Partial Update"
)

// LegSeparator joins the legs of a multiple in the track and horse fields
// and in derived display strings.
const (
	LegSeparator        = "/"
	DisplayLegSeparator = " / "
)

// IsUnsettled reports whether the status still needs a settlement pass.
// Legacy rows carry empty, "open" or "new" statuses and are treated as pending.
func (s BetStatus) IsUnsettled() bool {
	v := strings.ToLower(strings.TrimSpace(string(s)))
	switch {
	case v == "":
		return true
	case v == "new":
		return true
	case v == strings.ToLower(string(BetStatusPartialUpdate)):
		return true
	case strings.Contains(v, "pending"), strings.Contains(v, "open"):
		return true
	}
	return false
}

// IsFinal reports whether the status is a settled outcome.
func (s BetStatus) IsFinal() bool {
	switch s {
	case BetStatusWon, BetStatusLost, BetStatusPlaced, BetStatusVoid:
		return true
	}
	return false
}

// Bet represents a recorded racing bet
type Bet struct {
	ID                uuid.UUID           `db:"id" json:"id" validate:"required"`
	TrackName         string              `db:"track_name" json:"track_name" validate:"required"` // may be "/"-joined for multiples
	HorseName         string              `db:"horse_name" json:"horse_name" validate:"required"` // may be "/"-joined for multiples
	RaceDate          time.Time           `db:"race_date" json:"race_date" validate:"required"`
	Stake             decimal.Decimal     `db:"stake" json:"stake"`
	Odds              decimal.Decimal     `db:"odds" json:"odds"`
	EachWay           bool                `db:"each_way" json:"each_way"`
	Status            BetStatus           `db:"status" json:"status"`
	Rule4AdjustedOdds decimal.NullDecimal `db:"rule_4_adjusted_odds" json:"rule_4_adjusted_odds"`
	FinishPosition    string              `db:"fin_pos" json:"fin_pos,omitempty"` // last persisted finish display
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// EffectiveOdds returns the Rule 4 adjusted odds when recorded, otherwise the taken odds
func (b *Bet) EffectiveOdds() decimal.Decimal {
	if b.Rule4AdjustedOdds.Valid && b.Rule4AdjustedOdds.Decimal.IsPositive() {
		return b.Rule4AdjustedOdds.Decimal
	}
	return b.Odds
}

// RaceDay returns the race date formatted as YYYY-MM-DD
func (b *Bet) RaceDay() string {
	return b.RaceDate.Format(DateLayout)
}

// HorseLegs returns the horse names of each leg
func (b *Bet) HorseLegs() []string {
	return SplitLegs(b.HorseName)
}

// TrackLegs returns the track names of each leg
func (b *Bet) TrackLegs() []string {
	return SplitLegs(b.TrackName)
}

// IsMultiple checks if the bet has more than one leg
func (b *Bet) IsMultiple() bool {
	return len(b.HorseLegs()) > 1
}

// DateLayout is the date format used by bets and the results API
const DateLayout = "2006-01-02"

// SplitLegs splits a "/"-joined field into trimmed, non-empty legs
func SplitLegs(raw string) []string {
	parts := strings.Split(raw, LegSeparator)
	legs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			legs = append(legs, p)
		}
	}
	return legs
}
