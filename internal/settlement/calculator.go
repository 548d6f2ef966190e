// Package settlement decides bet outcomes and runs settlement passes.
package settlement

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/turf-ledger/internal/models"
)

// ErrNoMatchedResults is returned when Settle is called without any matched result
var ErrNoMatchedResults = errors.New("no matched results to settle")

// moneyPlaces is the rounding applied to returns, profit/loss and derived prices
const moneyPlaces = 2

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Calculator computes settlement results. It holds no state between calls.
type Calculator struct {
	terms     PlaceTerms
	voidCodes map[string]struct{}
}

// NewCalculator creates a calculator from rules
func NewCalculator(rules Rules) *Calculator {
	codes := rules.VoidCodes
	if len(codes) == 0 {
		codes = DefaultVoidCodes
	}
	return &Calculator{
		terms:     rules.PlaceTerms,
		voidCodes: voidCodeSet(codes),
	}
}

// Settle computes the outcome of bet from its matched results, one per leg in
// leg order. Identical inputs always give identical results.
func (c *Calculator) Settle(bet *models.Bet, matched []models.RunnerResult) (models.SettlementResult, error) {
	if bet == nil {
		return models.SettlementResult{}, errors.New("bet is nil")
	}
	if len(matched) == 0 {
		return models.SettlementResult{}, ErrNoMatchedResults
	}

	expected := len(bet.HorseLegs())
	res := models.SettlementResult{
		Returns:        decimal.Zero,
		FinishPosition: finishPositions(matched),
	}
	multiple := bet.IsMultiple() || len(matched) > 1
	if multiple {
		res.MultiSP = multiSP(matched)
	}

	if expected > 1 && len(matched) < expected {
		res.Status = models.BetStatusPartialUpdate
		return res, nil
	}

	if multiple {
		c.settleMultiple(bet, matched, &res)
	} else {
		c.settleSingle(bet, &matched[0], &res)
	}

	if res.IsSettled() {
		res.Returns = res.Returns.Round(moneyPlaces)
		res.ProfitLoss = decimal.NewNullDecimal(res.Returns.Sub(bet.Stake))
	}
	res.ClosingLineValue = closingLineValue(bet.EffectiveOdds(), res.StartingPrice)
	return res, nil
}

func (c *Calculator) settleSingle(bet *models.Bet, r *models.RunnerResult, res *models.SettlementResult) {
	res.StartingPrice = r.StartingPrice
	res.OverallBeaten = r.OverallBeaten

	odds := bet.EffectiveOdds()
	half := bet.Stake.Div(two)

	if c.isVoid(r.Position) {
		res.Status = models.BetStatusVoid
		res.Returns = bet.Stake
		return
	}
	pos, ok := r.NumericPosition()
	switch {
	case !ok:
		res.Status = models.BetStatusPending
	case pos == 1 && bet.EachWay:
		res.Status = models.BetStatusWon
		res.Returns = half.Mul(odds).Add(half.Mul(c.terms.PlaceOdds(odds, r.Runners)))
	case pos == 1:
		res.Status = models.BetStatusWon
		res.Returns = bet.Stake.Mul(odds)
	case bet.EachWay && pos <= c.terms.PayingPlaces(r.Runners):
		res.Status = models.BetStatusPlaced
		res.Returns = half.Mul(c.terms.PlaceOdds(odds, r.Runners))
	default:
		res.Status = models.BetStatusLost
	}
}

// settleMultiple applies win-only terms. Each-way multiples are flagged rather
// than settled with per-leg place terms.
func (c *Calculator) settleMultiple(bet *models.Bet, legs []models.RunnerResult, res *models.SettlementResult) {
	res.StartingPrice = productSP(legs)
	res.OverallBeaten = sumBeaten(legs)

	allWon := true
	for i := range legs {
		if c.isVoid(legs[i].Position) {
			res.Status = models.BetStatusVoid
			res.Returns = bet.Stake
			return
		}
		if pos, ok := legs[i].NumericPosition(); !ok || pos != 1 {
			allWon = false
		}
	}

	if !allWon {
		res.Status = models.BetStatusLost
		return
	}
	res.Status = models.BetStatusWon
	res.Returns = bet.Stake.Mul(bet.EffectiveOdds())
	res.EachWayMultipleSimplified = bet.EachWay
}

func (c *Calculator) isVoid(position string) bool {
	_, ok := c.voidCodes[strings.ToLower(strings.TrimSpace(position))]
	return ok
}

func finishPositions(legs []models.RunnerResult) string {
	parts := make([]string, len(legs))
	for i := range legs {
		parts[i] = strings.TrimSpace(legs[i].Position)
	}
	return strings.Join(parts, models.DisplayLegSeparator)
}

func productSP(legs []models.RunnerResult) decimal.NullDecimal {
	product := decimal.NewFromInt(1)
	for i := range legs {
		if !legs[i].StartingPrice.Valid {
			return decimal.NullDecimal{}
		}
		product = product.Mul(legs[i].StartingPrice.Decimal)
	}
	return decimal.NewNullDecimal(product.Round(moneyPlaces))
}

func sumBeaten(legs []models.RunnerResult) decimal.NullDecimal {
	var sum decimal.NullDecimal
	for i := range legs {
		if !legs[i].OverallBeaten.Valid {
			continue
		}
		sum = decimal.NewNullDecimal(sum.Decimal.Add(legs[i].OverallBeaten.Decimal))
	}
	return sum
}

func multiSP(legs []models.RunnerResult) string {
	parts := make([]string, len(legs))
	for i := range legs {
		if legs[i].StartingPrice.Valid {
			parts[i] = legs[i].StartingPrice.Decimal.StringFixed(moneyPlaces)
		} else {
			parts[i] = "N/A"
		}
	}
	return strings.Join(parts, models.DisplayLegSeparator)
}

// closingLineValue is the percentage by which the settled odds beat the starting price
func closingLineValue(odds decimal.Decimal, sp decimal.NullDecimal) decimal.NullDecimal {
	if !sp.Valid || !sp.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	clv := odds.Sub(sp.Decimal).Div(sp.Decimal).Mul(hundred).Round(moneyPlaces)
	return decimal.NewNullDecimal(clv)
}
