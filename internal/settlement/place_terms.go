package settlement

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/turf-ledger/internal/config"
)

// PlaceTier gives the number of paying places from a minimum field size
type PlaceTier struct {
	MinRunners int
	Places     int
}

// FractionTier gives the each-way place fraction from a minimum field size
type FractionTier struct {
	MinRunners int
	Fraction   decimal.Decimal
}

// PlaceTerms holds the each-way place terms. Tiers are evaluated from the
// largest MinRunners down and the first tier the field size reaches applies.
type PlaceTerms struct {
	places    []PlaceTier
	fractions []FractionTier
}

// NewPlaceTerms builds place terms from unordered tiers
func NewPlaceTerms(places []PlaceTier, fractions []FractionTier) PlaceTerms {
	p := append([]PlaceTier(nil), places...)
	sort.Slice(p, func(i, j int) bool { return p[i].MinRunners > p[j].MinRunners })
	f := append([]FractionTier(nil), fractions...)
	sort.Slice(f, func(i, j int) bool { return f[i].MinRunners > f[j].MinRunners })
	return PlaceTerms{places: p, fractions: f}
}

// DefaultPlaceTerms returns the standard terms: 16+ runners pay 4 places at
// 1/4, 8-15 pay 3 at 1/5, 5-7 pay 2 at 1/5 and smaller fields pay none at 1/4.
func DefaultPlaceTerms() PlaceTerms {
	quarter := decimal.NewFromFloat(0.25)
	fifth := decimal.NewFromFloat(0.20)
	return NewPlaceTerms(
		[]PlaceTier{
			{MinRunners: 16, Places: 4},
			{MinRunners: 8, Places: 3},
			{MinRunners: 5, Places: 2},
			{MinRunners: 0, Places: 0},
		},
		[]FractionTier{
			{MinRunners: 16, Fraction: quarter},
			{MinRunners: 5, Fraction: fifth},
			{MinRunners: 0, Fraction: quarter},
		},
	)
}

// PayingPlaces returns the number of places paid for a field of runners
func (p PlaceTerms) PayingPlaces(runners int) int {
	for _, t := range p.places {
		if runners >= t.MinRunners {
			return t.Places
		}
	}
	return 0
}

// Fraction returns the place fraction for a field of runners
func (p PlaceTerms) Fraction(runners int) decimal.Decimal {
	for _, t := range p.fractions {
		if runners >= t.MinRunners {
			return t.Fraction
		}
	}
	return decimal.Zero
}

// PlaceOdds converts decimal win odds to place odds: (odds-1) * fraction + 1
func (p PlaceTerms) PlaceOdds(odds decimal.Decimal, runners int) decimal.Decimal {
	return odds.Sub(decimal.NewFromInt(1)).Mul(p.Fraction(runners)).Add(decimal.NewFromInt(1))
}

// DefaultVoidCodes are the finishing positions that void a leg
var DefaultVoidCodes = []string{"nr", "ns", "rr", "void"}

// Rules configures the outcome calculator
type Rules struct {
	PlaceTerms PlaceTerms
	VoidCodes  []string
}

// DefaultRules returns the default place terms and void codes
func DefaultRules() Rules {
	return Rules{PlaceTerms: DefaultPlaceTerms(), VoidCodes: DefaultVoidCodes}
}

// RulesFromConfig builds calculator rules from the settlement configuration
func RulesFromConfig(cfg config.SettlementConfig) Rules {
	places := make([]PlaceTier, 0, len(cfg.PlaceTerms.Places))
	for _, t := range cfg.PlaceTerms.Places {
		places = append(places, PlaceTier{MinRunners: t.MinRunners, Places: t.Places})
	}
	fractions := make([]FractionTier, 0, len(cfg.PlaceTerms.Fractions))
	for _, t := range cfg.PlaceTerms.Fractions {
		fractions = append(fractions, FractionTier{MinRunners: t.MinRunners, Fraction: decimal.NewFromFloat(t.Fraction)})
	}

	rules := Rules{PlaceTerms: NewPlaceTerms(places, fractions), VoidCodes: cfg.VoidCodes}
	if len(places) == 0 || len(fractions) == 0 {
		rules.PlaceTerms = DefaultPlaceTerms()
	}
	return rules
}

func voidCodeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}
