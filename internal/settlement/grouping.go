package settlement

import (
	"github.com/yourusername/turf-ledger/internal/models"
)

// groupKey is the raw (track leg, race day) pair bets are fetched under
type groupKey struct {
	Track string
	Date  string
}

type betGroup struct {
	key  groupKey
	bets []*betState
}

// betState follows one bet across the groups it belongs to
type betState struct {
	bet        *models.Bet
	trackLegs  []string
	horseLegs  []string
	remaining  int
	unresolved bool
	fetchErr   error
	legResults map[string][]models.RunnerResult
}

// trackForLeg returns the track a horse leg ran at. A single track applies to every leg.
func (s *betState) trackForLeg(i int) string {
	if len(s.trackLegs) == 1 {
		return s.trackLegs[0]
	}
	return s.trackLegs[i]
}

// legsAligned reports whether a multi-track bet has one track per horse
func (s *betState) legsAligned() bool {
	return len(s.trackLegs) <= 1 || len(s.trackLegs) == len(s.horseLegs)
}

// groupBets splits bets into per-track groups in first-seen order. Bets that
// cannot be grouped are returned separately with the reason.
func groupBets(bets []*models.Bet) ([]*betGroup, []rejectedBet) {
	var (
		groups   []*betGroup
		rejected []rejectedBet
	)
	index := make(map[groupKey]*betGroup)

	for _, bet := range bets {
		st := &betState{
			bet:        bet,
			trackLegs:  bet.TrackLegs(),
			horseLegs:  bet.HorseLegs(),
			legResults: make(map[string][]models.RunnerResult),
		}

		switch {
		case len(st.trackLegs) == 0 || len(st.horseLegs) == 0:
			rejected = append(rejected, rejectedBet{bet: bet, reason: ReasonNoLegs})
			continue
		case !st.legsAligned():
			rejected = append(rejected, rejectedBet{bet: bet, reason: ReasonLegMismatch, err: models.ErrLegMismatch})
			continue
		}

		day := bet.RaceDay()
		seen := make(map[string]bool, len(st.trackLegs))
		for _, track := range st.trackLegs {
			if seen[track] {
				continue
			}
			seen[track] = true
			st.remaining++

			key := groupKey{Track: track, Date: day}
			g, ok := index[key]
			if !ok {
				g = &betGroup{key: key}
				index[key] = g
				groups = append(groups, g)
			}
			g.bets = append(g.bets, st)
		}
	}

	return groups, rejected
}

type rejectedBet struct {
	bet    *models.Bet
	reason string
	err    error
}
