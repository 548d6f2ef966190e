package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/logger"
	"github.com/yourusername/turf-ledger/internal/metrics"
	"github.com/yourusername/turf-ledger/internal/models"
	"github.com/yourusername/turf-ledger/internal/repository"
	"github.com/yourusername/turf-ledger/internal/results"
)

// Reasons a bet is left unchanged, used in logs and the errors metric
const (
	ReasonNoLegs           = "no_legs"
	ReasonLegMismatch      = "leg_mismatch"
	ReasonCourseUnresolved = "course_unresolved"
	ReasonHorseNotFound    = "horse_not_found"
	ReasonFetchFailed      = "fetch_failed"
	ReasonCalculation      = "calculation"
	ReasonStaleUpdate      = "stale_update"
	ReasonPersistFailed    = "persist_failed"
	ReasonCanceled         = "canceled"
)

// CourseResolver maps a raw track name to a course identifier
type CourseResolver interface {
	Resolve(rawTrackName string) (string, bool)
}

// ResultFetcher loads every runner result for a course on a day
type ResultFetcher interface {
	FetchResults(ctx context.Context, courseID string, date time.Time) ([]models.RunnerResult, error)
}

// HorseMatcher finds the result record for a raw horse name
type HorseMatcher interface {
	Match(rawHorseName string, results []models.RunnerResult) (*models.RunnerResult, bool)
}

// EventPublisher announces persisted settlements
type EventPublisher interface {
	Publish(ctx context.Context, event *models.SettlementEvent) error
}

// SummaryNotifier reports a finished pass
type SummaryNotifier interface {
	NotifyPass(ctx context.Context, summary *models.PassSummary) error
}

// Options configures pacing between result groups
type Options struct {
	GroupDelay     time.Duration
	FailureBackoff time.Duration
}

// Dependencies are the collaborators of a settlement pass.
// Publisher and Notifier are optional.
type Dependencies struct {
	Store      repository.BetStore
	Resolver   CourseResolver
	Fetcher    ResultFetcher
	Matcher    HorseMatcher
	Calculator *Calculator
	Publisher  EventPublisher
	Notifier   SummaryNotifier
}

// Orchestrator runs settlement passes over all unsettled bets
type Orchestrator struct {
	deps   Dependencies
	opts   Options
	logger *logger.SettlementLogger
	audit  *logger.AuditLogger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	lastPass atomic.Pointer[models.PassSummary]
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(deps Dependencies, opts Options, log *logrus.Logger) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("bet store is required")
	case deps.Resolver == nil:
		return nil, errors.New("course resolver is required")
	case deps.Fetcher == nil:
		return nil, errors.New("result fetcher is required")
	case deps.Matcher == nil:
		return nil, errors.New("horse matcher is required")
	case deps.Calculator == nil:
		return nil, errors.New("calculator is required")
	}

	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logger.NewSettlementLogger(log),
		audit:  logger.NewAuditLogger(log),
		sleep:  sleepContext,
		now:    time.Now,
	}, nil
}

// LastPass returns the summary of the most recent completed pass, or nil
func (o *Orchestrator) LastPass() *models.PassSummary {
	return o.lastPass.Load()
}

// pass holds the state of one RunPass call
type pass struct {
	summary *models.PassSummary
	cache   *results.Cache
	log     *logger.SettlementLogger
}

// RunPass settles every unsettled bet it can. Only a failure to load the bets
// aborts the pass; a canceled context stops it between groups and returns the
// partial summary with the context error. Bets left waiting on an unprocessed
// group are counted as errors with ReasonCanceled.
func (o *Orchestrator) RunPass(ctx context.Context) (*models.PassSummary, error) {
	passID := uuid.New()
	p := &pass{
		summary: &models.PassSummary{
			PassID:       passID,
			StartedAt:    o.now(),
			StatusCounts: make(map[models.BetStatus]int),
		},
		cache: results.NewCache(),
		log:   o.logger.ForPass(passID),
	}

	bets, err := o.deps.Store.ListUnsettled(ctx)
	if err != nil {
		p.log.WithError(err).Error("Failed to load unsettled bets")
		metrics.RecordSettlementError("load")
		return nil, fmt.Errorf("failed to load unsettled bets: %w", err)
	}

	groups, rejected := groupBets(bets)
	p.summary.Processed = len(bets)
	p.summary.Groups = len(groups)
	p.log.LogPassStarted(len(bets), len(groups))
	for range bets {
		metrics.RecordBetProcessed()
	}

	for _, r := range rejected {
		if r.err != nil {
			o.recordError(p, r.bet, r.reason, r.err)
		} else {
			o.recordUnmatched(p, r.bet, r.reason)
		}
	}

	runErr := o.processGroups(ctx, p, groups)
	if runErr != nil {
		o.abandonRemaining(p, groups, runErr)
	}

	o.finish(ctx, p)
	return p.summary, runErr
}

func (o *Orchestrator) processGroups(ctx context.Context, p *pass, groups []*betGroup) error {
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		failed := o.processGroup(ctx, p, g)

		if i == len(groups)-1 {
			break
		}
		if failed {
			if err := o.sleep(ctx, o.opts.FailureBackoff); err != nil {
				return err
			}
		}
		if err := o.sleep(ctx, o.opts.GroupDelay); err != nil {
			return err
		}
	}
	return nil
}

// processGroup resolves and fetches one group, then settles every bet whose
// last group this was. It reports whether the fetch failed.
func (o *Orchestrator) processGroup(ctx context.Context, p *pass, g *betGroup) bool {
	fetchFailed := false

	courseID, ok := o.deps.Resolver.Resolve(g.key.Track)
	if !ok {
		p.summary.UnresolvedGroups++
		p.log.LogGroupUnresolved(g.key.Track, g.key.Date, len(g.bets))
		for _, st := range g.bets {
			st.unresolved = true
		}
	} else {
		date := g.bets[0].bet.RaceDate
		runners, err := p.cache.GetOrFetch(ctx, results.NewKey(g.key.Track, g.key.Date), func(ctx context.Context) ([]models.RunnerResult, error) {
			return o.deps.Fetcher.FetchResults(ctx, courseID, date)
		})
		if err != nil {
			fetchFailed = true
			p.summary.FailedGroups++
			p.log.LogGroupFetchFailed(g.key.Track, g.key.Date, courseID, err)
		}
		for _, st := range g.bets {
			if err != nil {
				st.fetchErr = err
				continue
			}
			st.legResults[g.key.Track] = runners
		}
	}

	for _, st := range g.bets {
		st.remaining--
		if st.remaining == 0 {
			o.settleBet(ctx, p, st)
		}
	}

	return fetchFailed
}

func (o *Orchestrator) settleBet(ctx context.Context, p *pass, st *betState) {
	bet := st.bet

	if st.unresolved {
		o.recordUnmatched(p, bet, ReasonCourseUnresolved)
		return
	}
	if st.fetchErr != nil {
		o.recordError(p, bet, ReasonFetchFailed, st.fetchErr)
		return
	}

	matched := make([]models.RunnerResult, 0, len(st.horseLegs))
	for i, horse := range st.horseLegs {
		if r, ok := o.deps.Matcher.Match(horse, st.legResults[st.trackForLeg(i)]); ok {
			matched = append(matched, *r)
		}
	}
	if len(matched) == 0 {
		o.recordUnmatched(p, bet, ReasonHorseNotFound)
		return
	}

	res, err := o.deps.Calculator.Settle(bet, matched)
	if err != nil {
		o.recordError(p, bet, ReasonCalculation, err)
		return
	}
	if res.Status == models.BetStatusPending {
		p.summary.Pending++
		p.log.WithField("bet_id", bet.ID.String()).Debug("Result not yet official, leaving bet pending")
		return
	}
	if res.EachWayMultipleSimplified {
		p.log.LogEachWayMultipleSimplified(bet)
	}

	prev := bet.Status
	if unchangedPartial(bet, &res) {
		p.summary.Pending++
		p.log.WithField("bet_id", bet.ID.String()).Debug("Partial multiple has no new legs, leaving it unchanged")
		return
	}
	if err := o.deps.Store.ApplySettlement(ctx, bet.ID, prev, res); err != nil {
		if errors.Is(err, models.ErrStaleBet) {
			o.audit.LogStaleUpdate(bet.ID.String(), prev, o.now())
			o.recordError(p, bet, ReasonStaleUpdate, err)
			return
		}
		o.recordError(p, bet, ReasonPersistFailed, err)
		return
	}

	p.summary.Updated++
	p.summary.StatusCounts[res.Status]++
	metrics.RecordBetSettled(string(res.Status))
	p.log.LogBetSettled(bet, &res)

	event := &models.SettlementEvent{
		PassID:         p.summary.PassID,
		BetID:          bet.ID,
		PreviousStatus: prev,
		Status:         res.Status,
		Returns:        res.Returns,
		ProfitLoss:     res.ProfitLoss,
		FinishPosition: res.FinishPosition,
		SettledAt:      o.now(),
	}
	o.audit.LogBetStateChange(event)

	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.Publish(ctx, event); err != nil {
			p.log.WithError(err).WithField("bet_id", bet.ID.String()).Warn("Failed to publish settlement event")
		}
	}
}

// unchangedPartial reports whether a stored Partial Update would be rewritten
// with the same legs
func unchangedPartial(bet *models.Bet, res *models.SettlementResult) bool {
	return bet.Status == models.BetStatusPartialUpdate &&
		res.Status == models.BetStatusPartialUpdate &&
		bet.FinishPosition == res.FinishPosition
}

// abandonRemaining counts every bet still waiting on a group the pass did not reach
func (o *Orchestrator) abandonRemaining(p *pass, groups []*betGroup, err error) {
	for _, g := range groups {
		for _, st := range g.bets {
			if st.remaining == 0 {
				continue
			}
			st.remaining = 0
			o.recordError(p, st.bet, ReasonCanceled, err)
		}
	}
}

func (o *Orchestrator) recordUnmatched(p *pass, bet *models.Bet, reason string) {
	p.summary.Unmatched++
	metrics.RecordBetUnmatched()
	p.log.LogBetUnmatched(bet, reason)
}

func (o *Orchestrator) recordError(p *pass, bet *models.Bet, reason string, err error) {
	p.summary.Errors++
	metrics.RecordSettlementError(reason)
	p.log.LogBetError(bet, reason, err)
}

func (o *Orchestrator) finish(ctx context.Context, p *pass) {
	p.summary.Duration = o.now().Sub(p.summary.StartedAt)

	hits, misses, ratio := p.cache.Stats()
	metrics.RecordPass(p.summary.Duration, p.summary.Updated, ratio)
	p.log.WithFields(logrus.Fields{
		"result_keys": p.cache.Len(),
		"hits":        hits,
		"misses":      misses,
	}).Debug("Releasing pass result cache")
	p.log.LogPassSummary(p.summary)
	o.lastPass.Store(p.summary)

	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyPass(ctx, p.summary); err != nil {
			p.log.WithError(err).Warn("Failed to send pass summary")
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
