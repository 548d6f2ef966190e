package settlement

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/turf-ledger/internal/matcher"
	"github.com/yourusername/turf-ledger/internal/models"
)

// MockBetStore mocks the bet store
type MockBetStore struct {
	mock.Mock
}

func (m *MockBetStore) ListUnsettled(ctx context.Context) ([]*models.Bet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetStore) ApplySettlement(ctx context.Context, id uuid.UUID, prev models.BetStatus, res models.SettlementResult) error {
	args := m.Called(ctx, id, prev, res)
	return args.Error(0)
}

// MockResultFetcher mocks the results API client
type MockResultFetcher struct {
	mock.Mock
}

func (m *MockResultFetcher) FetchResults(ctx context.Context, courseID string, date time.Time) ([]models.RunnerResult, error) {
	args := m.Called(ctx, courseID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RunnerResult), args.Error(1)
}

// MockPublisher mocks the settlement event publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *models.SettlementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockNotifier mocks the pass summary notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyPass(ctx context.Context, summary *models.PassSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

type mapResolver map[string]string

func (r mapResolver) Resolve(raw string) (string, bool) {
	id, ok := r[raw]
	return id, ok
}

var raceDay = time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC)

func newBet(track, horse, stake, odds string) *models.Bet {
	return &models.Bet{
		ID:        uuid.New(),
		TrackName: track,
		HorseName: horse,
		RaceDate:  raceDay,
		Stake:     d(stake),
		Odds:      d(odds),
		Status:    models.BetStatusPending,
	}
}

func result(horse, position string) models.RunnerResult {
	return models.RunnerResult{Horse: horse, Position: position, Runners: 10, RaceDate: raceDay}
}

func withStatus(status models.BetStatus) interface{} {
	return mock.MatchedBy(func(r models.SettlementResult) bool { return r.Status == status })
}

type harness struct {
	store    *MockBetStore
	fetcher  *MockResultFetcher
	pub      *MockPublisher
	notifier *MockNotifier
	orch     *Orchestrator
	sleeps   []time.Duration
}

func newHarness(t *testing.T, resolver mapResolver) *harness {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := &harness{
		store:    &MockBetStore{},
		fetcher:  &MockResultFetcher{},
		pub:      &MockPublisher{},
		notifier: &MockNotifier{},
	}
	orch, err := NewOrchestrator(Dependencies{
		Store:      h.store,
		Resolver:   resolver,
		Fetcher:    h.fetcher,
		Matcher:    matcher.New(matcher.Options{}),
		Calculator: NewCalculator(DefaultRules()),
		Publisher:  h.pub,
		Notifier:   h.notifier,
	}, Options{GroupDelay: time.Second, FailureBackoff: 2 * time.Second}, log)
	require.NoError(t, err)

	orch.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return ctx.Err()
	}
	h.orch = orch
	h.notifier.On("NotifyPass", mock.Anything, mock.Anything).Return(nil).Maybe()
	return h
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	_, err := NewOrchestrator(Dependencies{}, Options{}, logrus.New())
	assert.Error(t, err)
}

func TestRunPassSettlesGroupWithSingleFetch(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	winner := newBet("Ascot", "Frankel", "10", "5.0")
	loser := newBet("Ascot", "Nathaniel", "5", "3.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{winner, loser}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).
		Return([]models.RunnerResult{result("Frankel", "1"), result("Nathaniel", "4")}, nil).Once()
	h.store.On("ApplySettlement", mock.Anything, winner.ID, models.BetStatusPending, withStatus(models.BetStatusWon)).Return(nil)
	h.store.On("ApplySettlement", mock.Anything, loser.ID, models.BetStatusPending, withStatus(models.BetStatusLost)).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Twice()

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Updated)
	assert.Equal(t, 1, summary.Groups)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 1, summary.StatusCounts[models.BetStatusWon])
	assert.Equal(t, 1, summary.StatusCounts[models.BetStatusLost])
	assert.Empty(t, h.sleeps, "no delay after the last group")
	assert.Same(t, summary, h.orch.LastPass())

	h.store.AssertExpectations(t)
	h.fetcher.AssertExpectations(t)
	h.pub.AssertExpectations(t)
	h.notifier.AssertCalled(t, "NotifyPass", mock.Anything, summary)
}

func TestRunPassPublishesSettlementEvent(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Ascot", "Frankel", "10", "5.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)
	h.store.On("ApplySettlement", mock.Anything, bet.ID, models.BetStatusPending, mock.Anything).Return(nil)

	var published *models.SettlementEvent
	h.pub.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published = args.Get(1).(*models.SettlementEvent)
	}).Return(nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)
	require.NotNil(t, published)

	assert.Equal(t, summary.PassID, published.PassID)
	assert.Equal(t, bet.ID, published.BetID)
	assert.Equal(t, models.BetStatusPending, published.PreviousStatus)
	assert.Equal(t, models.BetStatusWon, published.Status)
	assertDecimal(t, "50", published.Returns)
	assertNullDecimal(t, "40", published.ProfitLoss)
}

func TestRunPassUnresolvedGroup(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Atlantis Downs", "Frankel", "10", "5.0")
	other := newBet("Ascot", "Frankel", "10", "5.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet, other}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "2")}, nil)
	h.store.On("ApplySettlement", mock.Anything, other.ID, models.BetStatusPending, withStatus(models.BetStatusLost)).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 1, summary.UnresolvedGroups)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, []time.Duration{time.Second}, h.sleeps)
	h.store.AssertNotCalled(t, "ApplySettlement", mock.Anything, bet.ID, mock.Anything, mock.Anything)
}

func TestRunPassFetchFailureBacksOffAndContinues(t *testing.T) {
	h := newHarness(t, mapResolver{"York": "crs_2782", "Ascot": "crs_52"})
	failing := newBet("York", "Frankel", "10", "5.0")
	ok := newBet("Ascot", "Frankel", "10", "5.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{failing, ok}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_2782", raceDay).Return(nil, errors.New("upstream 503"))
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)
	h.store.On("ApplySettlement", mock.Anything, ok.ID, models.BetStatusPending, withStatus(models.BetStatusWon)).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.FailedGroups)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, h.sleeps)
}

func TestRunPassFetchesOncePerRawTrack(t *testing.T) {
	h := newHarness(t, mapResolver{"Kempton": "crs_1", "Kempton (AW)": "crs_1"})
	a := newBet("Kempton", "Frankel", "10", "5.0")
	b := newBet("Kempton (AW)", "Nathaniel", "10", "3.0")
	c := newBet("Kempton", "Nathaniel", "10", "3.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{a, b, c}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_1", raceDay).
		Return([]models.RunnerResult{result("Frankel", "1"), result("Nathaniel", "2")}, nil).Twice()
	h.store.On("ApplySettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Groups)
	assert.Equal(t, 3, summary.Updated)
	h.fetcher.AssertNumberOfCalls(t, "FetchResults", 2)
}

func TestRunPassHorseNotFound(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Ascot", "Completely Different", "10", "5.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 0, summary.Updated)
	h.store.AssertNotCalled(t, "ApplySettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPassPendingIsNotPersisted(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Ascot", "Frankel", "10", "5.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "PU")}, nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 0, summary.Updated)
	h.store.AssertNotCalled(t, "ApplySettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPassLegMismatch(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52", "York": "crs_2782"})
	bet := newBet("Ascot / York", "Frankel / Nathaniel / Sea The Stars", "10", "20.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.Groups)
	h.fetcher.AssertNotCalled(t, "FetchResults", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPassMultiTrackDoubleSettlesOnce(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52", "York": "crs_2782"})
	bet := newBet("Ascot / York", "Frankel / Nathaniel", "10", "6.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1"), result("Nathaniel", "5")}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_2782", raceDay).Return([]models.RunnerResult{result("Nathaniel", "1")}, nil)

	var applied models.SettlementResult
	h.store.On("ApplySettlement", mock.Anything, bet.ID, models.BetStatusPending, mock.Anything).Run(func(args mock.Arguments) {
		applied = args.Get(3).(models.SettlementResult)
	}).Return(nil).Once()
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Groups)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, models.BetStatusWon, applied.Status)
	assert.Equal(t, "1 / 1", applied.FinishPosition)
	assertDecimal(t, "60", applied.Returns)
	h.store.AssertExpectations(t)
}

func TestRunPassPartialMultipleIsPersisted(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Ascot", "Frankel / Unknown Horse", "10", "6.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)
	h.store.On("ApplySettlement", mock.Anything, bet.ID, models.BetStatusPending, withStatus(models.BetStatusPartialUpdate)).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.StatusCounts[models.BetStatusPartialUpdate])
}

func TestRunPassUnchangedPartialMultipleIsNotRewritten(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Ascot", "Frankel / Unknown Horse", "10", "6.0")
	bet.Status = models.BetStatusPartialUpdate
	bet.FinishPosition = "1"

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Pending)
	h.store.AssertNotCalled(t, "ApplySettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRunPassPartialMultipleWithNewLegIsRewritten(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Ascot", "Frankel / Nathaniel / Unknown Horse", "10", "6.0")
	bet.Status = models.BetStatusPartialUpdate
	bet.FinishPosition = "1"

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).
		Return([]models.RunnerResult{result("Frankel", "1"), result("Nathaniel", "2")}, nil)
	h.store.On("ApplySettlement", mock.Anything, bet.ID, models.BetStatusPartialUpdate, withStatus(models.BetStatusPartialUpdate)).Return(nil).Once()
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	h.store.AssertExpectations(t)
}

func TestRunPassPersistenceFailuresAreCounted(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	stale := newBet("Ascot", "Frankel", "10", "5.0")
	broken := newBet("Ascot", "Frankel", "10", "5.0")
	fine := newBet("Ascot", "Frankel", "10", "5.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{stale, broken, fine}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)
	h.store.On("ApplySettlement", mock.Anything, stale.ID, mock.Anything, mock.Anything).Return(models.ErrStaleBet)
	h.store.On("ApplySettlement", mock.Anything, broken.ID, mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	h.store.On("ApplySettlement", mock.Anything, fine.ID, mock.Anything, mock.Anything).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 1, summary.Updated)
	h.pub.AssertExpectations(t)
}

func TestRunPassPublishFailureIsNotAnError(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52"})
	bet := newBet("Ascot", "Frankel", "10", "5.0")

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{bet}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)
	h.store.On("ApplySettlement", mock.Anything, bet.ID, mock.Anything, mock.Anything).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	summary, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 1, summary.Updated)
}

func TestRunPassLoadFailureAborts(t *testing.T) {
	h := newHarness(t, mapResolver{})
	h.store.On("ListUnsettled", mock.Anything).Return(nil, errors.New("db unavailable"))

	summary, err := h.orch.RunPass(context.Background())
	assert.Error(t, err)
	assert.Nil(t, summary)
	h.notifier.AssertNotCalled(t, "NotifyPass", mock.Anything, mock.Anything)
}

func TestRunPassStopsWhenCanceled(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52", "York": "crs_2782"})
	first := newBet("Ascot", "Frankel", "10", "5.0")
	second := newBet("York", "Frankel", "10", "5.0")

	ctx, cancel := context.WithCancel(context.Background())
	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{first, second}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Run(func(mock.Arguments) {
		cancel()
	}).Return([]models.RunnerResult{result("Frankel", "3")}, nil)
	h.store.On("ApplySettlement", mock.Anything, first.ID, mock.Anything, mock.Anything).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := h.orch.RunPass(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Errors)
	h.fetcher.AssertNotCalled(t, "FetchResults", mock.Anything, "crs_2782", mock.Anything)
}

func TestRunPassCancelCountsEveryBet(t *testing.T) {
	h := newHarness(t, mapResolver{"Ascot": "crs_52", "York": "crs_2782", "Goodwood": "crs_546"})
	single := newBet("Ascot", "Frankel", "10", "5.0")
	double := newBet("Ascot / York", "Frankel / Nathaniel", "10", "6.0")
	waiting := newBet("Goodwood", "Enable", "10", "5.0")

	ctx, cancel := context.WithCancel(context.Background())
	h.orch.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		cancel()
		return ctx.Err()
	}

	h.store.On("ListUnsettled", mock.Anything).Return([]*models.Bet{single, double, waiting}, nil)
	h.fetcher.On("FetchResults", mock.Anything, "crs_52", raceDay).Return([]models.RunnerResult{result("Frankel", "1")}, nil)
	h.store.On("ApplySettlement", mock.Anything, single.ID, mock.Anything, mock.Anything).Return(nil)
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	summary, err := h.orch.RunPass(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Errors, "the double and the Goodwood bet are counted once each")
	assert.Equal(t, summary.Processed, summary.Updated+summary.Unmatched+summary.Errors+summary.Pending)
	h.store.AssertNotCalled(t, "ApplySettlement", mock.Anything, double.ID, mock.Anything, mock.Anything)
	h.store.AssertNotCalled(t, "ApplySettlement", mock.Anything, waiting.ID, mock.Anything, mock.Anything)
}

func TestGroupBetsFirstSeenOrder(t *testing.T) {
	bets := []*models.Bet{
		newBet("York", "A", "1", "2"),
		newBet("Ascot / York", "B / C", "1", "2"),
		newBet("Ascot", "D", "1", "2"),
		newBet("", "E", "1", "2"),
	}

	groups, rejected := groupBets(bets)
	require.Len(t, groups, 2)
	assert.Equal(t, "York", groups[0].key.Track)
	assert.Equal(t, "Ascot", groups[1].key.Track)
	assert.Len(t, groups[0].bets, 2)
	assert.Len(t, groups[1].bets, 2)
	assert.Equal(t, 2, groups[1].bets[0].remaining)

	require.Len(t, rejected, 1)
	assert.Equal(t, ReasonNoLegs, rejected[0].reason)
}
