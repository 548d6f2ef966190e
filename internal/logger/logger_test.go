package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/turf-ledger/internal/models"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func testBet() *models.Bet {
	return &models.Bet{
		ID:        uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		TrackName: "Ascot",
		HorseName: "Frankel",
		RaceDate:  time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC),
		Stake:     decimal.NewFromInt(10),
		Odds:      decimal.NewFromInt(5),
		Status:    models.BetStatusPending,
	}
}

func TestNewLoggerForEnvironment(t *testing.T) {
	prod := NewLoggerForEnvironment("debug", "production")
	assert.Equal(t, logrus.DebugLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)

	dev := NewLoggerForEnvironment("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)
}

func TestSettlementLoggerBetSettled(t *testing.T) {
	log, buf := setupTestLogger()
	sl := NewSettlementLogger(log).ForPass(uuid.MustParse("99999999-2222-3333-4444-555555555555"))

	result := &models.SettlementResult{
		Status:         models.BetStatusWon,
		Returns:        decimal.NewFromInt(50),
		ProfitLoss:     decimal.NewNullDecimal(decimal.NewFromInt(40)),
		FinishPosition: "1",
	}
	sl.LogBetSettled(testBet(), result)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "settlement", logEntry["component"])
	assert.Equal(t, "99999999-2222-3333-4444-555555555555", logEntry["pass_id"])
	assert.Equal(t, "Won", logEntry["status"])
	assert.Equal(t, "Pending", logEntry["previous_status"])
	assert.Equal(t, "50.00", logEntry["returns"])
	assert.Equal(t, "40.00", logEntry["profit_loss"])
	assert.Equal(t, "2024-06-18", logEntry["race_date"])
}

func TestSettlementLoggerBetError(t *testing.T) {
	log, buf := setupTestLogger()
	sl := NewSettlementLogger(log)

	sl.LogBetError(testBet(), "persist", errors.New("connection reset"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "persist", logEntry["reason"])
	assert.Equal(t, "connection reset", logEntry["error"])
}

func TestSettlementLoggerPassSummary(t *testing.T) {
	log, buf := setupTestLogger()
	sl := NewSettlementLogger(log)

	sl.LogPassSummary(&models.PassSummary{
		Processed: 10,
		Updated:   6,
		Unmatched: 2,
		Errors:    1,
		Pending:   1,
		Duration:  1500 * time.Millisecond,
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(10), logEntry["processed"])
	assert.Equal(t, float64(6), logEntry["updated"])
	assert.Equal(t, float64(1500), logEntry["duration_ms"])
	assert.Equal(t, "Settlement pass completed", logEntry["msg"])
}

func TestAuditLoggerBetStateChange(t *testing.T) {
	log, buf := setupTestLogger()
	al := NewAuditLogger(log)

	al.LogBetStateChange(&models.SettlementEvent{
		PassID:         uuid.New(),
		BetID:          uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		PreviousStatus: models.BetStatusPending,
		Status:         models.BetStatusPartialUpdate,
		Returns:        decimal.Zero,
		FinishPosition: "1",
		SettledAt:      time.Unix(1718700000, 0),
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "Partial Update", logEntry["new_state"])
	assert.Equal(t, "0.00", logEntry["returns"])
	assert.NotContains(t, logEntry, "profit_loss")
	assert.Equal(t, float64(1718700000), logEntry["settled_at"])
}

func TestAuditLoggerStaleUpdate(t *testing.T) {
	log, buf := setupTestLogger()
	al := NewAuditLogger(log)

	al.LogStaleUpdate("bet-1", models.BetStatusPending, time.Unix(100, 0))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "Pending", logEntry["expected_state"])
}
