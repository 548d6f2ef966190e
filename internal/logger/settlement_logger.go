// Package logger provides settlement-specific logging.
package logger

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/models"
)

// SettlementLogger provides dedicated logging for settlement passes.
type SettlementLogger struct {
	*logrus.Entry
}

// NewSettlementLogger creates a new settlement logger.
func NewSettlementLogger(baseLogger *logrus.Logger) *SettlementLogger {
	return &SettlementLogger{
		Entry: baseLogger.WithField("component", "settlement"),
	}
}

// ForPass returns a logger tagged with a pass id.
func (sl *SettlementLogger) ForPass(passID uuid.UUID) *SettlementLogger {
	return &SettlementLogger{Entry: sl.WithField("pass_id", passID.String())}
}

// LogPassStarted logs the start of a settlement pass.
func (sl *SettlementLogger) LogPassStarted(bets, groups int) {
	sl.WithFields(logrus.Fields{
		"unsettled_bets": bets,
		"groups":         groups,
	}).Info("Settlement pass started")
}

// LogBetSettled logs a persisted settlement.
func (sl *SettlementLogger) LogBetSettled(bet *models.Bet, result *models.SettlementResult) {
	fields := logrus.Fields{
		"bet_id":          bet.ID.String(),
		"horse":           bet.HorseName,
		"track":           bet.TrackName,
		"race_date":       bet.RaceDay(),
		"previous_status": string(bet.Status),
		"status":          string(result.Status),
		"returns":         result.Returns.StringFixed(2),
		"fin_pos":         result.FinishPosition,
	}
	if result.ProfitLoss.Valid {
		fields["profit_loss"] = result.ProfitLoss.Decimal.StringFixed(2)
	}
	sl.WithFields(fields).Info("Bet settled")
}

// LogEachWayMultipleSimplified logs an each-way multiple settled on win terms only.
func (sl *SettlementLogger) LogEachWayMultipleSimplified(bet *models.Bet) {
	sl.WithFields(logrus.Fields{
		"bet_id": bet.ID.String(),
		"horse":  bet.HorseName,
	}).Warn("Each-way multiple settled on win terms only")
}

// LogBetUnmatched logs a bet left unchanged.
func (sl *SettlementLogger) LogBetUnmatched(bet *models.Bet, reason string) {
	sl.WithFields(logrus.Fields{
		"bet_id":    bet.ID.String(),
		"horse":     bet.HorseName,
		"track":     bet.TrackName,
		"race_date": bet.RaceDay(),
		"reason":    reason,
	}).Info("Bet left unsettled")
}

// LogBetError logs a bet that failed to settle.
func (sl *SettlementLogger) LogBetError(bet *models.Bet, reason string, err error) {
	entry := sl.WithFields(logrus.Fields{
		"bet_id":    bet.ID.String(),
		"horse":     bet.HorseName,
		"track":     bet.TrackName,
		"race_date": bet.RaceDay(),
		"reason":    reason,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error("Bet settlement failed")
}

// LogGroupUnresolved logs a track that did not resolve to a course.
func (sl *SettlementLogger) LogGroupUnresolved(track, date string, bets int) {
	sl.WithFields(logrus.Fields{
		"track": track,
		"date":  date,
		"bets":  bets,
	}).Warn("Track not resolved, skipping group")
}

// LogGroupFetchFailed logs a results fetch failure for a group.
func (sl *SettlementLogger) LogGroupFetchFailed(track, date, courseID string, err error) {
	sl.WithFields(logrus.Fields{
		"track":     track,
		"date":      date,
		"course_id": courseID,
	}).WithError(err).Error("Results fetch failed")
}

// LogPassSummary logs the counts of a finished pass.
func (sl *SettlementLogger) LogPassSummary(summary *models.PassSummary) {
	sl.WithFields(logrus.Fields{
		"processed":         summary.Processed,
		"updated":           summary.Updated,
		"unmatched":         summary.Unmatched,
		"pending":           summary.Pending,
		"errors":            summary.Errors,
		"groups":            summary.Groups,
		"unresolved_groups": summary.UnresolvedGroups,
		"failed_groups":     summary.FailedGroups,
		"duration_ms":       summary.Duration.Milliseconds(),
	}).Info("Settlement pass completed")
}
