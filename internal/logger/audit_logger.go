// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/models"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogBetStateChange logs a persisted bet status transition.
func (al *AuditLogger) LogBetStateChange(event *models.SettlementEvent) {
	fields := logrus.Fields{
		"pass_id":    event.PassID.String(),
		"bet_id":     event.BetID.String(),
		"old_state":  string(event.PreviousStatus),
		"new_state":  string(event.Status),
		"returns":    event.Returns.StringFixed(2),
		"fin_pos":    event.FinishPosition,
		"settled_at": event.SettledAt.Unix(),
	}
	if event.ProfitLoss.Valid {
		fields["profit_loss"] = event.ProfitLoss.Decimal.StringFixed(2)
	}
	al.WithFields(fields).Info("Bet state changed")
}

// LogStaleUpdate logs a conditional update rejected because the bet changed underneath the pass.
func (al *AuditLogger) LogStaleUpdate(betID string, expectedState models.BetStatus, at time.Time) {
	al.WithFields(logrus.Fields{
		"bet_id":         betID,
		"expected_state": string(expectedState),
		"timestamp":      at.Unix(),
	}).Warn("Bet update skipped, status changed concurrently")
}
