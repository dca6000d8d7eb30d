package logger

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/models"
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

// LogDecision logs an emitted stake decision.
func (al *AuditLogger) LogDecision(d models.StakeDecision) {
	al.WithFields(logrus.Fields{
		"decision_id":   d.ID.String(),
		"game_id":       d.GameID,
		"game_date":     d.GameDate.Format(models.DateLayout),
		"selection":     d.Selection,
		"side":          string(d.Side),
		"model_prob":    d.ModelProb,
		"fair_prob":     d.FairMarketProb,
		"edge":          d.Edge,
		"american_odds": d.AmericanOdds,
		"kelly_raw":     d.KellyFractionRaw,
		"kelly_applied": d.KellyFractionApplied,
		"stake":         d.StakeAmount.StringFixed(2),
		"bankroll":      d.BankrollAtTime.StringFixed(2),
		"model_version": d.ModelVersion,
	}).Info("Stake decision recorded")
}

// LogSettlement logs a settled decision.
func (al *AuditLogger) LogSettlement(s models.Settlement) {
	al.WithFields(logrus.Fields{
		"settlement_id": s.ID.String(),
		"decision_id":   s.DecisionID.String(),
		"outcome":       string(s.Outcome),
		"home_score":    s.HomeScore,
		"away_score":    s.AwayScore,
		"profit_loss":   s.ProfitLoss.StringFixed(2),
	}).Info("Decision settled")
}

// LogConfigChange logs a configuration value changed at runtime.
func (al *AuditLogger) LogConfigChange(key string, oldValue, newValue interface{}, changedBy string) {
	al.WithFields(logrus.Fields{
		"key":        key,
		"old_value":  oldValue,
		"new_value":  newValue,
		"changed_by": changedBy,
	}).Info("Configuration changed")
}

// SaveDecisions logs each decision, so the audit trail can sit alongside
// other decision sinks.
func (al *AuditLogger) SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error {
	for _, d := range decisions {
		al.LogDecision(d)
	}
	return nil
}
