package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linelogic/internal/models"
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

func sampleDecision() models.StakeDecision {
	return models.StakeDecision{
		ID:             uuid.New(),
		GameID:         "g1",
		GameDate:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Selection:      "BOS ML",
		Side:           models.SideHome,
		Team:           "BOS",
		Opponent:       "NYK",
		ModelProb:      0.6,
		FairMarketProb: 0.55,
		Edge:           0.05,
		AmericanOdds:   -120,
		DecimalOdds:    1.8333,
		StakeAmount:    decimal.RequireFromString("125.50"),
		BankrollAtTime: decimal.NewFromInt(10000),
		ModelVersion:   "elo-v1",
	}
}

func TestNewLoggerFor(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLoggerFor("debug", "production", buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLoggerFor("nonsense", "development", buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestAuditLoggerDecision(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	d := sampleDecision()
	require.NoError(t, audit.SaveDecisions(context.Background(), []models.StakeDecision{d}))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, d.ID.String(), logEntry["decision_id"])
	assert.Equal(t, "125.50", logEntry["stake"])
	assert.Equal(t, "home", logEntry["side"])
}

func TestAuditLoggerSettlement(t *testing.T) {
	log, buf := setupTestLogger()
	NewAuditLogger(log).LogSettlement(models.Settlement{
		ID:         uuid.New(),
		DecisionID: uuid.New(),
		Outcome:    models.OutcomeLoss,
		ProfitLoss: decimal.NewFromInt(-100),
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "loss", logEntry["outcome"])
	assert.Equal(t, "-100.00", logEntry["profit_loss"])
}

func TestDecisionLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "decisions.jsonl")
	dl := NewDecisionLogger(path)

	none, err := dl.ReadDecisions()
	require.NoError(t, err)
	assert.Empty(t, none)

	first, second := sampleDecision(), sampleDecision()
	require.NoError(t, dl.SaveDecisions(context.Background(), []models.StakeDecision{first}))
	require.NoError(t, dl.SaveDecisions(context.Background(), []models.StakeDecision{second}))

	got, err := dl.ReadDecisions()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.True(t, first.StakeAmount.Equal(got[0].StakeAmount))
}
