package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordRecommendation(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("home"))

	RecordRecommendation("home", 0.04)

	assert.Equal(t, before+1, testutil.ToFloat64(RecommendationsTotal.WithLabelValues("home")))
}

func TestCountersByLabel(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(GamesProcessedTotal.WithLabelValues("replay"))
	RecordGamesProcessed("replay", 12)
	assert.Equal(t, before+12, testutil.ToFloat64(GamesProcessedTotal.WithLabelValues("replay")))

	before = testutil.ToFloat64(NoPicksTotal.WithLabelValues("edge_below_threshold"))
	RecordNoPick("edge_below_threshold")
	assert.Equal(t, before+1, testutil.ToFloat64(NoPicksTotal.WithLabelValues("edge_below_threshold")))

	before = testutil.ToFloat64(SettlementsTotal.WithLabelValues("win"))
	RecordSettlement("win")
	assert.Equal(t, before+1, testutil.ToFloat64(SettlementsTotal.WithLabelValues("win")))
}

func TestGauges(t *testing.T) {
	tests := []struct {
		name     string
		bankroll float64
	}{
		{"positive bankroll", 10000},
		{"zero bankroll", 0},
		{"negative bankroll", -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateBankroll(tt.bankroll)
			assert.Equal(t, tt.bankroll, testutil.ToFloat64(CurrentBankroll))
		})
	}

	UpdateRatedTeams(30)
	assert.Equal(t, 30.0, testutil.ToFloat64(RatedTeams))
}

func TestBacktestMetrics(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordBacktestRun("walk_forward", "success")
		RecordBacktestResult("walk_forward", 0.031, 0.231, 4.2)
	})
	assert.Equal(t, 0.031, testutil.ToFloat64(BacktestROI.WithLabelValues("walk_forward")))
}

func TestMetricsHandler(t *testing.T) {
	RecordPipelineDuration("recommend", 0.25)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "linelogic_pipeline_duration_seconds"))
}

func BenchmarkRecordRecommendation(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordRecommendation("home", 0.03)
	}
}
