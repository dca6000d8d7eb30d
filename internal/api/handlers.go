package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/odds"
	"github.com/yourusername/linelogic/internal/rating"
	"github.com/yourusername/linelogic/internal/settlement"
	"github.com/yourusername/linelogic/internal/staking"
)

// StakeRequest asks for a stake on a single price
type StakeRequest struct {
	ModelProb            float64 `json:"model_prob" validate:"gt=0,lt=1"`
	AmericanOdds         int     `json:"american_odds" validate:"required"`
	OpponentAmericanOdds int     `json:"opponent_american_odds,omitempty"`
	Bankroll             float64 `json:"bankroll,omitempty" validate:"gte=0"`
	KellyFraction        float64 `json:"kelly_fraction,omitempty" validate:"gte=0,lte=1"`
}

// StakeResponse describes the price and the sized stake
type StakeResponse struct {
	DecimalOdds   float64             `json:"decimal_odds"`
	ImpliedProb   float64             `json:"implied_prob"`
	FairProb      float64             `json:"fair_prob"`
	Edge          float64             `json:"edge"`
	Qualifies     bool                `json:"qualifies"`
	ExpectedValue float64             `json:"expected_value"`
	Result        staking.StakeResult `json:"result"`
}

// RatingEntry is one row of the standings
type RatingEntry struct {
	Rank   int     `json:"rank"`
	Team   string  `json:"team"`
	Rating float64 `json:"rating"`
}

// RatingsResponse lists teams by descending rating
type RatingsResponse struct {
	SavedAt string        `json:"saved_at"`
	Teams   []RatingEntry `json:"teams"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.deps.Recommender.RecommendDate(r.Context(), date)
	if err != nil {
		s.logger.WithError(err).WithField("date", date.Format(models.DateLayout)).Error("Recommendation run failed")
		respondError(w, http.StatusBadGateway, fmt.Sprintf("recommendation failed: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	decimalOdds, err := odds.AmericanToDecimal(req.AmericanOdds)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	implied := odds.AmericanToImpliedProb(req.AmericanOdds)
	fair := implied
	if req.OpponentAmericanOdds != 0 {
		if _, err := odds.AmericanToDecimal(req.OpponentAmericanOdds); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		fair, _, err = odds.RemoveVigTwoWay(implied, odds.AmericanToImpliedProb(req.OpponentAmericanOdds))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	bankroll, err := s.bankroll(r.Context(), req.Bankroll)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.deps.Staking.Config()
	fraction := cfg.KellyFraction
	if req.KellyFraction > 0 {
		fraction = req.KellyFraction
	}
	result, err := s.deps.Staking.CalculateStake(req.ModelProb, decimalOdds, bankroll, fraction, cfg.Caps)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("calculation error: %v", err))
		return
	}

	edge := odds.Edge(req.ModelProb, fair)
	stake, _ := result.Stake.Float64()
	respondJSON(w, http.StatusOK, StakeResponse{
		DecimalOdds:   decimalOdds,
		ImpliedProb:   implied,
		FairProb:      fair,
		Edge:          edge,
		Qualifies:     s.deps.Staking.Qualifies(edge),
		ExpectedValue: odds.ExpectedValue(req.ModelProb, odds.PayoutFromAmerican(req.AmericanOdds, stake), stake),
		Result:        result,
	})
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	decisions, err := s.deps.Decisions.GetByDate(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if decisions == nil {
		decisions = []models.StakeDecision{}
	}
	respondJSON(w, http.StatusOK, decisions)
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()

	decisions, err := s.deps.Decisions.GetByDate(ctx, date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var settled []models.Settlement
	for _, d := range decisions {
		st, err := s.deps.Settlements.GetByDecisionID(ctx, d.ID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		settled = append(settled, *st)
	}

	summary := settlement.Summarize(decisions, settled)
	summary.Date = date
	summary.Pending = len(decisions) - summary.Settled
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	cp, err := s.deps.Checkpoints.Load(r.Context())
	if errors.Is(err, rating.ErrNoCheckpoint) {
		respondError(w, http.StatusNotFound, "no ratings checkpoint stored")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, RatingsResponse{
		SavedAt: cp.SavedAt.Format(time.RFC3339),
		Teams:   standings(cp.Ratings),
	})
}

// standings orders teams by rating, ties by name.
func standings(ratings map[string]float64) []RatingEntry {
	out := make([]RatingEntry, 0, len(ratings))
	for team, rt := range ratings {
		out = append(out, RatingEntry{Team: team, Rating: rt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Team < out[j].Team
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
