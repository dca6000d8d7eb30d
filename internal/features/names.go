package features

// Feature names, matching the columns the logistic model was trained on.
const (
	FeatHomeElo = "home_elo"
	FeatAwayElo = "away_elo"
	FeatEloDiff = "elo_diff"
	FeatIsHome  = "is_home"

	FeatHomeWinRate   = "home_win_rate_L10"
	FeatAwayWinRate   = "away_win_rate_L10"
	FeatHomePointDiff = "home_pt_diff_L10"
	FeatAwayPointDiff = "away_pt_diff_L10"
	FeatHomeRestDays  = "home_rest_days"
	FeatAwayRestDays  = "away_rest_days"
	FeatHomeB2B       = "home_b2b"
	FeatAwayB2B       = "away_b2b"
	FeatH2HHomeWins   = "h2h_home_wins"
	FeatHomeStreak    = "home_streak"
	FeatAwayStreak    = "away_streak"

	FeatHomeLineupOverlap = "home_lineup_cont_overlap"
	FeatAwayLineupOverlap = "away_lineup_cont_overlap"
	FeatHomeKeyOut        = "home_key_out_count"
	FeatAwayKeyOut        = "away_key_out_count"

	FeatHomeInjured        = "home_injured_count"
	FeatAwayInjured        = "away_injured_count"
	FeatHomeInjuredMinutes = "home_injured_minutes_lost"
	FeatAwayInjuredMinutes = "away_injured_minutes_lost"

	FeatHomePER  = "home_weighted_PER"
	FeatAwayPER  = "away_weighted_PER"
	FeatHomeBPM  = "home_weighted_BPM"
	FeatAwayBPM  = "away_weighted_BPM"
	FeatHomeWS48 = "home_weighted_WS48"
	FeatAwayWS48 = "away_weighted_WS48"
	FeatPERDiff  = "per_diff"
	FeatBPMDiff  = "bpm_diff"
	FeatWS48Diff = "ws48_diff"

	FeatHomeNetRating = "home_net_rating"
	FeatAwayNetRating = "away_net_rating"
	FeatNetRatingDiff = "net_rating_diff"
	FeatHomePace      = "home_pace"
	FeatAwayPace      = "away_pace"
	FeatPaceDiff      = "pace_diff"
	FeatHomeOff3PA    = "home_off_3pa_rate"
	FeatAwayOff3PA    = "away_off_3pa_rate"
	FeatOff3PADiff    = "off_3pa_rate_diff"
	FeatHomeDefOpp3PA = "home_def_opp_3pa_rate"
	FeatAwayDefOpp3PA = "away_def_opp_3pa_rate"
	FeatDefOpp3PADiff = "def_opp_3pa_rate_diff"

	FeatImpliedHomeProb = "implied_home_prob"
	FeatSpreadHome      = "spread_home"
	FeatTotal           = "total"
)
