package datasource

import (
	"strings"
)

// TeamNormalizer maps provider-specific team names to one canonical name so
// games, quotes and side tables join on the same key.
type TeamNormalizer struct {
	teamNameMap map[string]string // upper-cased alias -> canonical name
}

// NewTeamNormalizer creates a normalizer seeded with NBA names, nicknames and
// abbreviations. extra aliases override the built-in ones.
func NewTeamNormalizer(extra map[string]string) *TeamNormalizer {
	m := buildTeamNameMap()
	for alias, canonical := range extra {
		m[normalizeKey(alias)] = canonical
	}
	return &TeamNormalizer{teamNameMap: m}
}

// Canonical returns the canonical team name. Unknown names are returned with
// whitespace collapsed so they still join consistently.
func (n *TeamNormalizer) Canonical(name string) string {
	key := normalizeKey(name)
	if key == "" {
		return ""
	}
	if canonical, ok := n.teamNameMap[key]; ok {
		return canonical
	}
	return strings.Join(strings.Fields(name), " ")
}

var defaultNormalizer = NewTeamNormalizer(nil)

// CanonicalTeam normalizes name with the built-in aliases.
func CanonicalTeam(name string) string {
	return defaultNormalizer.Canonical(name)
}

func normalizeKey(name string) string {
	name = strings.ReplaceAll(name, ".", "")
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// buildTeamNameMap maps every known alias to the full franchise name used by
// the odds provider.
func buildTeamNameMap() map[string]string {
	teams := map[string][]string{
		"Atlanta Hawks":          {"ATL", "Hawks"},
		"Boston Celtics":         {"BOS", "Celtics"},
		"Brooklyn Nets":          {"BKN", "BRK", "Nets"},
		"Charlotte Hornets":      {"CHA", "CHO", "Hornets"},
		"Chicago Bulls":          {"CHI", "Bulls"},
		"Cleveland Cavaliers":    {"CLE", "Cavaliers", "Cavs"},
		"Dallas Mavericks":       {"DAL", "Mavericks", "Mavs"},
		"Denver Nuggets":         {"DEN", "Nuggets"},
		"Detroit Pistons":        {"DET", "Pistons"},
		"Golden State Warriors":  {"GSW", "GS", "Warriors"},
		"Houston Rockets":        {"HOU", "Rockets"},
		"Indiana Pacers":         {"IND", "Pacers"},
		"Los Angeles Clippers":   {"LAC", "LA Clippers", "Clippers"},
		"Los Angeles Lakers":     {"LAL", "LA Lakers", "Lakers"},
		"Memphis Grizzlies":      {"MEM", "Grizzlies"},
		"Miami Heat":             {"MIA", "Heat"},
		"Milwaukee Bucks":        {"MIL", "Bucks"},
		"Minnesota Timberwolves": {"MIN", "Timberwolves", "Wolves"},
		"New Orleans Pelicans":   {"NOP", "NO", "Pelicans"},
		"New York Knicks":        {"NYK", "NY", "Knicks"},
		"Oklahoma City Thunder":  {"OKC", "Thunder"},
		"Orlando Magic":          {"ORL", "Magic"},
		"Philadelphia 76ers":     {"PHI", "76ers", "Sixers", "Philadelphia Sixers"},
		"Phoenix Suns":           {"PHX", "PHO", "Suns"},
		"Portland Trail Blazers": {"POR", "Trail Blazers", "Blazers", "Portland Trailblazers"},
		"Sacramento Kings":       {"SAC", "Kings"},
		"San Antonio Spurs":      {"SAS", "SA", "Spurs"},
		"Toronto Raptors":        {"TOR", "Raptors"},
		"Utah Jazz":              {"UTA", "UTAH", "Jazz"},
		"Washington Wizards":     {"WAS", "WSH", "Wizards"},
	}

	m := make(map[string]string, len(teams)*4)
	for canonical, aliases := range teams {
		m[normalizeKey(canonical)] = canonical
		for _, alias := range aliases {
			m[normalizeKey(alias)] = canonical
		}
	}
	return m
}
