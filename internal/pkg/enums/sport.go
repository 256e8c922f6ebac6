package enums

import "strings"

// Sport is the partition of markets and positions in the registry.
type Sport string

const (
	Basketball Sport = "basketball"
	Football   Sport = "football"
	Baseball   Sport = "baseball"
	Hockey     Sport = "hockey"
	Soccer     Sport = "soccer"
	Tennis     Sport = "tennis"
	Golf       Sport = "golf"
	MMA        Sport = "mma"
	// Esports props are quoted per map or series
	LOL      Sport = "lol"
	CS       Sport = "cs"
	Dota2    Sport = "dota2"
	Valorant Sport = "valorant"
)

// leagueSports maps canonical league names to their sport.
var leagueSports = map[string]Sport{
	"NBA":   Basketball,
	"WNBA":  Basketball,
	"NCAAB": Basketball,
	"NFL":   Football,
	"NCAAF": Football,
	"CFL":   Football,
	"MLB":   Baseball,
	"NHL":   Hockey,
	"MLS":   Soccer,
	"EPL":   Soccer,
	"UCL":   Soccer,
	"ATP":   Tennis,
	"WTA":   Tennis,
	"PGA":   Golf,
	"UFC":   MMA,
	"LOL":   LOL,
	"CS2":   CS,
	"DOTA2": Dota2,
	"VAL":   Valorant,
}

// SportInfo contains additional information about a sport
type SportInfo struct {
	Name  string
	Alias string
}

// GetSportInfo returns sport information
func (s Sport) GetSportInfo() SportInfo {
	switch s {
	case Basketball:
		return SportInfo{Name: "Basketball", Alias: "basketball"}
	case Football:
		return SportInfo{Name: "American Football", Alias: "football"}
	case Baseball:
		return SportInfo{Name: "Baseball", Alias: "baseball"}
	case Hockey:
		return SportInfo{Name: "Ice Hockey", Alias: "hockey"}
	case Soccer:
		return SportInfo{Name: "Soccer", Alias: "soccer"}
	case Tennis:
		return SportInfo{Name: "Tennis", Alias: "tennis"}
	case Golf:
		return SportInfo{Name: "Golf", Alias: "golf"}
	case MMA:
		return SportInfo{Name: "Mixed Martial Arts", Alias: "mma"}
	case LOL:
		return SportInfo{Name: "League of Legends", Alias: "lol"}
	case CS:
		return SportInfo{Name: "Counter-Strike", Alias: "cs"}
	case Dota2:
		return SportInfo{Name: "Dota 2", Alias: "dota2"}
	case Valorant:
		return SportInfo{Name: "Valorant", Alias: "valorant"}
	default:
		return SportInfo{Name: "Unknown", Alias: "unknown"}
	}
}

// IsValid checks if sport is supported
func (s Sport) IsValid() bool {
	return s.GetSportInfo().Alias != "unknown"
}

// String returns string representation
func (s Sport) String() string {
	return string(s)
}

// ParseSport parses string to Sport enum
func ParseSport(s string) (Sport, bool) {
	sport := Sport(strings.ToLower(strings.TrimSpace(s)))
	return sport, sport.IsValid()
}

// SportForLeague returns the sport of a canonical league name.
func SportForLeague(league string) (Sport, bool) {
	s, ok := leagueSports[strings.ToUpper(strings.TrimSpace(league))]
	return s, ok
}

// ResolveSport returns the sport a vendor reported, falling back to the
// league's sport when the vendor omitted it. Unknown values pass through
// lowercased so the registry can still partition on them.
func ResolveSport(reported, league string) string {
	if s := strings.ToLower(strings.TrimSpace(reported)); s != "" {
		return s
	}
	if s, ok := SportForLeague(league); ok {
		return s.String()
	}
	return ""
}
