package cleaners

// Static alias tables. Keys are upper-cased vendor spellings unless noted.

// subjectExceptions holds hand-curated corrections per league, applied before
// generic normalization. Keys are the vendor spelling after whitespace
// collapsing, compared case-insensitively.
var subjectExceptions = map[string]map[string]string{
	"NBA": {
		"CAMERON THOMAS":   "Cam Thomas",
		"NICOLAS CLAXTON":  "Nic Claxton",
		"HERBERT JONES":    "Herb Jones",
		"MOE WAGNER":       "Moritz Wagner",
		"KENYON MARTIN JR": "Kj Martin",
		"KJ MARTIN":        "Kj Martin",
		"O.G. ANUNOBY":     "Og Anunoby",
		"P.J. WASHINGTON":  "Pj Washington",
	},
	"NFL": {
		"GABE DAVIS":      "Gabriel Davis",
		"HOLLYWOOD BROWN": "Marquise Brown",
		"ROBBY ANDERSON":  "Robbie Chosen",
		"ROBBIE ANDERSON": "Robbie Chosen",
	},
	"MLB": {
		"MIKE SIANI":        "Michael Siani",
		"ENRIQUE HERNANDEZ": "Kike Hernandez",
	},
	"NHL": {
		"ALEX KERFOOT": "Alexander Kerfoot",
		"MITCH MARNER": "Mitchell Marner",
		"TIM STUTZLE":  "Tim Stuetzle",
	},
}

// nameSuffixes are dropped from subject names when they appear as the last
// word. Compared upper-cased with punctuation removed.
var nameSuffixes = map[string]bool{
	"JR":  true,
	"SR":  true,
	"II":  true,
	"III": true,
	"IV":  true,
}

// teamAliases maps a vendor team abbreviation to the canonical one, per league.
var teamAliases = map[string]map[string]string{
	"NBA": {
		"PHO":  "PHX",
		"GS":   "GSW",
		"GOS":  "GSW",
		"NY":   "NYK",
		"NO":   "NOP",
		"NOR":  "NOP",
		"SA":   "SAS",
		"SAN":  "SAS",
		"BRK":  "BKN",
		"BK":   "BKN",
		"UTAH": "UTA",
		"UTH":  "UTA",
		"WSH":  "WAS",
		"CHO":  "CHA",
	},
	"NFL": {
		"JAC": "JAX",
		"LA":  "LAR",
		"WSH": "WAS",
		"KAN": "KC",
		"GNB": "GB",
		"NWE": "NE",
		"NOR": "NO",
		"SFO": "SF",
		"TAM": "TB",
		"LVR": "LV",
		"OAK": "LV",
	},
	"MLB": {
		"CHW": "CWS",
		"KCR": "KC",
		"SDP": "SD",
		"SFG": "SF",
		"TBR": "TB",
		"WSN": "WSH",
		"WAS": "WSH",
		"AZ":  "ARI",
		"ATH": "OAK",
	},
	"NHL": {
		"LA":   "LAK",
		"NJ":   "NJD",
		"SJ":   "SJS",
		"TB":   "TBL",
		"MON":  "MTL",
		"WAS":  "WSH",
		"VEG":  "VGK",
		"CLB":  "CBJ",
		"UTAH": "UTA",
	},
	"WNBA": {
		"LV":  "LVA",
		"NY":  "NYL",
		"CON": "CONN",
		"PHO": "PHX",
		"WSH": "WAS",
	},
}

// leagueAliases maps vendor league spellings, including segment-suffixed
// sub-leagues, to the canonical league.
var leagueAliases = map[string]string{
	"NCAAF":            "CFB",
	"COLLEGE FOOTBALL": "CFB",
	"CFB1Q":            "CFB",
	"CFB1H":            "CFB",
	"CFB2H":            "CFB",
	"CFB 1Q":           "CFB",
	"CFB 1H":           "CFB",
	"CFB 2H":           "CFB",
	"NCAAB":            "CBB",
	"NCAAM":            "CBB",
	"CBB1H":            "CBB",
	"NFL1Q":            "NFL",
	"NFL1H":            "NFL",
	"NFL2H":            "NFL",
	"NFL 1Q":           "NFL",
	"NFL 1H":           "NFL",
	"NFL 2H":           "NFL",
	"NBA1Q":            "NBA",
	"NBA1H":            "NBA",
	"NBA2H":            "NBA",
	"NBA 1Q":           "NBA",
	"NBA 1H":           "NBA",
	"NBA 2H":           "NBA",
	"NBAP":             "NBA",
	"NHL1P":            "NHL",
	"MLBLIVE":          "MLB",
	"WNBA1H":           "WNBA",
	"HRDERBY":          "MLB",
}

// positionAliases maps position synonyms to canonical abbreviations.
var positionAliases = map[string]string{
	"FORWARD":           "F",
	"GUARD":             "G",
	"CENTER":            "C",
	"CENTRE":            "C",
	"POINT GUARD":       "PG",
	"SHOOTING GUARD":    "SG",
	"SMALL FORWARD":     "SF",
	"POWER FORWARD":     "PF",
	"G-F":               "G",
	"F-G":               "F",
	"F-C":               "F",
	"C-F":               "C",
	"QUARTERBACK":       "QB",
	"RUNNING BACK":      "RB",
	"HALFBACK":          "RB",
	"FULLBACK":          "FB",
	"WIDE RECEIVER":     "WR",
	"TIGHT END":         "TE",
	"KICKER":            "K",
	"PITCHER":           "P",
	"STARTING PITCHER":  "SP",
	"RELIEF PITCHER":    "RP",
	"CATCHER":           "C",
	"DESIGNATED HITTER": "DH",
	"OUTFIELD":          "OF",
	"OUTFIELDER":        "OF",
	"INFIELD":           "IF",
	"GOALIE":            "G",
	"GOALTENDER":        "G",
	"DEFENSE":           "D",
	"DEFENSEMAN":        "D",
	"LEFT WING":         "LW",
	"RIGHT WING":        "RW",
}

// labelAliases maps vendor side labels to canonical labels. Keys are
// upper-cased.
var labelAliases = map[string]string{
	"OVER":       "Over",
	"O":          "Over",
	"MORE":       "Over",
	"HIGHER":     "Over",
	"UNDER":      "Under",
	"U":          "Under",
	"LESS":       "Under",
	"LOWER":      "Under",
	"YES":        "Yes",
	"Y":          "Yes",
	"NO":         "No",
	"N":          "No",
	"ML":         "Moneyline",
	"MONEYLINE":  "Moneyline",
	"MONEY LINE": "Moneyline",
	"SPREAD":     "Spread",
	"HANDICAP":   "Spread",
	"RUN LINE":   "Spread",
	"PUCK LINE":  "Spread",
}

// marketAliases maps vendor market names to canonical market names. Keys are
// upper-cased with whitespace collapsed.
var marketAliases = map[string]string{
	"PTS":                         "Points",
	"POINTS":                      "Points",
	"PLAYER POINTS":               "Points",
	"REB":                         "Rebounds",
	"REBS":                        "Rebounds",
	"REBOUNDS":                    "Rebounds",
	"AST":                         "Assists",
	"ASTS":                        "Assists",
	"ASSISTS":                     "Assists",
	"PRA":                         "Pts+Rebs+Asts",
	"PTS+REB+AST":                 "Pts+Rebs+Asts",
	"PTS+REBS+ASTS":               "Pts+Rebs+Asts",
	"POINTS + REBOUNDS + ASSISTS": "Pts+Rebs+Asts",
	"PR":                          "Pts+Rebs",
	"PTS+REBS":                    "Pts+Rebs",
	"PA":                          "Pts+Asts",
	"PTS+ASTS":                    "Pts+Asts",
	"RA":                          "Rebs+Asts",
	"REBS+ASTS":                   "Rebs+Asts",
	"3PM":                         "3-PT Made",
	"3-PT MADE":                   "3-PT Made",
	"THREES":                      "3-PT Made",
	"THREE POINTERS MADE":         "3-PT Made",
	"BLK":                         "Blocks",
	"BLOCKS":                      "Blocks",
	"STL":                         "Steals",
	"STEALS":                      "Steals",
	"TO":                          "Turnovers",
	"TURNOVERS":                   "Turnovers",
	"PASS YDS":                    "Pass Yards",
	"PASSING YARDS":               "Pass Yards",
	"PASS YARDS":                  "Pass Yards",
	"RUSH YDS":                    "Rush Yards",
	"RUSHING YARDS":               "Rush Yards",
	"RUSH YARDS":                  "Rush Yards",
	"REC YDS":                     "Receiving Yards",
	"RECEIVING YARDS":             "Receiving Yards",
	"RECEPTIONS":                  "Receptions",
	"RECS":                        "Receptions",
	"PASS TDS":                    "Pass TDs",
	"PASSING TOUCHDOWNS":          "Pass TDs",
	"STRIKEOUTS":                  "Strikeouts",
	"PITCHER STRIKEOUTS":          "Strikeouts",
	"KS":                          "Strikeouts",
	"TOTAL BASES":                 "Total Bases",
	"TB":                          "Total Bases",
	"HITS":                        "Hits",
	"SHOTS ON GOAL":               "Shots On Goal",
	"SOG":                         "Shots On Goal",
	"SAVES":                       "Goalie Saves",
	"GOALIE SAVES":                "Goalie Saves",
	"MONEYLINE":                   "Moneyline",
	"ML":                          "Moneyline",
	"SPREAD":                      "Spread",
	"TOTAL":                       "Total",
	"GAME TOTAL":                  "Total",
}
