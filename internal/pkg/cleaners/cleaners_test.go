package cleaners

import "testing"

func TestSubject(t *testing.T) {
	tests := []struct {
		name     string
		league   string
		expected string
	}{
		{"Cameron Thomas", "NBA", "Cam Thomas"},
		{"  cameron   THOMAS ", "nba", "Cam Thomas"},
		{"Cameron Thomas", "NFL", "Cameron Thomas"},
		{"José Ramírez", "MLB", "Jose Ramirez"},
		{"Jaren Jackson Jr.", "NBA", "Jaren Jackson"},
		{"Jaren Jackson, Jr.", "NBA", "Jaren Jackson"},
		{"Ken Griffey III", "MLB", "Ken Griffey"},
		{"D'Angelo Russell", "NBA", "Dangelo Russell"},
		{"LEBRON JAMES 23", "NBA", "Lebron James"},
		{"Shai Gilgeous-Alexander", "NBA", "Shai Gilgeous Alexander"},
		{"Nikola Jokić", "NBA", "Nikola Jokic"},
		{"Tim Stützle", "NHL", "Tim Stuetzle"},
		{"tim stutzle", "nhl", "Tim Stuetzle"},
		{"Tim Stützle", "NBA", "Tim Stutzle"},
		{"Jr", "NBA", "Jr"},
		{"", "NBA", ""},
	}

	for _, tt := range tests {
		result := Subject(tt.name, tt.league)
		if result != tt.expected {
			t.Errorf("Subject(%q, %q) = %q, want %q", tt.name, tt.league, result, tt.expected)
		}
	}
}

func TestSubject_VendorSpellingsConverge(t *testing.T) {
	spellings := []string{"Luka Dončić", "luka doncic", "LUKA  DONCIC", "Luka Doncic."}
	want := Subject(spellings[0], "NBA")
	for _, s := range spellings[1:] {
		if got := Subject(s, "NBA"); got != want {
			t.Errorf("Subject(%q) = %q, want %q", s, got, want)
		}
	}
}

func TestTeam(t *testing.T) {
	tests := []struct {
		abbr     string
		league   string
		expected string
	}{
		{"PHO", "NBA", "PHX"},
		{"ZZZ", "NBA", "ZZZ"},
		{"pho", "nba", "PHX"},
		{"PHO", "WNBA", "PHX"},
		{"PHO", "NFL", "PHO"},
		{"JAC", "NFL", "JAX"},
		{" gs ", "NBA", "GSW"},
		{"BOS", "UNKNOWN", "BOS"},
	}

	for _, tt := range tests {
		result := Team(tt.abbr, tt.league)
		if result != tt.expected {
			t.Errorf("Team(%q, %q) = %q, want %q", tt.abbr, tt.league, result, tt.expected)
		}
	}
}

func TestLeague(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"nba", "NBA"},
		{"CFB 1H", "CFB"},
		{"cfb1q", "CFB"},
		{"NCAAF", "CFB"},
		{"NFL  2H", "NFL"},
		{"kbo", "KBO"},
	}

	for _, tt := range tests {
		result := League(tt.input)
		if result != tt.expected {
			t.Errorf("League(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Forward", "F"},
		{"point guard", "PG"},
		{"G", "G"},
		{"wr", "WR"},
		{"Goaltender", "G"},
	}

	for _, tt := range tests {
		result := Position(tt.input)
		if result != tt.expected {
			t.Errorf("Position(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"over", "Over"},
		{"O", "Over"},
		{"Less", "Under"},
		{"ML", "Moneyline"},
		{"yes", "Yes"},
		{"run line", "Spread"},
		{"draw", "Draw"},
	}

	for _, tt := range tests {
		result := Label(tt.input)
		if result != tt.expected {
			t.Errorf("Label(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestMarket(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"PTS", "Points"},
		{"player points", "Points"},
		{"pts+rebs+asts", "Pts+Rebs+Asts"},
		{"fantasy score", "Fantasy Score"},
	}

	for _, tt := range tests {
		result := Market(tt.input)
		if result != tt.expected {
			t.Errorf("Market(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
