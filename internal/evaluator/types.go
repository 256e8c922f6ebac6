package evaluator

import "time"

// EvaluatedLine is one non-sharp quote priced against the sharp consensus.
// FairProb, FairOdds and EV are nil when no consensus exists for the quote's group.
type EvaluatedLine struct {
	Game      string    `json:"game"`
	GameTime  time.Time `json:"game_time"`
	League    string    `json:"league"`
	Market    string    `json:"market"`
	Subject   string    `json:"subject"`
	Bookmaker string    `json:"bookmaker"`
	Label     string    `json:"label"`
	Line      float64   `json:"line"`
	Odds      float64   `json:"odds"`
	FairProb  *float64  `json:"fair_prob,omitempty"`
	FairOdds  *float64  `json:"fair_odds,omitempty"` // decimal odds of FairProb
	EV        *float64  `json:"ev,omitempty"`
	Boosted   bool      `json:"is_boosted,omitempty"`

	ev float64 // unrounded, for ranking
}

// Evaluation is the result of one batch pass.
type Evaluation struct {
	At       time.Time       `json:"at"`
	Duration time.Duration   `json:"duration"`
	Lines    []EvaluatedLine `json:"lines"`
	// Priced counts lines that received an EV.
	Priced int `json:"priced"`
	// Groups counts consensus groups built from sharp quotes.
	Groups int `json:"groups"`
	// SkippedSharp counts sharp quotes with zero or several complements.
	SkippedSharp int `json:"skipped_sharp"`
}
