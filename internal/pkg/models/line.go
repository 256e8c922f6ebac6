package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical labels
const (
	LabelOver      = "Over"
	LabelUnder     = "Under"
	LabelYes       = "Yes"
	LabelNo        = "No"
	LabelMoneyline = "Moneyline"
	LabelSpread    = "Spread"
)

// RawLine is one vendor quote after the adapter has validated its shape.
// Names are still in the vendor's vocabulary; pointer fields are optional.
type RawLine struct {
	Sport    string
	League   string
	Market   string
	Subject  string
	Team     string // subject's team abbreviation as spelled by the vendor
	Position string
	Label    string
	Line     string // numeric or numeric-string value

	Odds    *float64 // decimal odds
	ImPrb   *float64 // implied probability, used when odds are absent
	Mult    *float64 // payout multiplier over the bookmaker default odds
	Boosted bool
}

// RawBatch is everything one source produced in one fetch.
type RawBatch struct {
	Lines        []RawLine
	DefaultOdds  *float64
	DefaultImPrb *float64
}

// LineEvent is the normalized, fully-resolved quote ingested by the store.
type LineEvent struct {
	BatchID   string    `json:"batch_id"`
	Bookmaker string    `json:"bookmaker"`
	Sport     string    `json:"sport"`
	League    string    `json:"league"`
	GameTime  time.Time `json:"game_time"`
	Game      string    `json:"game"`
	MarketID  int64     `json:"market_id"`
	Market    string    `json:"market"`
	SubjectID int64     `json:"subject_id"`
	Subject   string    `json:"subject"`
	Label     string    `json:"label"`
	Line      float64   `json:"line"`

	Odds         *float64 `json:"odds,omitempty"`
	ImPrb        *float64 `json:"im_prb,omitempty"`
	Mult         *float64 `json:"mult,omitempty"`
	Boosted      bool     `json:"is_boosted,omitempty"`
	DefaultOdds  *float64 `json:"dflt_odds,omitempty"`
	DefaultImPrb *float64 `json:"dflt_im_prb,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
}

// Key returns the dedup identity of the event.
func (e *LineEvent) Key() LineKey {
	return LineKey{League: e.League, MarketID: e.MarketID, SubjectID: e.SubjectID}
}

// ParseLine parses a line value given as a number string ("25.5", "+3.5", " -7 ").
func ParseLine(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty line value")
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid line value %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 {
	return &v
}
