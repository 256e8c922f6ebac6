package models

import "time"

// LineKey is the unit of dedup: all bookmakers' quotes for the same logical
// prop live under one key.
type LineKey struct {
	League    string `json:"league"`
	MarketID  int64  `json:"market_id"`
	SubjectID int64  `json:"subject_id"`
}

// Entry is one recorded value of a (bookmaker, label) history. Zero Odds,
// ImPrb or Mult means the bookmaker did not quote that field.
type Entry struct {
	Timestamp time.Time `json:"timestamp"` // first observed
	LastSeen  time.Time `json:"last_seen"`
	Line      float64   `json:"line"`
	Odds      float64   `json:"odds,omitempty"`
	ImPrb     float64   `json:"im_prb,omitempty"`
	Mult      float64   `json:"mult,omitempty"`
	Boosted   bool      `json:"is_boosted,omitempty"`
}

// SameValue compares the fields that define a line movement.
func (e Entry) SameValue(o Entry) bool {
	return e.Line == o.Line && e.Odds == o.Odds && e.ImPrb == o.ImPrb &&
		e.Mult == o.Mult && e.Boosted == o.Boosted
}

// BookmakerLines holds one bookmaker's label histories plus the default
// odds applied to its lines that carry no odds of their own.
type BookmakerLines struct {
	DefaultOdds  float64            `json:"dflt_odds,omitempty"`
	DefaultImPrb float64            `json:"dflt_im_prb,omitempty"`
	Labels       map[string][]Entry `json:"labels"`
}

// Latest returns the most recent entry of a label history.
func (b *BookmakerLines) Latest(label string) (Entry, bool) {
	h := b.Labels[label]
	if len(h) == 0 {
		return Entry{}, false
	}
	return h[len(h)-1], true
}

// EffectiveOdds resolves the decimal odds of an entry: its own odds, else its
// implied probability, else the bookmaker default times the multiplier.
// Returns 0 when nothing usable is known.
func (b *BookmakerLines) EffectiveOdds(e Entry) float64 {
	if e.Odds > 0 {
		return e.Odds
	}
	if e.ImPrb > 0 {
		return 1 / e.ImPrb
	}
	dflt := b.DefaultOdds
	if dflt <= 0 && b.DefaultImPrb > 0 {
		dflt = 1 / b.DefaultImPrb
	}
	if dflt <= 0 {
		return 0
	}
	mult := e.Mult
	if mult <= 0 {
		mult = 1
	}
	return dflt * mult
}

func (b *BookmakerLines) clone() *BookmakerLines {
	out := &BookmakerLines{
		DefaultOdds:  b.DefaultOdds,
		DefaultImPrb: b.DefaultImPrb,
		Labels:       make(map[string][]Entry, len(b.Labels)),
	}
	for label, h := range b.Labels {
		cp := make([]Entry, len(h))
		copy(cp, h)
		out.Labels[label] = cp
	}
	return out
}

// Aggregate is the versioned history of one line key across bookmakers.
type Aggregate struct {
	Key        LineKey                    `json:"key"`
	BirthTime  time.Time                  `json:"birth_time"`
	Sport      string                     `json:"sport"`
	League     string                     `json:"league"`
	Game       string                     `json:"game"`
	GameTime   time.Time                  `json:"game_time"`
	Market     string                     `json:"market"`
	Subject    string                     `json:"subject"`
	Bookmakers map[string]*BookmakerLines `json:"bookmakers"`
}

// Clone returns a deep copy safe to hand out of the store lock.
func (a *Aggregate) Clone() *Aggregate {
	out := *a
	out.Bookmakers = make(map[string]*BookmakerLines, len(a.Bookmakers))
	for name, b := range a.Bookmakers {
		out.Bookmakers[name] = b.clone()
	}
	return &out
}

// OnlyBookmaker returns a copy restricted to a single bookmaker.
func (a *Aggregate) OnlyBookmaker(name string) *Aggregate {
	out := *a
	out.Bookmakers = map[string]*BookmakerLines{}
	if b, ok := a.Bookmakers[name]; ok {
		out.Bookmakers[name] = b.clone()
	}
	return &out
}
