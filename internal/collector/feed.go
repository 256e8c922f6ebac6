package collector

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/oddsmath"
)

// FeedDocument is the JSON line feed shared by the bundled adapters.
type FeedDocument struct {
	Lines        []FeedLine `json:"lines"`
	DefaultOdds  *float64   `json:"default_odds,omitempty"`
	DefaultImPrb *float64   `json:"default_im_prb,omitempty"`
}

// FeedLine is one quote of a FeedDocument. Line may be a number or a
// numeric string.
type FeedLine struct {
	Sport        string          `json:"sport,omitempty"`
	League       string          `json:"league,omitempty"`
	Market       string          `json:"market"`
	Subject      string          `json:"subject"`
	Team         string          `json:"team,omitempty"`
	Position     string          `json:"position,omitempty"`
	Label        string          `json:"label"`
	Line         json.RawMessage `json:"line,omitempty"`
	Odds         *float64        `json:"odds,omitempty"`
	AmericanOdds *int            `json:"american_odds,omitempty"`
	ImPrb        *float64        `json:"im_prb,omitempty"`
	Mult         *float64        `json:"mult,omitempty"`
	Boosted      bool            `json:"is_boosted,omitempty"`
}

// FeedDefaults fills fields a feed line omits.
type FeedDefaults struct {
	Sport  string
	League string
}

// DecodeFeed validates a FeedDocument payload. A payload that is not a
// document fails as a whole; individual lines missing a subject, market or
// label are skipped.
func DecodeFeed(payload []byte, defaults FeedDefaults) (*models.RawBatch, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, Malformed("expected a JSON object")
	}
	var doc struct {
		Lines        *[]FeedLine `json:"lines"`
		DefaultOdds  *float64    `json:"default_odds"`
		DefaultImPrb *float64    `json:"default_im_prb"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, Malformed("decode feed: %v", err)
	}
	if doc.Lines == nil {
		return nil, Malformed("missing lines")
	}

	batch := &models.RawBatch{
		Lines:        make([]models.RawLine, 0, len(*doc.Lines)),
		DefaultOdds:  doc.DefaultOdds,
		DefaultImPrb: doc.DefaultImPrb,
	}
	skipped := 0
	for _, fl := range *doc.Lines {
		raw, ok := fl.raw(defaults)
		if !ok {
			skipped++
			continue
		}
		batch.Lines = append(batch.Lines, raw)
	}
	if skipped > 0 {
		slog.Debug("Skipped incomplete feed lines", "skipped", skipped)
	}
	return batch, nil
}

func (fl FeedLine) raw(defaults FeedDefaults) (models.RawLine, bool) {
	if strings.TrimSpace(fl.Subject) == "" || strings.TrimSpace(fl.Market) == "" || strings.TrimSpace(fl.Label) == "" {
		return models.RawLine{}, false
	}
	line, ok := lineValue(fl.Line)
	if !ok {
		return models.RawLine{}, false
	}
	raw := models.RawLine{
		Sport:    firstNonEmpty(fl.Sport, defaults.Sport),
		League:   firstNonEmpty(fl.League, defaults.League),
		Market:   fl.Market,
		Subject:  fl.Subject,
		Team:     fl.Team,
		Position: fl.Position,
		Label:    fl.Label,
		Line:     line,
		Odds:     fl.Odds,
		ImPrb:    fl.ImPrb,
		Mult:     fl.Mult,
		Boosted:  fl.Boosted,
	}
	if raw.Odds == nil && fl.AmericanOdds != nil {
		if d, err := oddsmath.AmericanToDecimal(*fl.AmericanOdds); err == nil {
			raw.Odds = &d
		}
	}
	return raw, true
}

func lineValue(msg json.RawMessage) (string, bool) {
	if len(msg) == 0 || string(msg) == "null" {
		return "", true
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s, true
	}
	var f float64
	if err := json.Unmarshal(msg, &f); err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
