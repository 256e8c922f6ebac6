// Package oddsmath holds odds conversions, vig removal and EV math. Nothing
// here rounds; use Round3 at output boundaries only.
package oddsmath

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DecimalToImpliedProbability converts decimal odds to implied probability
// Decimal 2.00 → 0.50
// Decimal 1.91 → 0.5236
func DecimalToImpliedProbability(odds float64) (float64, error) {
	if odds <= 1 {
		return 0, fmt.Errorf("invalid decimal odds %v: must be > 1", odds)
	}
	return 1.0 / odds, nil
}

// ProbabilityToDecimal converts a probability to decimal odds
// 0.50 → 2.00
func ProbabilityToDecimal(probability float64) (float64, error) {
	if probability <= 0 || probability >= 1 {
		return 0, fmt.Errorf("invalid probability %v: must be between 0 and 1", probability)
	}
	return 1.0 / probability, nil
}

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -110 → Decimal 1.909
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > 0 {
		return float64(american)/100.0 + 1.0, nil
	}
	return 100.0/float64(-american) + 1.0, nil
}

// RemoveVig normalizes a two-way market so both sides sum to 1:
// fair = p / (p + pc).
//
// Example:
// Over 1.91 (0.5236) | Under 1.91 (0.5236)
// Fair: 0.500 / 0.500
func RemoveVig(p, pc float64) (fair, fairComplement float64, err error) {
	if p <= 0 || p >= 1 || pc <= 0 || pc >= 1 {
		return 0, 0, fmt.Errorf("probabilities must be between 0 and 1")
	}
	total := p + pc
	return p / total, pc / total, nil
}

// WeightedQuote is one bookmaker's fair probability and its reliability.
type WeightedQuote struct {
	Bookmaker string
	FairProb  float64
	Weight    float64
}

// WeightedConsensus returns Σ(w·p) / Σ(w). Non-positive weights are ignored.
func WeightedConsensus(quotes []WeightedQuote) (float64, error) {
	var sum, weights float64
	for _, q := range quotes {
		if q.Weight <= 0 {
			continue
		}
		sum += q.Weight * q.FairProb
		weights += q.Weight
	}
	if weights == 0 {
		return 0, fmt.Errorf("no weighted quotes")
	}
	return sum / weights, nil
}

// ExpectedValue returns the per-unit EV of a bet at decimal odds given the
// fair win probability: p·(odds−1) − (1−p).
func ExpectedValue(fairProb, odds float64) float64 {
	return fairProb*(odds-1) - (1 - fairProb)
}

// Round3 rounds half away from zero to three decimals.
func Round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
