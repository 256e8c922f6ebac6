package oddsmath

import (
	"math"
	"testing"
)

func TestRemoveVig(t *testing.T) {
	tests := []struct {
		name       string
		odds1      float64
		odds2      float64
		wantFair1  float64
		shouldFail bool
	}{
		{name: "Symmetric 1.91/1.91", odds1: 1.91, odds2: 1.91, wantFair1: 0.500},
		{name: "Asymmetric 1.83/2.00", odds1: 1.83, odds2: 2.00, wantFair1: 0.522},
		{name: "Heavy favorite 1.50/2.70", odds1: 1.50, odds2: 2.70, wantFair1: 0.643},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p1, err := DecimalToImpliedProbability(tt.odds1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			p2, err := DecimalToImpliedProbability(tt.odds2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			fair1, fair2, err := RemoveVig(p1, p2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := Round3(fair1); got != tt.wantFair1 {
				t.Errorf("fair1 = %v, want %v", got, tt.wantFair1)
			}
			if math.Abs(fair1+fair2-1.0) > 1e-12 {
				t.Errorf("fair probabilities sum to %v", fair1+fair2)
			}
		})
	}

	if _, _, err := RemoveVig(1.5, 0.5); err == nil {
		t.Error("expected error for probability > 1")
	}
	if _, _, err := RemoveVig(0, 0.5); err == nil {
		t.Error("expected error for zero probability")
	}
}

func TestDecimalToImpliedProbability(t *testing.T) {
	p, err := DecimalToImpliedProbability(1.91)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p-0.5236) > 0.0001 {
		t.Errorf("p = %v, want 0.5236", p)
	}
	if _, err := DecimalToImpliedProbability(1.0); err == nil {
		t.Error("expected error for odds <= 1")
	}
}

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		american int
		want     float64
	}{
		{150, 2.50},
		{-150, 1.667},
		{-110, 1.909},
		{100, 2.00},
	}
	for _, tt := range tests {
		got, err := AmericanToDecimal(tt.american)
		if err != nil {
			t.Fatalf("AmericanToDecimal(%d): %v", tt.american, err)
		}
		if Round3(got) != tt.want {
			t.Errorf("AmericanToDecimal(%d) = %v, want %v", tt.american, got, tt.want)
		}
	}
	if _, err := AmericanToDecimal(0); err == nil {
		t.Error("expected error for 0")
	}
}

func TestExpectedValue(t *testing.T) {
	tests := []struct {
		fair float64
		odds float64
		want float64
	}{
		{0.55, 2.00, 0.100},
		{0.50, 2.00, 0.000},
		{0.50, 1.91, -0.045},
		{0.60, 1.87, 0.122},
	}
	for _, tt := range tests {
		if got := Round3(ExpectedValue(tt.fair, tt.odds)); got != tt.want {
			t.Errorf("ExpectedValue(%v, %v) = %v, want %v", tt.fair, tt.odds, got, tt.want)
		}
	}
}

func TestWeightedConsensus(t *testing.T) {
	got, err := WeightedConsensus([]WeightedQuote{
		{Bookmaker: "pinnacle", FairProb: 0.50, Weight: 1.0},
		{Bookmaker: "circa", FairProb: 0.60, Weight: 0.5},
		{Bookmaker: "ignored", FairProb: 0.90, Weight: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Round3(got) != 0.533 {
		t.Errorf("consensus = %v, want 0.533", got)
	}

	if _, err := WeightedConsensus(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.52356, 0.524},
		{0.0005, 0.001},
		{-0.0449, -0.045},
		{0.1, 0.1},
	}
	for _, tt := range tests {
		if got := Round3(tt.in); got != tt.want {
			t.Errorf("Round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
