package models

import (
	"fmt"
	"time"
)

// GameContext is the shared game both participating teams point at.
type GameContext struct {
	League      string    `json:"league"`
	Info        string    `json:"info"` // "AWY @ HOM"
	AwayID      int64     `json:"away_id"`
	HomeID      int64     `json:"home_id"`
	Away        string    `json:"away"`
	Home        string    `json:"home"`
	StartTime   time.Time `json:"start_time"`
	BoxScoreURL string    `json:"box_score_url,omitempty"`
}

// GameUpdate is an upcoming or active game with both teams resolved.
type GameUpdate struct {
	League      string
	Away        Entity
	Home        Entity
	StartTime   time.Time
	BoxScoreURL string
}

// GameInfo formats the "away @ home" pairing.
func GameInfo(away, home string) string {
	return fmt.Sprintf("%s @ %s", away, home)
}
