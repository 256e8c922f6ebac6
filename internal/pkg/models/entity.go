package models

import "time"

// Domain is an entity table of the registry.
type Domain string

const (
	DomainTeam     Domain = "team"
	DomainSubject  Domain = "subject"
	DomainMarket   Domain = "market"
	DomainPosition Domain = "position"
)

// Domains lists every registry domain in reporting order.
var Domains = []Domain{DomainTeam, DomainSubject, DomainMarket, DomainPosition}

// Entity is a canonical team, subject (player), market or position.
// Values are never mutated in place: an attribute update replaces the
// pointer held by the registry, so a reader never sees a partial entry.
type Entity struct {
	ID     int64  `json:"id" yaml:"id"`
	Domain Domain `json:"domain" yaml:"domain"`
	// Partition is the league for teams and subjects, the sport for markets
	// and positions.
	Partition string `json:"partition" yaml:"partition"`
	Name      string `json:"name" yaml:"name"`

	Team     string `json:"team,omitempty" yaml:"team,omitempty"`         // subject: canonical team abbreviation
	Position string `json:"position,omitempty" yaml:"position,omitempty"` // subject: canonical position
	FullName string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
}

// IdentityKey is the registry lookup key: within a domain partition the
// attribute plus name maps to exactly one canonical id.
type IdentityKey struct {
	Domain    Domain
	Partition string
	Attr      string
	Name      string
}

// UnidentifiedEntry is a vendor value that failed resolution, awaiting
// manual curation.
type UnidentifiedEntry struct {
	Domain    Domain    `json:"domain"`
	Source    string    `json:"source"`
	League    string    `json:"league"`
	Raw       string    `json:"raw"`
	FirstSeen time.Time `json:"first_seen"`
}

// UnidentifiedKey collapses duplicate misses.
type UnidentifiedKey struct {
	Domain Domain
	Source string
	League string
	Raw    string
}

func (e UnidentifiedEntry) Key() UnidentifiedKey {
	return UnidentifiedKey{Domain: e.Domain, Source: e.Source, League: e.League, Raw: e.Raw}
}
