// Package registry resolves vendor spellings of teams, subjects, markets and
// positions to canonical entities. Misses are collected in an unidentified
// report for manual curation.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/cleaners"
	"github.com/Vodeneev/propline/internal/pkg/models"
)

// ResolveRequest is one vendor value to resolve.
type ResolveRequest struct {
	Source string // bookmaker reporting the value
	League string
	Sport  string // partition of markets and positions
	Raw    string
	// Disambiguators are tried in order for subjects (team, then position).
	// The bare name is tried last and only hits when it is unique in the league.
	Disambiguators []string
}

type changeKey struct {
	domain models.Domain
	id     int64
}

// Registry holds one table per domain.
type Registry struct {
	tables map[models.Domain]*table

	unidMu       sync.Mutex
	unidentified map[models.UnidentifiedKey]models.UnidentifiedEntry
	unidPending  []models.UnidentifiedEntry

	changesMu sync.Mutex
	changes   map[changeKey]models.Entity

	now func() time.Time
}

func New() *Registry {
	r := &Registry{
		tables:       make(map[models.Domain]*table, len(models.Domains)),
		unidentified: make(map[models.UnidentifiedKey]models.UnidentifiedEntry),
		changes:      make(map[changeKey]models.Entity),
		now:          time.Now,
	}
	for _, d := range models.Domains {
		r.tables[d] = newTable(d)
	}
	return r
}

// Resolve returns the canonical entity for a vendor value. A miss is recorded
// in the unidentified report and reported as (nil, false).
func (r *Registry) Resolve(domain models.Domain, req ResolveRequest) (*models.Entity, bool) {
	t, ok := r.tables[domain]
	if !ok {
		return nil, false
	}
	partition := partitionFor(domain, req.League, req.Sport)
	name := cleanName(domain, req.Raw, partition)
	if name != "" {
		key := models.IdentityKey{Domain: domain, Partition: partition, Name: name}
		if domain == models.DomainSubject {
			for _, d := range req.Disambiguators {
				attr := subjectAttr(d, partition)
				if attr == "" {
					continue
				}
				key.Attr = attr
				if e, ok := t.lookup(key); ok {
					return e, true
				}
			}
			key.Attr = ""
		}
		if e, ok := t.lookup(key); ok {
			return e, true
		}
	}

	r.recordMiss(domain, req)
	return nil, false
}

// Get returns an entity by id.
func (r *Registry) Get(domain models.Domain, id int64) (*models.Entity, bool) {
	t, ok := r.tables[domain]
	if !ok {
		return nil, false
	}
	return t.byID(id)
}

// Update inserts an entity or merges newly supplied attributes into the
// existing one. Unknown entities get the next id of their domain.
func (r *Registry) Update(e models.Entity) (*models.Entity, error) {
	t, ok := r.tables[e.Domain]
	if !ok {
		return nil, fmt.Errorf("unknown domain %q", e.Domain)
	}
	normalized, err := normalizeEntity(e)
	if err != nil {
		return nil, err
	}
	stored, changed := t.upsert(normalized)
	if changed {
		r.changesMu.Lock()
		r.changes[changeKey{domain: stored.Domain, id: stored.ID}] = *stored
		r.changesMu.Unlock()
	}
	return stored, nil
}

// Load bulk-installs persisted entities. Loaded entities are not reported by
// Changes.
func (r *Registry) Load(entities []models.Entity) error {
	byDomain := make(map[models.Domain][]models.Entity)
	for _, e := range entities {
		if _, ok := r.tables[e.Domain]; !ok {
			return fmt.Errorf("entity %d: unknown domain %q", e.ID, e.Domain)
		}
		normalized, err := normalizeEntity(e)
		if err != nil {
			return fmt.Errorf("entity %d: %w", e.ID, err)
		}
		byDomain[e.Domain] = append(byDomain[e.Domain], normalized)
	}
	for d, list := range byDomain {
		r.tables[d].load(list)
	}
	return nil
}

// Entities lists a domain ordered by id.
func (r *Registry) Entities(domain models.Domain) []models.Entity {
	t, ok := r.tables[domain]
	if !ok {
		return nil
	}
	snap := t.snap.Load()
	out := make([]models.Entity, 0, len(snap.byID))
	for _, e := range snap.byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of entities per domain.
func (r *Registry) Count() map[models.Domain]int {
	out := make(map[models.Domain]int, len(r.tables))
	for d, t := range r.tables {
		out[d] = len(t.snap.Load().byID)
	}
	return out
}

// Changes drains entities inserted or updated since the previous call.
func (r *Registry) Changes() []models.Entity {
	r.changesMu.Lock()
	pending := r.changes
	r.changes = make(map[changeKey]models.Entity)
	r.changesMu.Unlock()

	out := make([]models.Entity, 0, len(pending))
	for _, e := range pending {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Registry) recordMiss(domain models.Domain, req ResolveRequest) {
	entry := models.UnidentifiedEntry{
		Domain:    domain,
		Source:    strings.ToLower(strings.TrimSpace(req.Source)),
		League:    cleaners.League(req.League),
		Raw:       strings.TrimSpace(req.Raw),
		FirstSeen: r.now(),
	}
	key := entry.Key()

	r.unidMu.Lock()
	defer r.unidMu.Unlock()
	if _, seen := r.unidentified[key]; seen {
		return
	}
	r.unidentified[key] = entry
	r.unidPending = append(r.unidPending, entry)
}

// Unidentified returns the report for one domain.
func (r *Registry) Unidentified(domain models.Domain) []models.UnidentifiedEntry {
	r.unidMu.Lock()
	out := make([]models.UnidentifiedEntry, 0)
	for _, e := range r.unidentified {
		if e.Domain == domain {
			out = append(out, e)
		}
	}
	r.unidMu.Unlock()
	sortUnidentified(out)
	return out
}

// UnidentifiedAll returns the report for every domain.
func (r *Registry) UnidentifiedAll() map[models.Domain][]models.UnidentifiedEntry {
	out := make(map[models.Domain][]models.UnidentifiedEntry, len(models.Domains))
	for _, d := range models.Domains {
		out[d] = r.Unidentified(d)
	}
	return out
}

// DrainUnidentified returns entries recorded since the previous call.
func (r *Registry) DrainUnidentified() []models.UnidentifiedEntry {
	r.unidMu.Lock()
	out := r.unidPending
	r.unidPending = nil
	r.unidMu.Unlock()
	return out
}

// LoadUnidentified installs a persisted report so known misses are not
// reported as new again.
func (r *Registry) LoadUnidentified(entries []models.UnidentifiedEntry) {
	r.unidMu.Lock()
	defer r.unidMu.Unlock()
	for _, e := range entries {
		key := e.Key()
		if _, ok := r.unidentified[key]; !ok {
			r.unidentified[key] = e
		}
	}
}

func sortUnidentified(entries []models.UnidentifiedEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.League != b.League {
			return a.League < b.League
		}
		return a.Raw < b.Raw
	})
}

func partitionFor(domain models.Domain, league, sport string) string {
	switch domain {
	case models.DomainMarket, models.DomainPosition:
		return strings.ToLower(strings.TrimSpace(sport))
	default:
		return cleaners.League(league)
	}
}

func cleanName(domain models.Domain, raw, partition string) string {
	switch domain {
	case models.DomainSubject:
		return cleaners.Subject(raw, partition)
	case models.DomainTeam:
		return cleaners.Team(raw, partition)
	case models.DomainMarket:
		return cleaners.Market(raw)
	case models.DomainPosition:
		return cleaners.Position(raw)
	}
	return strings.TrimSpace(raw)
}

// subjectAttr normalizes a subject disambiguator: a team abbreviation or a
// position synonym.
func subjectAttr(raw, league string) string {
	return cleaners.Position(cleaners.Team(raw, league))
}

func normalizeEntity(e models.Entity) (models.Entity, error) {
	if strings.TrimSpace(e.Name) == "" {
		return e, fmt.Errorf("%s entity without name", e.Domain)
	}
	switch e.Domain {
	case models.DomainMarket, models.DomainPosition:
		e.Partition = strings.ToLower(strings.TrimSpace(e.Partition))
	default:
		e.Partition = cleaners.League(e.Partition)
	}
	if e.Partition == "" {
		return e, fmt.Errorf("%s entity %q without partition", e.Domain, e.Name)
	}
	e.Name = cleanName(e.Domain, e.Name, e.Partition)
	if e.Domain == models.DomainSubject {
		if e.Team != "" {
			e.Team = cleaners.Team(e.Team, e.Partition)
		}
		if e.Position != "" {
			e.Position = cleaners.Position(e.Position)
		}
	}
	return e, nil
}
