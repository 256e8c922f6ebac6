package registry

import (
	"sync"
	"sync/atomic"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

// snapshot is an immutable view of one domain table. Writers build a new
// snapshot and swap the pointer; readers never lock.
type snapshot struct {
	byKey map[models.IdentityKey]*models.Entity
	byID  map[int64]*models.Entity
	// ambiguous holds subject keys other than name+team shared by two or
	// more entities.
	ambiguous map[models.IdentityKey]bool
}

func newSnapshot() *snapshot {
	return &snapshot{
		byKey:     map[models.IdentityKey]*models.Entity{},
		byID:      map[int64]*models.Entity{},
		ambiguous: map[models.IdentityKey]bool{},
	}
}

func (s *snapshot) clone() *snapshot {
	out := &snapshot{
		byKey:     make(map[models.IdentityKey]*models.Entity, len(s.byKey)),
		byID:      make(map[int64]*models.Entity, len(s.byID)),
		ambiguous: make(map[models.IdentityKey]bool, len(s.ambiguous)),
	}
	for k, v := range s.byKey {
		out.byKey[k] = v
	}
	for k, v := range s.byID {
		out.byID[k] = v
	}
	for k := range s.ambiguous {
		out.ambiguous[k] = true
	}
	return out
}

func (s *snapshot) index(e *models.Entity) {
	s.byID[e.ID] = e
	for _, key := range keysFor(e) {
		if e.Domain == models.DomainSubject && (key.Attr == "" || key.Attr != e.Team) {
			if s.ambiguous[key] {
				continue
			}
			if other, ok := s.byKey[key]; ok && other.ID != e.ID {
				delete(s.byKey, key)
				s.ambiguous[key] = true
				continue
			}
		}
		s.byKey[key] = e
	}
}

func (s *snapshot) unindex(e *models.Entity) {
	for _, key := range keysFor(e) {
		if cur, ok := s.byKey[key]; ok && cur.ID == e.ID {
			delete(s.byKey, key)
		}
	}
	delete(s.byID, e.ID)
}

// keysFor lists every identity key an entity is reachable under. Subjects are
// indexed by each known disambiguator plus their bare name.
func keysFor(e *models.Entity) []models.IdentityKey {
	base := models.IdentityKey{Domain: e.Domain, Partition: e.Partition, Name: e.Name}
	if e.Domain != models.DomainSubject {
		return []models.IdentityKey{base}
	}
	keys := []models.IdentityKey{base}
	if e.Team != "" {
		k := base
		k.Attr = e.Team
		keys = append(keys, k)
	}
	if e.Position != "" && e.Position != e.Team {
		k := base
		k.Attr = e.Position
		keys = append(keys, k)
	}
	return keys
}

// table is one domain of the registry. mu serializes writers only.
type table struct {
	domain models.Domain
	mu     sync.Mutex
	nextID int64
	snap   atomic.Pointer[snapshot]
}

func newTable(domain models.Domain) *table {
	t := &table{domain: domain, nextID: 1}
	t.snap.Store(newSnapshot())
	return t
}

func (t *table) lookup(key models.IdentityKey) (*models.Entity, bool) {
	e, ok := t.snap.Load().byKey[key]
	return e, ok
}

func (t *table) byID(id int64) (*models.Entity, bool) {
	e, ok := t.snap.Load().byID[id]
	return e, ok
}

// upsert merges e into the table and returns the stored entity plus whether
// anything changed.
func (t *table) upsert(e models.Entity) (*models.Entity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.snap.Load()
	existing := t.findLocked(cur, &e)
	if existing != nil {
		merged := merge(*existing, e)
		if merged == *existing {
			return existing, false
		}
		next := cur.clone()
		next.unindex(existing)
		stored := &merged
		next.index(stored)
		t.snap.Store(next)
		return stored, true
	}

	if e.ID <= 0 || cur.byID[e.ID] != nil {
		e.ID = t.nextID
	}
	if e.ID >= t.nextID {
		t.nextID = e.ID + 1
	}
	next := cur.clone()
	stored := &e
	next.index(stored)
	t.snap.Store(next)
	return stored, true
}

// load installs entities with one snapshot swap.
func (t *table) load(entities []models.Entity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.snap.Load().clone()
	for i := range entities {
		e := entities[i]
		if e.ID <= 0 || next.byID[e.ID] != nil {
			e.ID = t.nextID
		}
		if e.ID >= t.nextID {
			t.nextID = e.ID + 1
		}
		next.index(&e)
	}
	t.snap.Store(next)
}

func (t *table) findLocked(s *snapshot, e *models.Entity) *models.Entity {
	if e.ID > 0 {
		if existing, ok := s.byID[e.ID]; ok {
			return existing
		}
	}
	// disambiguated keys first, the bare name last
	keys := keysFor(e)
	for i := len(keys) - 1; i >= 0; i-- {
		if existing, ok := s.byKey[keys[i]]; ok && sameSubject(existing, e) {
			return existing
		}
	}
	return nil
}

// sameSubject reports whether a name match without an id may be merged into
// existing. A same-named subject on another team is a different player; a
// team change goes through the id.
func sameSubject(existing, e *models.Entity) bool {
	if e.Domain != models.DomainSubject {
		return true
	}
	if existing.Team != "" && e.Team != "" {
		return existing.Team == e.Team
	}
	if existing.Team == "" && e.Team == "" && existing.Position != "" && e.Position != "" {
		return existing.Position == e.Position
	}
	return true
}

// merge applies last-write-wins per supplied attribute. Identity fields stay.
func merge(cur, upd models.Entity) models.Entity {
	out := cur
	if upd.Team != "" {
		out.Team = upd.Team
	}
	if upd.Position != "" {
		out.Position = upd.Position
	}
	if upd.FullName != "" {
		out.FullName = upd.FullName
	}
	return out
}
