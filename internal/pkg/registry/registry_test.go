package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

func seeded(t *testing.T) *Registry {
	t.Helper()
	r := New()
	require.NoError(t, r.Load([]models.Entity{
		{ID: 1, Domain: models.DomainTeam, Partition: "NBA", Name: "PHX", FullName: "Phoenix Suns"},
		{ID: 2, Domain: models.DomainTeam, Partition: "NBA", Name: "BKN", FullName: "Brooklyn Nets"},
		{ID: 10, Domain: models.DomainSubject, Partition: "NBA", Name: "Cam Thomas", Team: "BKN", Position: "G"},
		{ID: 11, Domain: models.DomainSubject, Partition: "NBA", Name: "Devin Booker", Team: "PHX", Position: "G"},
		{ID: 1, Domain: models.DomainMarket, Partition: "basketball", Name: "Points"},
	}))
	return r
}

func TestResolve_NormalizesBeforeLookup(t *testing.T) {
	r := seeded(t)

	team, ok := r.Resolve(models.DomainTeam, ResolveRequest{Source: "prizepicks", League: "nba", Raw: "PHO"})
	require.True(t, ok)
	assert.Equal(t, int64(1), team.ID)

	subject, ok := r.Resolve(models.DomainSubject, ResolveRequest{
		Source: "prizepicks", League: "NBA", Raw: "Cameron Thomas", Disambiguators: []string{"BRK"},
	})
	require.True(t, ok)
	assert.Equal(t, int64(10), subject.ID)

	market, ok := r.Resolve(models.DomainMarket, ResolveRequest{Source: "prizepicks", League: "NBA", Sport: "Basketball", Raw: "PTS"})
	require.True(t, ok)
	assert.Equal(t, "Points", market.Name)
}

func TestResolve_SameSpellingsShareEntity(t *testing.T) {
	r := seeded(t)

	a, ok := r.Resolve(models.DomainSubject, ResolveRequest{Source: "a", League: "NBA", Raw: "devin booker", Disambiguators: []string{"PHO"}})
	require.True(t, ok)
	b, ok := r.Resolve(models.DomainSubject, ResolveRequest{Source: "b", League: "NBA", Raw: "DEVIN  BOOKER", Disambiguators: []string{"Guard"}})
	require.True(t, ok)
	assert.Same(t, a, b)
}

func TestResolve_MissRecordedOnce(t *testing.T) {
	r := seeded(t)
	req := ResolveRequest{Source: "underdog", League: "NBA", Raw: "Unknown Rookie", Disambiguators: []string{"PHX"}}

	_, ok := r.Resolve(models.DomainSubject, req)
	assert.False(t, ok)
	_, ok = r.Resolve(models.DomainSubject, req)
	assert.False(t, ok)

	report := r.Unidentified(models.DomainSubject)
	require.Len(t, report, 1)
	assert.Equal(t, "underdog", report[0].Source)
	assert.Equal(t, "NBA", report[0].League)
	assert.Equal(t, "Unknown Rookie", report[0].Raw)
	assert.Empty(t, r.Unidentified(models.DomainTeam))

	assert.Len(t, r.DrainUnidentified(), 1)
	assert.Empty(t, r.DrainUnidentified())
}

func TestResolve_BareNameOnlyWhenUnique(t *testing.T) {
	r := New()
	require.NoError(t, r.Load([]models.Entity{
		{Domain: models.DomainSubject, Partition: "NBA", Name: "Jalen Williams", Team: "OKC"},
		{Domain: models.DomainSubject, Partition: "NBA", Name: "Jalen Williams", Team: "DEN"},
		{Domain: models.DomainSubject, Partition: "NBA", Name: "Nikola Jokic", Team: "DEN"},
	}))

	_, ok := r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Jalen Williams"})
	assert.False(t, ok)

	e, ok := r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Jalen Williams", Disambiguators: []string{"DEN"}})
	require.True(t, ok)
	assert.Equal(t, "DEN", e.Team)

	e, ok = r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Nikola Jokić"})
	require.True(t, ok)
	assert.Equal(t, "Nikola Jokic", e.Name)
}

func TestUpdate_MergesAttributesAndRekeys(t *testing.T) {
	r := seeded(t)
	before, ok := r.Get(models.DomainSubject, 10)
	require.True(t, ok)

	updated, err := r.Update(models.Entity{ID: 10, Domain: models.DomainSubject, Partition: "NBA", Name: "Cam Thomas", Team: "PHX"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), updated.ID)
	assert.Equal(t, "PHX", updated.Team)
	assert.Equal(t, "G", updated.Position)

	// the old pointer is never mutated
	assert.Equal(t, "BKN", before.Team)

	_, ok = r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Cam Thomas", Disambiguators: []string{"BKN"}})
	require.True(t, ok, "falls back to the bare name")
	e, ok := r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Cam Thomas", Disambiguators: []string{"PHX"}})
	require.True(t, ok)
	assert.Equal(t, int64(10), e.ID)

	changes := r.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "PHX", changes[0].Team)
	assert.Empty(t, r.Changes())
}

func TestUpdate_SameNameOnAnotherTeamIsNewSubject(t *testing.T) {
	r := seeded(t)

	other, err := r.Update(models.Entity{Domain: models.DomainSubject, Partition: "NBA", Name: "Devin Booker", Team: "BKN", Position: "G"})
	require.NoError(t, err)
	assert.NotEqual(t, int64(11), other.ID)
	assert.Equal(t, "BKN", other.Team)

	booker, ok := r.Get(models.DomainSubject, 11)
	require.True(t, ok)
	assert.Equal(t, "PHX", booker.Team)

	e, ok := r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Devin Booker", Disambiguators: []string{"PHX"}})
	require.True(t, ok)
	assert.Equal(t, int64(11), e.ID)
	e, ok = r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Devin Booker", Disambiguators: []string{"BKN"}})
	require.True(t, ok)
	assert.Equal(t, other.ID, e.ID)
	_, ok = r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Devin Booker"})
	assert.False(t, ok, "bare name is ambiguous now")
	_, ok = r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Devin Booker", Disambiguators: []string{"G"}})
	assert.False(t, ok, "so is name plus a shared position")

	// a name-only payload still merges into the unique match
	same, err := r.Update(models.Entity{Domain: models.DomainSubject, Partition: "NBA", Name: "Cam Thomas", FullName: "Cameron Thomas"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), same.ID)
	assert.Equal(t, "BKN", same.Team)
}

func TestUpdate_AllocatesMonotonicIDsPerDomain(t *testing.T) {
	r := seeded(t)

	team, err := r.Update(models.Entity{Domain: models.DomainTeam, Partition: "NBA", Name: "LAL"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), team.ID)

	market, err := r.Update(models.Entity{Domain: models.DomainMarket, Partition: "basketball", Name: "Rebounds"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), market.ID)

	again, err := r.Update(models.Entity{Domain: models.DomainTeam, Partition: "nba", Name: "lal", FullName: "Los Angeles Lakers"})
	require.NoError(t, err)
	assert.Equal(t, team.ID, again.ID)
	assert.Equal(t, "Los Angeles Lakers", again.FullName)

	_, err = r.Update(models.Entity{Domain: models.DomainTeam, Partition: "NBA"})
	assert.Error(t, err)
	_, err = r.Update(models.Entity{Domain: "league", Partition: "NBA", Name: "x"})
	assert.Error(t, err)
}

func TestRegistry_ConcurrentResolveAndUpdate(t *testing.T) {
	r := seeded(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = r.Update(models.Entity{Domain: models.DomainSubject, Partition: "NBA", Name: fmt.Sprintf("Player %c", 'a'+rune(j%26)), Team: "PHX"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e, ok := r.Resolve(models.DomainSubject, ResolveRequest{Source: "s", League: "NBA", Raw: "Devin Booker", Disambiguators: []string{"PHX"}})
				if assert.True(t, ok) {
					assert.Equal(t, "Devin Booker", e.Name)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 28, r.Count()[models.DomainSubject])
}
