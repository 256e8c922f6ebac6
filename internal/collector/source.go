// Package collector runs one worker per bookmaker source per round, turning
// each source's payload into resolved line-events for the lines store.
package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/models"
)

// Source is one bookmaker feed. Fetch does the I/O; Parse validates the
// payload shape and turns it into typed raw lines.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
	Parse(payload []byte) (*models.RawBatch, error)
}

// Factory builds a source of one kind from its configuration.
type Factory func(src config.SourceConfig, col config.CollectorConfig) (Source, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

func Register(kind string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(kind))
	if n == "" {
		panic("collector: empty kind in Register")
	}
	if f == nil {
		panic("collector: nil factory in Register for " + n)
	}

	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exists := factories[n]; exists {
		panic("collector: duplicate registration for " + n)
	}
	factories[n] = f
}

func FactoryByName(kind string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(kind))
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[n]
	return f, ok
}

func AvailableNames() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Group is a set of sources polled in the same round.
type Group struct {
	Name    string
	Sources []Source
}

// BuildGroups instantiates every configured source through its kind's
// factory and arranges them into the configured groups.
func BuildGroups(cfg config.CollectorConfig) ([]Group, error) {
	groups := make([]Group, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		group := Group{Name: g.Name}
		for _, name := range g.Sources {
			srcCfg, ok := cfg.SourceByName(name)
			if !ok {
				return nil, fmt.Errorf("group %s: unknown source %q", g.Name, name)
			}
			factory, ok := FactoryByName(srcCfg.Kind)
			if !ok {
				return nil, fmt.Errorf("source %s: unknown kind %q (available: %v)", srcCfg.Name, srcCfg.Kind, AvailableNames())
			}
			src, err := factory(srcCfg, cfg)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", srcCfg.Name, err)
			}
			group.Sources = append(group.Sources, src)
		}
		groups = append(groups, group)
	}
	return groups, nil
}
