package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

// SeedFile is the YAML layout of a canonical entity seed:
//
//	teams:
//	  - {id: 1, partition: NBA, name: PHX, full_name: Phoenix Suns}
//	subjects:
//	  - {partition: NBA, name: Devin Booker, team: PHX, position: G}
type SeedFile struct {
	Teams     []models.Entity `yaml:"teams"`
	Subjects  []models.Entity `yaml:"subjects"`
	Markets   []models.Entity `yaml:"markets"`
	Positions []models.Entity `yaml:"positions"`
}

// LoadSeedFile reads a seed file and stamps each entity with its domain.
func LoadSeedFile(path string) ([]models.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML.
func ParseSeed(data []byte) ([]models.Entity, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	var out []models.Entity
	add := func(domain models.Domain, list []models.Entity) {
		for _, e := range list {
			e.Domain = domain
			out = append(out, e)
		}
	}
	add(models.DomainTeam, seed.Teams)
	add(models.DomainSubject, seed.Subjects)
	add(models.DomainMarket, seed.Markets)
	add(models.DomainPosition, seed.Positions)
	return out, nil
}
