package tracker

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"toughturtle/app/storage/models"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DistanceChallenge is advanced by every distance logged through LogDistance.
const DistanceChallenge = "Sprint to Spry Snapper"

//go:embed catalog.yaml
var defaultCatalog []byte

type CatalogEntry struct {
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Target   float64 `yaml:"target"`
	Unit     string  `yaml:"unit"`
}

type catalogFile struct {
	Challenges []CatalogEntry `yaml:"challenges"`
}

func (e CatalogEntry) challenge(owner string, now time.Time) models.Challenge {
	return models.Challenge{
		ID:        uuid.NewString(),
		UserID:    owner,
		Name:      e.Name,
		Category:  e.Category,
		Target:    e.Target,
		Unit:      e.Unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ParseCatalog decodes and validates a YAML challenge catalog.
func ParseCatalog(data []byte) ([]CatalogEntry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse challenge catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Challenges))
	for i, e := range f.Challenges {
		in := ChallengeInput{Name: e.Name, Category: e.Category, Target: e.Target, Unit: e.Unit}
		if err := in.validate(); err != nil {
			return nil, fmt.Errorf("challenge catalog entry %d: %w", i, err)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("challenge catalog: duplicate name %q", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return f.Challenges, nil
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

func DefaultCatalog() []CatalogEntry {
	entries, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return entries
}
