package storage

import (
	"context"

	"github.com/BurntSushi/toml"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
)

// Seed is a TOML graph fixture: a declarative set of entities and
// relationships used to bootstrap development databases and integration
// tests without going through the ingestion pipeline.
//
// Format:
//
//	[[entities]]
//	id   = "dog"
//	name = "Dog"
//	[entities.metadata]
//	kingdom = "animalia"
//
//	[[relationships]]
//	head       = "dog"
//	tail       = "animal"
//	edge_type  = "SubclassOf"
//	confidence = 0.9
type Seed struct {
	Entities      []SeedEntity       `toml:"entities"`
	Relationships []SeedRelationship `toml:"relationships"`
}

// SeedEntity is the TOML shape of an entity.
type SeedEntity struct {
	ID       string            `toml:"id"`
	Name     string            `toml:"name"`
	Metadata map[string]string `toml:"metadata"`
}

// SeedRelationship is the TOML shape of a relationship.
type SeedRelationship struct {
	Head       string  `toml:"head"`
	Tail       string  `toml:"tail"`
	EdgeType   string  `toml:"edge_type"`
	Confidence float64 `toml:"confidence"`
}

// LoadSeed parses a TOML seed file.
func LoadSeed(path string) (*Seed, error) {
	var seed Seed
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return nil, errors.Wrapf(err, "failed to parse seed file %s", path)
	}
	return &seed, nil
}

// ParseSeed parses seed data from a TOML string. Tests use this to avoid
// fixture files.
func ParseSeed(data string) (*Seed, error) {
	var seed Seed
	if _, err := toml.Decode(data, &seed); err != nil {
		return nil, errors.Wrap(err, "failed to parse seed data")
	}
	return &seed, nil
}

// Apply validates the seed and writes it to the store. Entities first, so
// relationship endpoints resolve for readers that check existence.
func (s *Seed) Apply(ctx context.Context, store Store) error {
	entities := make([]ontology.Entity, 0, len(s.Entities))
	for _, se := range s.Entities {
		entities = append(entities, ontology.Entity{
			ID:       se.ID,
			Name:     se.Name,
			Metadata: se.Metadata,
		})
	}

	rels := make([]ontology.Relationship, 0, len(s.Relationships))
	for _, sr := range s.Relationships {
		et, err := ontology.ParseEdgeType(sr.EdgeType)
		if err != nil {
			return err
		}
		rels = append(rels, ontology.Relationship{
			HeadEntity: sr.Head,
			TailEntity: sr.Tail,
			EdgeType:   et,
			Confidence: sr.Confidence,
		})
	}

	if err := store.StoreEntities(ctx, entities); err != nil {
		return errors.Wrap(err, "failed to seed entities")
	}
	if err := store.StoreRelationships(ctx, rels); err != nil {
		return errors.Wrap(err, "failed to seed relationships")
	}
	return nil
}
