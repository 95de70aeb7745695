package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// ConceptStore is a SQLite-backed concept.Store.
type ConceptStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewConceptStore opens a store with the given configuration.
func NewConceptStore(cfg Config, opts ...Option) (*ConceptStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &ConceptStore{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewConceptStoreFromDB creates a store from an existing connection.
func NewConceptStoreFromDB(db *sql.DB) (*ConceptStore, error) {
	s := &ConceptStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

var _ concept.Store = (*ConceptStore)(nil)

func (s *ConceptStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS concepts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_concepts_name_key ON concepts(name_key);
		CREATE TABLE IF NOT EXISTS relationships (
			id TEXT PRIMARY KEY,
			from_id TEXT NOT NULL REFERENCES concepts(id),
			to_id TEXT NOT NULL REFERENCES concepts(id),
			type TEXT NOT NULL,
			weight REAL NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_relationships_created_at ON relationships(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

func (s *ConceptStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return concept.ErrStoreClosed
	}
	return nil
}

// AddConcept inserts or replaces a concept.
func (s *ConceptStore) AddConcept(ctx context.Context, c concept.Concept) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	tags, err := json.Marshal(nonNil(c.Tags))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO concepts (id, name, name_key, description, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   name_key = excluded.name_key,
		   description = excluded.description,
		   tags = excluded.tags,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at`,
		c.ID, c.Name, concept.NormalizeName(c.Name), c.Description, string(tags),
		c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
	)
	return err
}

// GetConcept returns a concept by id.
func (s *ConceptStore) GetConcept(ctx context.Context, id string) (concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return concept.Concept{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, tags, created_at, updated_at FROM concepts WHERE id = ?`, id)
	c, err := scanConcept(row)
	if errors.Is(err, sql.ErrNoRows) {
		return concept.Concept{}, fmt.Errorf("%w: %s", concept.ErrConceptNotFound, id)
	}
	return c, err
}

// FindByName returns a concept by normalized name.
func (s *ConceptStore) FindByName(ctx context.Context, name string) (concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return concept.Concept{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, tags, created_at, updated_at FROM concepts WHERE name_key = ? ORDER BY id LIMIT 1`,
		concept.NormalizeName(name))
	c, err := scanConcept(row)
	if errors.Is(err, sql.ErrNoRows) {
		return concept.Concept{}, fmt.Errorf("%w: %q", concept.ErrConceptNotFound, name)
	}
	return c, err
}

// ListConcepts returns all concepts ordered by name.
func (s *ConceptStore) ListConcepts(ctx context.Context) ([]concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, tags, created_at, updated_at FROM concepts ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]concept.Concept, 0)
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddRelationship inserts or replaces a relationship. Both endpoints must exist.
func (s *ConceptStore) AddRelationship(ctx context.Context, r concept.Relationship) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	for _, id := range []string{r.From, r.To} {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM concepts WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", concept.ErrConceptNotFound, id)
		}
		if err != nil {
			return err
		}
	}
	if r.ID == "" {
		r.ID = concept.NewRelationshipID(r.From, r.To, r.Type)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (id, from_id, to_id, type, weight, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   from_id = excluded.from_id,
		   to_id = excluded.to_id,
		   type = excluded.type,
		   weight = excluded.weight,
		   created_at = excluded.created_at`,
		r.ID, r.From, r.To, string(r.Type), r.Weight, r.CreatedAt.UnixNano(),
	)
	return err
}

// ListRelationships returns all relationships ordered by id.
func (s *ConceptStore) ListRelationships(ctx context.Context) ([]concept.Relationship, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_id, to_id, type, weight, created_at FROM relationships ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]concept.Relationship, 0)
	for rows.Next() {
		var (
			r       concept.Relationship
			typ     string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.From, &r.To, &typ, &r.Weight, &created); err != nil {
			return nil, err
		}
		r.Type = concept.RelationType(typ)
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of concepts and relationships.
func (s *ConceptStore) Count(ctx context.Context) (int, int, error) {
	if err := s.check(ctx); err != nil {
		return 0, 0, err
	}
	var concepts, rels int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM concepts), (SELECT COUNT(*) FROM relationships)`).Scan(&concepts, &rels)
	return concepts, rels, err
}

// Close closes the database connection.
func (s *ConceptStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *ConceptStore) DB() *sql.DB {
	return s.db
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConcept(row scanner) (concept.Concept, error) {
	var (
		c                concept.Concept
		tags             string
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &tags, &created, &updated); err != nil {
		return concept.Concept{}, err
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return concept.Concept{}, fmt.Errorf("decode tags of %s: %w", c.ID, err)
	}
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return c, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
