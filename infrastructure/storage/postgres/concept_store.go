package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
)

// ConceptStore is a PostgreSQL-backed concept.Store.
type ConceptStore struct {
	pool   *pgxpool.Pool
	schema string
	owned  bool
	closed atomic.Bool
}

// NewConceptStore creates a store on an existing pool. The caller keeps
// ownership of the pool.
func NewConceptStore(pool *pgxpool.Pool, schema string) *ConceptStore {
	if schema == "" {
		schema = "public"
	}
	return &ConceptStore{pool: pool, schema: schema}
}

// Open connects, migrates and returns a store that owns its pool.
func Open(ctx context.Context, cfg Config, opts ...ConfigOption) (*ConceptStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewConceptStore(pool, cfg.Schema)
	s.owned = true
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

var _ concept.Store = (*ConceptStore)(nil)

func (s *ConceptStore) conceptsTable() string {
	return pgx.Identifier{s.schema, "concepts"}.Sanitize()
}

func (s *ConceptStore) relationshipsTable() string {
	return pgx.Identifier{s.schema, "relationships"}.Sanitize()
}

// migrationSQL returns the schema statements.
func (s *ConceptStore) migrationSQL() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, s.conceptsTable()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS concepts_name_key_idx ON %s (name_key)`, s.conceptsTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			from_id TEXT NOT NULL REFERENCES %s (id),
			to_id TEXT NOT NULL REFERENCES %s (id),
			type TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`, s.relationshipsTable(), s.conceptsTable(), s.conceptsTable()),
	}
}

// Migrate creates the tables if they do not exist.
func (s *ConceptStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.migrationSQL() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return s.wrapError(err)
		}
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
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, name_key, description, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			name_key = EXCLUDED.name_key,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, s.conceptsTable())

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.Name, concept.NormalizeName(c.Name), c.Description, tags, c.CreatedAt, c.UpdatedAt)
	return s.wrapError(err)
}

func (s *ConceptStore) selectConcepts() string {
	return fmt.Sprintf(`SELECT id, name, description, tags, created_at, updated_at FROM %s`, s.conceptsTable())
}

// GetConcept returns a concept by id.
func (s *ConceptStore) GetConcept(ctx context.Context, id string) (concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return concept.Concept{}, err
	}
	c, err := scanConcept(s.pool.QueryRow(ctx, s.selectConcepts()+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return concept.Concept{}, fmt.Errorf("%w: %s", concept.ErrConceptNotFound, id)
	}
	return c, s.wrapError(err)
}

// FindByName returns a concept by normalized name.
func (s *ConceptStore) FindByName(ctx context.Context, name string) (concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return concept.Concept{}, err
	}
	c, err := scanConcept(s.pool.QueryRow(ctx,
		s.selectConcepts()+` WHERE name_key = $1 ORDER BY id LIMIT 1`, concept.NormalizeName(name)))
	if errors.Is(err, pgx.ErrNoRows) {
		return concept.Concept{}, fmt.Errorf("%w: %q", concept.ErrConceptNotFound, name)
	}
	return c, s.wrapError(err)
}

// ListConcepts returns all concepts ordered by name.
func (s *ConceptStore) ListConcepts(ctx context.Context) ([]concept.Concept, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, s.selectConcepts()+` ORDER BY name, id`)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	out := make([]concept.Concept, 0)
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, s.wrapError(err)
		}
		out = append(out, c)
	}
	return out, s.wrapError(rows.Err())
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
		err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1`, s.conceptsTable()), id).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", concept.ErrConceptNotFound, id)
		}
		if err != nil {
			return s.wrapError(err)
		}
	}
	if r.ID == "" {
		r.ID = concept.NewRelationshipID(r.From, r.To, r.Type)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, from_id, to_id, type, weight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			from_id = EXCLUDED.from_id,
			to_id = EXCLUDED.to_id,
			type = EXCLUDED.type,
			weight = EXCLUDED.weight,
			created_at = EXCLUDED.created_at
	`, s.relationshipsTable())

	_, err := s.pool.Exec(ctx, query, r.ID, r.From, r.To, string(r.Type), r.Weight, r.CreatedAt)
	return s.wrapError(err)
}

// ListRelationships returns all relationships ordered by id.
func (s *ConceptStore) ListRelationships(ctx context.Context) ([]concept.Relationship, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, from_id, to_id, type, weight, created_at FROM %s ORDER BY id`, s.relationshipsTable()))
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	out := make([]concept.Relationship, 0)
	for rows.Next() {
		var (
			r   concept.Relationship
			typ string
		)
		if err := rows.Scan(&r.ID, &r.From, &r.To, &typ, &r.Weight, &r.CreatedAt); err != nil {
			return nil, s.wrapError(err)
		}
		r.Type = concept.RelationType(typ)
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, s.wrapError(rows.Err())
}

// Count returns the number of concepts and relationships.
func (s *ConceptStore) Count(ctx context.Context) (int, int, error) {
	if err := s.check(ctx); err != nil {
		return 0, 0, err
	}
	var concepts, rels int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT (SELECT COUNT(*) FROM %s), (SELECT COUNT(*) FROM %s)`,
		s.conceptsTable(), s.relationshipsTable())).Scan(&concepts, &rels)
	return concepts, rels, s.wrapError(err)
}

// Close releases the pool if the store owns it.
func (s *ConceptStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.owned {
		s.pool.Close()
	}
	return nil
}

func scanConcept(row pgx.Row) (concept.Concept, error) {
	var c concept.Concept
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Tags, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return concept.Concept{}, err
	}
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

// wrapError marks transport failures so callers can tell them from domain errors.
func (s *ConceptStore) wrapError(err error) error {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(ErrConnectionFailed, err)
}
