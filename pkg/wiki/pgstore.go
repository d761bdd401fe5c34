package wiki

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"projecthub/pkg/format"
)

// PgStore is a PostgreSQL-backed wiki store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const columns = `id, project_id, slug, title, content, position, updated_by, created_at, updated_at`

// EnsureTable creates the wiki_pages table. Requires projects.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wiki_pages (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			slug       TEXT NOT NULL,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			position   INTEGER NOT NULL DEFAULT 0,
			updated_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (project_id, slug)
		)`)
	return err
}

// List returns the pages of a project without rendering them.
func (s *PgStore) List(ctx context.Context, projectID string) ([]Page, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+columns+` FROM wiki_pages WHERE project_id = $1
		ORDER BY position ASC, title ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("wiki pages of project %s: %w", projectID, err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// Get retrieves a page by project and slug.
func (s *PgStore) Get(ctx context.Context, projectID, slug string) (*Page, error) {
	p, err := scanPage(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM wiki_pages WHERE project_id = $1 AND slug = $2`, projectID, slug))
	if err != nil {
		return nil, fmt.Errorf("get wiki page %s/%s: %w", projectID, slug, err)
	}
	return p, nil
}

// Save upserts on (project_id, slug). An empty slug is derived from the title.
func (s *PgStore) Save(ctx context.Context, p *Page) (*Page, error) {
	if p.Slug == "" {
		p.Slug = format.Slugify(p.Title)
	}
	if p.Slug == "" {
		return nil, fmt.Errorf("save wiki page: title %q yields no slug", p.Title)
	}
	now := time.Now().Truncate(time.Microsecond)

	out, err := scanPage(s.pool.QueryRow(ctx, `
		INSERT INTO wiki_pages (id, project_id, slug, title, content, position, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (project_id, slug) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			position = EXCLUDED.position,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING `+columns,
		uuid.Must(uuid.NewV7()).String(), p.ProjectID, p.Slug, p.Title, p.Content, p.Position, p.UpdatedBy, now))
	if err != nil {
		return nil, fmt.Errorf("save wiki page %s/%s: %w", p.ProjectID, p.Slug, err)
	}
	return out, nil
}

// Delete removes a page.
func (s *PgStore) Delete(ctx context.Context, projectID, slug string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wiki_pages WHERE project_id = $1 AND slug = $2`, projectID, slug)
	if err != nil {
		return fmt.Errorf("delete wiki page %s/%s: %w", projectID, slug, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete wiki page %s/%s: %w", projectID, slug, ErrNotFound)
	}
	return nil
}

func scanPage(row pgx.Row) (*Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.ProjectID, &p.Slug, &p.Title, &p.Content, &p.Position, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
