package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"projecthub/pkg/format"
	"projecthub/pkg/permission"
)

// PgStore is a PostgreSQL-backed project store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const columns = `id, name, slug, description, budget_cents, created_by, created_at, updated_at`

// EnsureTable creates the projects and project_members tables. Requires users.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS projects (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			slug         TEXT NOT NULL UNIQUE,
			description  TEXT NOT NULL DEFAULT '',
			budget_cents BIGINT CHECK (budget_cents >= 0),
			created_by   TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS project_members (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role       TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('owner','manager','member')),
			added_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (project_id, user_id)
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members(user_id)`)
	return err
}

// Create inserts the project and its owner membership in one transaction.
// The slug is derived from the name; "-2", "-3", ... are appended on collision.
func (s *PgStore) Create(ctx context.Context, p *Project, ownerID string) (*Project, error) {
	p.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	p.CreatedAt = now
	p.UpdatedAt = now
	p.CreatedBy = ownerID

	base := format.Slugify(p.Name)
	if base == "" {
		base = "projekt"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p.Slug = ""
	for i := 1; i <= 50; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO projects (id, name, slug, description, budget_cents, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			ON CONFLICT (slug) DO NOTHING`,
			p.ID, p.Name, candidate, p.Description, p.BudgetCents, p.CreatedBy, now)
		if err != nil {
			return nil, fmt.Errorf("create project %s: %w", p.Name, err)
		}
		if tag.RowsAffected() == 1 {
			p.Slug = candidate
			break
		}
	}
	if p.Slug == "" {
		return nil, fmt.Errorf("create project %s: %w", p.Name, ErrSlugExhausted)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role, added_at)
		VALUES ($1, $2, 'owner', $3)`, p.ID, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("add owner %s to project %s: %w", ownerID, p.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit project: %w", err)
	}
	return p, nil
}

// Get retrieves a project by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// BySlug retrieves a project by slug.
func (s *PgStore) BySlug(ctx context.Context, slug string) (*Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM projects WHERE slug = $1`, slug))
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", slug, err)
	}
	return p, nil
}

// List returns all projects by name.
func (s *PgStore) List(ctx context.Context) ([]Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	return scanProjectRows(rows)
}

// ForUser returns the projects userID is a member of.
func (s *PgStore) ForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.slug, p.description, p.budget_cents, p.created_by, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("projects of %s: %w", userID, err)
	}
	defer rows.Close()
	return scanProjectRows(rows)
}

// Update applies the non-nil fields of u. The slug never changes.
func (s *PgStore) Update(ctx context.Context, id string, u Update) (*Project, error) {
	now := time.Now().Truncate(time.Microsecond)
	p, err := scanProject(s.pool.QueryRow(ctx, `
		UPDATE projects SET
			name         = COALESCE($2, name),
			description  = COALESCE($3, description),
			budget_cents = CASE WHEN $5 THEN NULL ELSE COALESCE($4, budget_cents) END,
			updated_at   = $6
		WHERE id = $1
		RETURNING `+columns,
		id, u.Name, u.Description, u.BudgetCents, u.ClearBudget, now))
	if err != nil {
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	return p, nil
}

// Delete removes a project with its memberships and tasks.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete project %s: %w", id, ErrNotFound)
	}
	return nil
}

// Members lists members with their names, owners first.
func (s *PgStore) Members(ctx context.Context, projectID string) ([]Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.project_id, m.user_id, m.role, u.name, u.email, m.added_at
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY CASE m.role WHEN 'owner' THEN 0 WHEN 'manager' THEN 1 ELSE 2 END, u.name ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("members of project %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		var role string
		if err := rows.Scan(&m.ProjectID, &m.UserID, &role, &m.Name, &m.Email, &m.AddedAt); err != nil {
			return nil, err
		}
		m.Role = permission.NormalizeRole(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemberRole returns the stored role of userID in projectID.
func (s *PgStore) MemberRole(ctx context.Context, projectID, userID string) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", fmt.Errorf("role of %s in project %s: %w", userID, projectID, err)
	}
	return role, nil
}

// AddMember upserts a membership with the normalized role.
func (s *PgStore) AddMember(ctx context.Context, projectID, userID, role string) (*Member, error) {
	m := Member{
		ProjectID: projectID,
		UserID:    userID,
		Role:      permission.NormalizeRole(role),
	}
	err := s.pool.QueryRow(ctx, `
		WITH up AS (
			INSERT INTO project_members (project_id, user_id, role, added_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
			RETURNING user_id, added_at
		)
		SELECT u.name, u.email, up.added_at FROM up JOIN users u ON u.id = up.user_id`,
		projectID, userID, string(m.Role)).Scan(&m.Name, &m.Email, &m.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("add member %s to project %s: %w", userID, projectID, err)
	}
	return &m, nil
}

// RemoveMember deletes a membership unless it is the project's last owner.
func (s *PgStore) RemoveMember(ctx context.Context, projectID, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var role string
	err = tx.QueryRow(ctx, `
		SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2 FOR UPDATE`,
		projectID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotMember
	}
	if err != nil {
		return fmt.Errorf("remove member %s from project %s: %w", userID, projectID, err)
	}

	if role == string(permission.Owner) {
		var owners int
		err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM project_members WHERE project_id = $1 AND role = 'owner'`, projectID).Scan(&owners)
		if err != nil {
			return fmt.Errorf("count owners of project %s: %w", projectID, err)
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID); err != nil {
		return fmt.Errorf("remove member %s from project %s: %w", userID, projectID, err)
	}
	return tx.Commit(ctx)
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.BudgetCents, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjectRows(rows pgx.Rows) ([]Project, error) {
	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return out, nil
}
