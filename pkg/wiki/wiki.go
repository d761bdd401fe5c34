// Package wiki stores per-project markdown pages.
package wiki

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrNotFound is returned when a page does not exist.
var ErrNotFound = errors.New("wiki page not found")

// Page is a markdown document of a project.
type Page struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"` // markdown
	HTML      string    `json:"html,omitempty"`
	Position  int       `json:"position"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the contract for wiki persistence.
type Store interface {
	List(ctx context.Context, projectID string) ([]Page, error)
	Get(ctx context.Context, projectID, slug string) (*Page, error)
	// Save creates the page or replaces title and content of the page with the same slug.
	Save(ctx context.Context, p *Page) (*Page, error)
	Delete(ctx context.Context, projectID, slug string) error
	EnsureTable(ctx context.Context) error
}

// Raw HTML in page sources is dropped, not passed through.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render converts page markdown to HTML.
func Render(content string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
