package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antonioqueb/ooak/models"
)

//go:embed fallback/*.json
var fallbackFS embed.FS

// Tables is the static content served when the ERP cannot be reached. It has
// the same shape as the live payloads.
type Tables struct {
	Collections []models.Collection
	Projects    []models.Project
	Events      []models.Event
	LegalPages  []models.LegalPage
	Footer      models.Footer
	Brand       models.BrandContent
}

// LoadFallback decodes the embedded fallback tables.
func LoadFallback() (*Tables, error) {
	var (
		t           Tables
		collections models.CollectionsEnvelope
		projects    models.ProjectsEnvelope
		events      models.EventsEnvelope
		legal       models.LegalPagesEnvelope
		footer      models.FooterEnvelope
		brand       models.BrandEnvelope
	)

	files := map[string]interface{}{
		"collections.json": &collections,
		"projects.json":    &projects,
		"events.json":      &events,
		"legal.json":       &legal,
		"footer.json":      &footer,
		"brand.json":       &brand,
	}
	for name, dst := range files {
		data, err := fallbackFS.ReadFile("fallback/" + name)
		if err != nil {
			return nil, fmt.Errorf("read fallback %s: %w", name, err)
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return nil, fmt.Errorf("decode fallback %s: %w", name, err)
		}
	}

	t.Collections = collections.Collections
	t.Projects = projects.Projects
	t.Events = events.Events
	t.LegalPages = legal.Pages
	t.Footer = footer.Footer
	t.Brand = brand.Brand
	return &t, nil
}

// MustLoadFallback is LoadFallback for startup; the tables are compiled in.
func MustLoadFallback() *Tables {
	t, err := LoadFallback()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tables) Collection(slug string) (models.Collection, bool) {
	return findBySlug(t.Collections, slug, func(c models.Collection) models.Text { return c.Slug })
}

// Product searches every collection for slug.
func (t *Tables) Product(slug string) (models.Product, bool) {
	for _, c := range t.Collections {
		if p, ok := findBySlug(c.Products, slug, func(p models.Product) models.Text { return p.Slug }); ok {
			return p, true
		}
	}
	return models.Product{}, false
}

func (t *Tables) Project(slug string) (models.Project, bool) {
	return findBySlug(t.Projects, slug, func(p models.Project) models.Text { return p.Slug })
}

func (t *Tables) Event(slug string) (models.Event, bool) {
	return findBySlug(t.Events, slug, func(e models.Event) models.Text { return e.Slug })
}

func (t *Tables) LegalPage(slug string) (models.LegalPage, bool) {
	return findBySlug(t.LegalPages, slug, func(p models.LegalPage) models.Text { return p.Slug })
}

func findBySlug[T any](items []T, slug string, key func(T) models.Text) (T, bool) {
	slug = NormalizeSlug(slug)
	for _, it := range items {
		if NormalizeSlug(string(key(it))) == slug {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// NormalizeSlug trims and lower-cases a slug.
func NormalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
