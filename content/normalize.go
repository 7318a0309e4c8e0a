package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/antonioqueb/ooak/models"
	"github.com/go-playground/validator/v10"
)

// Normalizer cleans live ERP payloads: slugs are lower-cased, relative image
// paths resolved against the ERP public URL, and each record validated.
type Normalizer struct {
	assetBase *url.URL
	validate  *validator.Validate
}

func NewNormalizer(assetBaseURL string) *Normalizer {
	n := &Normalizer{validate: validator.New()}
	if assetBaseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(assetBaseURL, "/") + "/"); err == nil && u.Scheme != "" {
			n.assetBase = u
		}
	}
	return n
}

// AbsoluteURL resolves a relative path against the asset base. Absolute and
// data URLs pass through unchanged.
func (n *Normalizer) AbsoluteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "data:"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	}
	if n.assetBase == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return n.assetBase.ResolveReference(ref).String()
}

func (n *Normalizer) text(t models.Text) models.Text {
	return models.Text(strings.TrimSpace(string(t)))
}

func (n *Normalizer) image(t models.Text) models.Text {
	return models.Text(n.AbsoluteURL(string(t)))
}

func (n *Normalizer) images(in models.TextList) models.TextList {
	out := make(models.TextList, 0, len(in))
	for _, s := range in {
		if u := n.AbsoluteURL(s); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (n *Normalizer) check(kind string, v interface{}) error {
	if err := n.validate.Struct(v); err != nil {
		return fmt.Errorf("invalid %s: %w", kind, err)
	}
	return nil
}

func (n *Normalizer) Product(p models.Product) (models.Product, error) {
	p.Name = n.text(p.Name)
	p.Slug = models.Text(NormalizeSlug(string(p.Slug)))
	p.Collection = models.Text(NormalizeSlug(string(p.Collection)))
	p.Images = n.images(p.Images)
	return p, n.check("product", p)
}

func (n *Normalizer) Products(in []models.Product) []models.Product {
	return keepValid(in, n.Product)
}

func (n *Normalizer) Collection(c models.Collection) (models.Collection, error) {
	c.Name = n.text(c.Name)
	c.Slug = models.Text(NormalizeSlug(string(c.Slug)))
	c.CoverImage = n.image(c.CoverImage)
	c.Products = n.Products(c.Products)
	return c, n.check("collection", c)
}

func (n *Normalizer) Collections(in []models.Collection) []models.Collection {
	return keepValid(in, n.Collection)
}

func (n *Normalizer) Project(p models.Project) (models.Project, error) {
	p.Title = n.text(p.Title)
	p.Slug = models.Text(NormalizeSlug(string(p.Slug)))
	p.CoverImage = n.image(p.CoverImage)
	p.Gallery = n.images(p.Gallery)
	return p, n.check("project", p)
}

func (n *Normalizer) Projects(in []models.Project) []models.Project {
	return keepValid(in, n.Project)
}

func (n *Normalizer) Event(e models.Event) (models.Event, error) {
	e.Title = n.text(e.Title)
	e.Slug = models.Text(NormalizeSlug(string(e.Slug)))
	e.CoverImage = n.image(e.CoverImage)
	return e, n.check("event", e)
}

func (n *Normalizer) Events(in []models.Event) []models.Event {
	return keepValid(in, n.Event)
}

func (n *Normalizer) LegalPage(p models.LegalPage) (models.LegalPage, error) {
	p.Title = n.text(p.Title)
	p.Slug = models.Text(NormalizeSlug(string(p.Slug)))
	return p, n.check("legal page", p)
}

func (n *Normalizer) LegalPages(in []models.LegalPage) []models.LegalPage {
	return keepValid(in, n.LegalPage)
}

func (n *Normalizer) Footer(f models.Footer) (models.Footer, error) {
	cols := make([]models.FooterColumn, 0, len(f.Columns))
	for _, col := range f.Columns {
		col.Links = dropEmptyLinks(col.Links)
		if len(col.Links) > 0 {
			cols = append(cols, col)
		}
	}
	f.Columns = cols
	f.Social = dropEmptyLinks(f.Social)
	return f, n.check("footer", f)
}

func (n *Normalizer) Brand(b models.BrandContent) (models.BrandContent, error) {
	b.Tagline = n.text(b.Tagline)
	b.HeroImage = n.image(b.HeroImage)
	return b, n.check("brand content", b)
}

func dropEmptyLinks(in []models.Link) []models.Link {
	out := make([]models.Link, 0, len(in))
	for _, l := range in {
		if strings.TrimSpace(string(l.Label)) != "" && strings.TrimSpace(string(l.URL)) != "" {
			out = append(out, l)
		}
	}
	return out
}

// keepValid normalizes every item and drops the ones that fail validation,
// such as records without a slug.
func keepValid[T any](in []T, norm func(T) (T, error)) []T {
	out := make([]T, 0, len(in))
	for _, it := range in {
		if v, err := norm(it); err == nil {
			out = append(out, v)
		}
	}
	return out
}
