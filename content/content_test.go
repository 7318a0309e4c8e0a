package content

import (
	"testing"

	"github.com/antonioqueb/ooak/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallback(t *testing.T) {
	tables, err := LoadFallback()
	require.NoError(t, err)

	assert.NotEmpty(t, tables.Collections)
	assert.NotEmpty(t, tables.Projects)
	assert.NotEmpty(t, tables.Events)
	assert.NotEmpty(t, tables.LegalPages)
	assert.NotEmpty(t, tables.Footer.Columns)
	assert.NotEmpty(t, tables.Brand.Tagline)
}

func TestFallbackTablesAreValid(t *testing.T) {
	tables := MustLoadFallback()
	n := NewNormalizer("")

	for _, c := range tables.Collections {
		_, err := n.Collection(c)
		assert.NoError(t, err, "collection %s", c.Slug)
		for _, p := range c.Products {
			_, err := n.Product(p)
			assert.NoError(t, err, "product %s", p.Slug)
		}
	}
	for _, p := range tables.Projects {
		_, err := n.Project(p)
		assert.NoError(t, err)
	}
	for _, e := range tables.Events {
		_, err := n.Event(e)
		assert.NoError(t, err)
	}
	for _, p := range tables.LegalPages {
		_, err := n.LegalPage(p)
		assert.NoError(t, err)
	}
	_, err := n.Footer(tables.Footer)
	assert.NoError(t, err)
	_, err = n.Brand(tables.Brand)
	assert.NoError(t, err)
}

func TestFallbackLookups(t *testing.T) {
	tables := MustLoadFallback()

	c, ok := tables.Collection("Barro-Negro ")
	require.True(t, ok)
	assert.Equal(t, models.Text("Barro Negro"), c.Name)

	p, ok := tables.Product("tapete-teotitlan")
	require.True(t, ok)
	assert.Equal(t, models.Text("TX-TAP-001"), p.SKU)

	_, ok = tables.Project("casa-polanco")
	assert.True(t, ok)
	_, ok = tables.Event("zona-maco-2026")
	assert.True(t, ok)
	_, ok = tables.LegalPage("aviso-de-privacidad")
	assert.True(t, ok)

	_, ok = tables.Product("no-such-product")
	assert.False(t, ok)
}

func TestNormalizer_AbsoluteURL(t *testing.T) {
	n := NewNormalizer("https://erp.example.com/")

	assert.Equal(t, "https://erp.example.com/web/image/7", n.AbsoluteURL("/web/image/7"))
	assert.Equal(t, "https://erp.example.com/web/image/7", n.AbsoluteURL("web/image/7"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", n.AbsoluteURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", n.AbsoluteURL("//cdn.example.com/a.jpg"))
	assert.Equal(t, "", n.AbsoluteURL("  "))

	bare := NewNormalizer("")
	assert.Equal(t, "/web/image/7", bare.AbsoluteURL("/web/image/7"))
}

func TestNormalizer_Collections(t *testing.T) {
	n := NewNormalizer("https://erp.example.com")
	in := []models.Collection{
		{
			Name:       " Vidrio Soplado ",
			Slug:       "Vidrio-Soplado",
			CoverImage: "/web/image/collection/3",
			Products: []models.Product{
				{Name: "Vaso", Slug: "VASO", Images: models.TextList{"/web/image/p/1"}},
				{Name: "Sin slug"},
			},
		},
		{Name: "Missing slug"},
	}

	out := n.Collections(in)
	require.Len(t, out, 1)
	c := out[0]
	assert.Equal(t, models.Text("Vidrio Soplado"), c.Name)
	assert.Equal(t, models.Text("vidrio-soplado"), c.Slug)
	assert.Equal(t, models.Text("https://erp.example.com/web/image/collection/3"), c.CoverImage)
	require.Len(t, c.Products, 1)
	assert.Equal(t, models.Text("vaso"), c.Products[0].Slug)
	assert.Equal(t, models.TextList{"https://erp.example.com/web/image/p/1"}, c.Products[0].Images)
}

func TestNormalizer_RejectsInvalidRecord(t *testing.T) {
	n := NewNormalizer("")
	_, err := n.Product(models.Product{Name: "No slug"})
	assert.Error(t, err)

	_, err = n.Brand(models.BrandContent{})
	assert.Error(t, err)
}

func TestNormalizer_FooterDropsEmptyLinks(t *testing.T) {
	n := NewNormalizer("")
	f, err := n.Footer(models.Footer{
		Columns: []models.FooterColumn{
			{Title: "Tienda", Links: []models.Link{{Label: "Colecciones", URL: "/colecciones"}, {Label: "", URL: "/x"}}},
			{Title: "Vacía", Links: []models.Link{{Label: "Roto"}}},
		},
		Social: []models.Link{{Label: "Instagram", URL: ""}},
	})
	require.NoError(t, err)
	require.Len(t, f.Columns, 1)
	assert.Len(t, f.Columns[0].Links, 1)
	assert.Empty(t, f.Social)
}
