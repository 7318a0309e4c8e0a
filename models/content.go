package models

import (
	"bytes"
	"encoding/json"
)

// Text is a string field from the ERP. Odoo serialises empty char fields as
// false, so false and null both decode to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("false")) || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// TextList is a list of strings that tolerates false/null for "empty".
type TextList []string

func (l *TextList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("false")) || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	var raw []Text
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, string(s))
		}
	}
	*l = out
	return nil
}

type Product struct {
	ID          int64    `json:"id"`
	Name        Text     `json:"name" validate:"required"`
	Slug        Text     `json:"slug" validate:"required"`
	SKU         Text     `json:"sku,omitempty"`
	Price       float64  `json:"price" validate:"gte=0"`
	Currency    Text     `json:"currency,omitempty"`
	Description Text     `json:"description,omitempty"`
	Category    Text     `json:"category,omitempty"`
	Collection  Text     `json:"collection,omitempty"`
	Materials   Text     `json:"materials,omitempty"`
	Dimensions  Text     `json:"dimensions,omitempty"`
	Images      TextList `json:"images"`
	Available   bool     `json:"available"`
}

type Collection struct {
	ID          int64     `json:"id"`
	Name        Text      `json:"name" validate:"required"`
	Slug        Text      `json:"slug" validate:"required"`
	Description Text      `json:"description,omitempty"`
	CoverImage  Text      `json:"cover_image,omitempty"`
	Products    []Product `json:"products"`
}

type Project struct {
	ID         int64    `json:"id"`
	Title      Text     `json:"title" validate:"required"`
	Slug       Text     `json:"slug" validate:"required"`
	Location   Text     `json:"location,omitempty"`
	Year       Text     `json:"year,omitempty"`
	Summary    Text     `json:"summary,omitempty"`
	Body       Text     `json:"body,omitempty"`
	CoverImage Text     `json:"cover_image,omitempty"`
	Gallery    TextList `json:"gallery"`
}

type Event struct {
	ID         int64 `json:"id"`
	Title      Text  `json:"title" validate:"required"`
	Slug       Text  `json:"slug" validate:"required"`
	Kind       Text  `json:"kind,omitempty"`
	Date       Text  `json:"date,omitempty"`
	Location   Text  `json:"location,omitempty"`
	Summary    Text  `json:"summary,omitempty"`
	Body       Text  `json:"body,omitempty"`
	CoverImage Text  `json:"cover_image,omitempty"`
}

type LegalPage struct {
	ID        int64 `json:"id"`
	Title     Text  `json:"title" validate:"required"`
	Slug      Text  `json:"slug" validate:"required"`
	Body      Text  `json:"body,omitempty"`
	UpdatedAt Text  `json:"updated_at,omitempty"`
}

type Link struct {
	Label Text `json:"label" validate:"required"`
	URL   Text `json:"url" validate:"required"`
}

type FooterColumn struct {
	Title Text   `json:"title"`
	Links []Link `json:"links" validate:"dive"`
}

type Footer struct {
	Columns   []FooterColumn `json:"columns" validate:"dive"`
	Social    []Link         `json:"social" validate:"dive"`
	Email     Text           `json:"email,omitempty"`
	Phone     Text           `json:"phone,omitempty"`
	Address   Text           `json:"address,omitempty"`
	Copyright Text           `json:"copyright,omitempty"`
}

type BrandValue struct {
	Title Text `json:"title"`
	Body  Text `json:"body"`
}

type BrandContent struct {
	Tagline   Text         `json:"tagline" validate:"required"`
	Story     Text         `json:"story,omitempty"`
	HeroImage Text         `json:"hero_image,omitempty"`
	Values    []BrandValue `json:"values"`
}

// Response envelopes. Live ERP payloads, fallback tables and this service's
// responses all share these shapes.

type CollectionsEnvelope struct {
	Collections []Collection `json:"collections"`
}

type CollectionEnvelope struct {
	Collection Collection `json:"collection"`
}

type ProductEnvelope struct {
	Product Product `json:"product"`
}

type ProjectsEnvelope struct {
	Projects []Project `json:"projects"`
}

type ProjectEnvelope struct {
	Project Project `json:"project"`
}

type EventsEnvelope struct {
	Events []Event `json:"events"`
}

type EventEnvelope struct {
	Event Event `json:"event"`
}

type LegalPagesEnvelope struct {
	Pages []LegalPage `json:"pages"`
}

type LegalPageEnvelope struct {
	Page LegalPage `json:"page"`
}

type FooterEnvelope struct {
	Footer Footer `json:"footer"`
}

type BrandEnvelope struct {
	Brand BrandContent `json:"brand"`
}

type NewsletterRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Source string `json:"source,omitempty"`
}
