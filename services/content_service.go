package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/cache"
	"github.com/antonioqueb/ooak/clients"
	"github.com/antonioqueb/ooak/content"
	"github.com/antonioqueb/ooak/logger"
	"github.com/antonioqueb/ooak/models"
	aws_pkg "github.com/antonioqueb/ooak/pkg/aws"
	"go.uber.org/zap"
)

// ERP storefront content endpoints.
const (
	erpCollectionsPath = "/api/shop/collections"
	erpProductsPath    = "/api/shop/products"
	erpProjectsPath    = "/api/shop/projects"
	erpEventsPath      = "/api/shop/events"
	erpLegalPath       = "/api/shop/legal"
	erpFooterPath      = "/api/shop/footer"
	erpBrandPath       = "/api/shop/brand"
	erpNewsletterPath  = "/api/shop/newsletter"
)

// ContentSource tells where a content response came from.
type ContentSource string

const (
	FromCache    ContentSource = "cache"
	FromLive     ContentSource = "live"
	FromFallback ContentSource = "fallback"
)

// ERPClient is the part of clients.ERPClient the content reads use.
type ERPClient interface {
	ERPPoster
	GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error
}

type ContentService interface {
	Collections(ctx context.Context) ([]models.Collection, ContentSource, error)
	Collection(ctx context.Context, slug string) (models.Collection, ContentSource, error)
	Product(ctx context.Context, slug string) (models.Product, ContentSource, error)
	Projects(ctx context.Context) ([]models.Project, ContentSource, error)
	Project(ctx context.Context, slug string) (models.Project, ContentSource, error)
	Events(ctx context.Context) ([]models.Event, ContentSource, error)
	Event(ctx context.Context, slug string) (models.Event, ContentSource, error)
	LegalPages(ctx context.Context) ([]models.LegalPage, ContentSource, error)
	LegalPage(ctx context.Context, slug string) (models.LegalPage, ContentSource, error)
	Footer(ctx context.Context) (models.Footer, ContentSource, error)
	Brand(ctx context.Context) (models.BrandContent, ContentSource, error)
	Subscribe(ctx context.Context, req models.NewsletterRequest) error
	InvalidateCache(ctx context.Context) error
}

type contentService struct {
	erp      ERPClient
	cache    cache.ContentCache
	fallback *content.Tables
	norm     *content.Normalizer
	metrics  aws_pkg.Recorder
	logger   *zap.Logger
}

// NewContentService builds the read-through content layer. A nil cache disables caching.
func NewContentService(
	erp ERPClient,
	contentCache cache.ContentCache,
	fallback *content.Tables,
	norm *content.Normalizer,
	metrics aws_pkg.Recorder,
	logger *zap.Logger,
) ContentService {
	if contentCache == nil {
		contentCache = cache.NoopCache{}
	}
	return &contentService{
		erp:      erp,
		cache:    contentCache,
		fallback: fallback,
		norm:     norm,
		metrics:  metrics,
		logger:   logger,
	}
}

// readThrough serves key from the cache, then the ERP, then the fallback table.
// ERP failures are logged and absorbed; a miss everywhere is NotFound.
func readThrough[T any](
	ctx context.Context,
	s *contentService,
	key string,
	live func(context.Context) (T, error),
	fallback func() (T, bool),
) (T, ContentSource, error) {
	var cached T
	if s.cache.Get(ctx, key, &cached) {
		aws_pkg.CountAsync(s.metrics, aws_pkg.MetricContentCacheHits, map[string]string{"Key": cacheKind(key)})
		return cached, FromCache, nil
	}

	v, err := live(ctx)
	if err == nil {
		s.cache.SetAsync(key, v)
		return v, FromLive, nil
	}

	log := logger.For(ctx, s.logger).With(zap.String("key", key))
	if fb, ok := fallback(); ok {
		if clients.IsNotFound(err) {
			log.Debug("ERP has no such content, serving fallback")
		} else {
			log.Warn("ERP content unavailable, serving fallback", zap.Error(err))
		}
		aws_pkg.CountAsync(s.metrics, aws_pkg.MetricContentFallbacks, map[string]string{"Key": cacheKind(key)})
		return fb, FromFallback, nil
	}

	log.Info("Content not found", zap.Error(err))
	var zero T
	return zero, "", apperr.New(apperr.KindNotFound, "content not found", err)
}

// cacheKind strips the slug so metric dimensions stay bounded.
func cacheKind(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// getField fetches path and decodes its top-level field into out. A payload
// without the field is an error so the caller falls back.
func (s *contentService) getField(ctx context.Context, path, field string, out interface{}) error {
	var env map[string]json.RawMessage
	if err := s.erp.GetJSON(ctx, path, nil, &env); err != nil {
		return err
	}
	raw, ok := env[field]
	if !ok || len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return fmt.Errorf("erp %s: response has no %q", path, field)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("erp %s: decode %q: %w", path, field, err)
	}
	return nil
}

func slugPath(base, slug string) string {
	return base + "/" + url.PathEscape(slug)
}

func (s *contentService) Collections(ctx context.Context) ([]models.Collection, ContentSource, error) {
	return readThrough(ctx, s, "collections",
		func(ctx context.Context) ([]models.Collection, error) {
			var in []models.Collection
			if err := s.getField(ctx, erpCollectionsPath, "collections", &in); err != nil {
				return nil, err
			}
			return s.norm.Collections(in), nil
		},
		func() ([]models.Collection, bool) { return s.fallback.Collections, true },
	)
}

func (s *contentService) Collection(ctx context.Context, slug string) (models.Collection, ContentSource, error) {
	slug = content.NormalizeSlug(slug)
	if slug == "" {
		return models.Collection{}, "", apperr.InvalidInput("slug is required")
	}
	return readThrough(ctx, s, "collection:"+slug,
		func(ctx context.Context) (models.Collection, error) {
			var in models.Collection
			if err := s.getField(ctx, slugPath(erpCollectionsPath, slug), "collection", &in); err != nil {
				return in, err
			}
			return s.norm.Collection(in)
		},
		func() (models.Collection, bool) { return s.fallback.Collection(slug) },
	)
}

func (s *contentService) Product(ctx context.Context, slug string) (models.Product, ContentSource, error) {
	slug = content.NormalizeSlug(slug)
	if slug == "" {
		return models.Product{}, "", apperr.InvalidInput("slug is required")
	}
	return readThrough(ctx, s, "product:"+slug,
		func(ctx context.Context) (models.Product, error) {
			var in models.Product
			if err := s.getField(ctx, slugPath(erpProductsPath, slug), "product", &in); err != nil {
				return in, err
			}
			return s.norm.Product(in)
		},
		func() (models.Product, bool) { return s.fallback.Product(slug) },
	)
}

func (s *contentService) Projects(ctx context.Context) ([]models.Project, ContentSource, error) {
	return readThrough(ctx, s, "projects",
		func(ctx context.Context) ([]models.Project, error) {
			var in []models.Project
			if err := s.getField(ctx, erpProjectsPath, "projects", &in); err != nil {
				return nil, err
			}
			return s.norm.Projects(in), nil
		},
		func() ([]models.Project, bool) { return s.fallback.Projects, true },
	)
}

func (s *contentService) Project(ctx context.Context, slug string) (models.Project, ContentSource, error) {
	slug = content.NormalizeSlug(slug)
	if slug == "" {
		return models.Project{}, "", apperr.InvalidInput("slug is required")
	}
	return readThrough(ctx, s, "project:"+slug,
		func(ctx context.Context) (models.Project, error) {
			var in models.Project
			if err := s.getField(ctx, slugPath(erpProjectsPath, slug), "project", &in); err != nil {
				return in, err
			}
			return s.norm.Project(in)
		},
		func() (models.Project, bool) { return s.fallback.Project(slug) },
	)
}

func (s *contentService) Events(ctx context.Context) ([]models.Event, ContentSource, error) {
	return readThrough(ctx, s, "events",
		func(ctx context.Context) ([]models.Event, error) {
			var in []models.Event
			if err := s.getField(ctx, erpEventsPath, "events", &in); err != nil {
				return nil, err
			}
			return s.norm.Events(in), nil
		},
		func() ([]models.Event, bool) { return s.fallback.Events, true },
	)
}

func (s *contentService) Event(ctx context.Context, slug string) (models.Event, ContentSource, error) {
	slug = content.NormalizeSlug(slug)
	if slug == "" {
		return models.Event{}, "", apperr.InvalidInput("slug is required")
	}
	return readThrough(ctx, s, "event:"+slug,
		func(ctx context.Context) (models.Event, error) {
			var in models.Event
			if err := s.getField(ctx, slugPath(erpEventsPath, slug), "event", &in); err != nil {
				return in, err
			}
			return s.norm.Event(in)
		},
		func() (models.Event, bool) { return s.fallback.Event(slug) },
	)
}

func (s *contentService) LegalPages(ctx context.Context) ([]models.LegalPage, ContentSource, error) {
	return readThrough(ctx, s, "legal",
		func(ctx context.Context) ([]models.LegalPage, error) {
			var in []models.LegalPage
			if err := s.getField(ctx, erpLegalPath, "pages", &in); err != nil {
				return nil, err
			}
			return s.norm.LegalPages(in), nil
		},
		func() ([]models.LegalPage, bool) { return s.fallback.LegalPages, true },
	)
}

func (s *contentService) LegalPage(ctx context.Context, slug string) (models.LegalPage, ContentSource, error) {
	slug = content.NormalizeSlug(slug)
	if slug == "" {
		return models.LegalPage{}, "", apperr.InvalidInput("slug is required")
	}
	return readThrough(ctx, s, "legal-page:"+slug,
		func(ctx context.Context) (models.LegalPage, error) {
			var in models.LegalPage
			if err := s.getField(ctx, slugPath(erpLegalPath, slug), "page", &in); err != nil {
				return in, err
			}
			return s.norm.LegalPage(in)
		},
		func() (models.LegalPage, bool) { return s.fallback.LegalPage(slug) },
	)
}

func (s *contentService) Footer(ctx context.Context) (models.Footer, ContentSource, error) {
	return readThrough(ctx, s, "footer",
		func(ctx context.Context) (models.Footer, error) {
			var in models.Footer
			if err := s.getField(ctx, erpFooterPath, "footer", &in); err != nil {
				return in, err
			}
			return s.norm.Footer(in)
		},
		func() (models.Footer, bool) { return s.fallback.Footer, true },
	)
}

func (s *contentService) Brand(ctx context.Context) (models.BrandContent, ContentSource, error) {
	return readThrough(ctx, s, "brand",
		func(ctx context.Context) (models.BrandContent, error) {
			var in models.BrandContent
			if err := s.getField(ctx, erpBrandPath, "brand", &in); err != nil {
				return in, err
			}
			return s.norm.Brand(in)
		},
		func() (models.BrandContent, bool) { return s.fallback.Brand, true },
	)
}

// Subscribe forwards a newsletter signup. There is no fallback for writes.
func (s *contentService) Subscribe(ctx context.Context, req models.NewsletterRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Source == "" {
		req.Source = "website"
	}
	if err := s.erp.PostJSON(ctx, erpNewsletterPath, req, nil, nil); err != nil {
		logger.For(ctx, s.logger).Error("Newsletter subscription failed", zap.Error(err))
		return apperr.Upstream("newsletter subscription failed", err)
	}
	return nil
}

func (s *contentService) InvalidateCache(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return apperr.New(apperr.KindInternal, "cache invalidation failed", err)
	}
	return nil
}
