package controllers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/models"
	"github.com/antonioqueb/ooak/services"
	"github.com/gin-gonic/gin"
)

// ContentSourceHeader reports whether a response came from cache, the ERP or the fallback tables.
const ContentSourceHeader = "X-Content-Source"

type ContentController struct {
	content    services.ContentService
	adminToken string
}

// NewContentController creates a ContentController. adminToken guards cache
// invalidation; the ERP calls it after publishing content.
func NewContentController(content services.ContentService, adminToken string) *ContentController {
	return &ContentController{content: content, adminToken: adminToken}
}

func respondContent(ctx *gin.Context, src services.ContentSource, body interface{}) {
	ctx.Header(ContentSourceHeader, string(src))
	ctx.JSON(http.StatusOK, body)
}

// ListCollections handles GET /api/collections
func (cc *ContentController) ListCollections(ctx *gin.Context) {
	v, src, err := cc.content.Collections(ctx.Request.Context())
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.CollectionsEnvelope{Collections: v})
}

// GetCollection handles GET /api/collections/:slug
func (cc *ContentController) GetCollection(ctx *gin.Context) {
	v, src, err := cc.content.Collection(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.CollectionEnvelope{Collection: v})
}

// GetProduct handles GET /api/products/:slug
func (cc *ContentController) GetProduct(ctx *gin.Context) {
	v, src, err := cc.content.Product(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.ProductEnvelope{Product: v})
}

func (cc *ContentController) ListProjects(ctx *gin.Context) {
	v, src, err := cc.content.Projects(ctx.Request.Context())
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.ProjectsEnvelope{Projects: v})
}

func (cc *ContentController) GetProject(ctx *gin.Context) {
	v, src, err := cc.content.Project(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.ProjectEnvelope{Project: v})
}

func (cc *ContentController) ListEvents(ctx *gin.Context) {
	v, src, err := cc.content.Events(ctx.Request.Context())
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.EventsEnvelope{Events: v})
}

func (cc *ContentController) GetEvent(ctx *gin.Context) {
	v, src, err := cc.content.Event(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.EventEnvelope{Event: v})
}

func (cc *ContentController) ListLegalPages(ctx *gin.Context) {
	v, src, err := cc.content.LegalPages(ctx.Request.Context())
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.LegalPagesEnvelope{Pages: v})
}

func (cc *ContentController) GetLegalPage(ctx *gin.Context) {
	v, src, err := cc.content.LegalPage(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.LegalPageEnvelope{Page: v})
}

func (cc *ContentController) GetFooter(ctx *gin.Context) {
	v, src, err := cc.content.Footer(ctx.Request.Context())
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.FooterEnvelope{Footer: v})
}

func (cc *ContentController) GetBrand(ctx *gin.Context) {
	v, src, err := cc.content.Brand(ctx.Request.Context())
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	respondContent(ctx, src, models.BrandEnvelope{Brand: v})
}

// Subscribe handles POST /api/newsletter
func (cc *ContentController) Subscribe(ctx *gin.Context) {
	var req models.NewsletterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}
	if err := cc.content.Subscribe(ctx.Request.Context(), req); err != nil {
		apperr.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"subscribed": true})
}

// InvalidateCache handles POST /api/content/invalidate
func (cc *ContentController) InvalidateCache(ctx *gin.Context) {
	token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	if cc.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cc.adminToken)) != 1 {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := cc.content.InvalidateCache(ctx.Request.Context()); err != nil {
		apperr.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invalidated": true})
}
