package templates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for template management.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new templates handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers template routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	tpls := router.Group("/templates")
	{
		tpls.POST("", h.createTemplate)
		tpls.GET("", h.listTemplates)
		tpls.GET("/:id", h.getTemplate)
		tpls.PUT("/:id", h.updateTemplate)
		tpls.DELETE("/:id", h.deleteTemplate)
	}
}

// ownerID extracts the authenticated user id set by the auth middleware.
func ownerID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// createTemplate handles POST /api/v1/templates
func (h *Handler) createTemplate(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tpl, err := h.service.Create(c.Request.Context(), owner, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// listTemplates handles GET /api/v1/templates
func (h *Handler) listTemplates(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	tpls, err := h.service.List(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list templates failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": tpls})
}

// getTemplate handles GET /api/v1/templates/:id
func (h *Handler) getTemplate(c *gin.Context) {
	owner, id, ok := h.templateParams(c)
	if !ok {
		return
	}

	tpl, err := h.service.Get(c.Request.Context(), owner, id)
	if errors.Is(err, ErrTemplateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load template"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// updateTemplate handles PUT /api/v1/templates/:id
func (h *Handler) updateTemplate(c *gin.Context) {
	owner, id, ok := h.templateParams(c)
	if !ok {
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tpl, err := h.service.Update(c.Request.Context(), owner, id, &req)
	if errors.Is(err, ErrTemplateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// deleteTemplate handles DELETE /api/v1/templates/:id
func (h *Handler) deleteTemplate(c *gin.Context) {
	owner, id, ok := h.templateParams(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), owner, id); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete template"})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) templateParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return uuid.Nil, uuid.Nil, false
	}
	return owner, id, true
}
