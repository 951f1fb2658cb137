package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/batch"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/binding"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/dataset"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/layout"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/storage"
)

const downloadURLExpiry = 15 * time.Minute

// LayoutSource resolves one of the owner's stored templates into its layout.
// *templates.Service satisfies it.
type LayoutSource interface {
	Layout(ctx context.Context, ownerID, id uuid.UUID) (*layout.Layout, error)
}

// Handler handles HTTP requests for generation jobs.
type Handler struct {
	service *Service
	layouts LayoutSource
	hub     *Hub
	logger  *zap.Logger
}

// NewHandler creates a new generation handler.
func NewHandler(service *Service, layouts LayoutSource, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{service: service, layouts: layouts, hub: hub, logger: logger}
}

// RegisterRoutes registers generation job routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	jobs := router.Group("/jobs")
	{
		jobs.POST("", h.createJob)
		jobs.GET("", h.listJobs)
		jobs.GET("/:id", h.getJob)
		jobs.GET("/:id/report", h.getReport)
		jobs.GET("/:id/archive", h.downloadArchive)
		jobs.POST("/:id/cancel", h.cancelJob)
		jobs.GET("/:id/progress", h.streamProgress)
	}
}

// ownerID extracts the authenticated user id set by the auth middleware.
func ownerID(c *gin.Context) (string, bool) {
	raw, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, ok := raw.(string)
	return id, ok && id != ""
}

// createJob handles POST /api/v1/jobs. The request is a multipart form with a
// "dataset" file, a "bindings" JSON object mapping field ids to column names,
// and either a "template_id" or an inline "layout" JSON document.
func (h *Handler) createJob(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	l, templateID, err := h.resolveLayout(c, owner)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("dataset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dataset file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read dataset file"})
		return
	}
	defer file.Close()

	ds, err := dataset.Load(file, fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bindings := binding.BindingMap{}
	if raw := c.PostForm("bindings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &bindings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bindings: " + err.Error()})
			return
		}
	}

	job, err := h.service.Start(JobRequest{
		OwnerID:    owner,
		TemplateID: templateID,
		Layout:     l,
		Rows:       ds.Rows,
		Bindings:   bindings,
	})
	if err != nil {
		var tooLarge *batch.BatchTooLargeError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// resolveLayout picks the layout from a stored template or the inline field.
func (h *Handler) resolveLayout(c *gin.Context, owner string) (*layout.Layout, *uuid.UUID, error) {
	if raw := c.PostForm("template_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil, errors.New("invalid template_id")
		}
		ownerUUID, err := uuid.Parse(owner)
		if err != nil {
			return nil, nil, errors.New("invalid owner identity")
		}
		l, err := h.layouts.Layout(c.Request.Context(), ownerUUID, id)
		if err != nil {
			return nil, nil, err
		}
		return l, &id, nil
	}

	raw := c.PostForm("layout")
	if raw == "" {
		return nil, nil, errors.New("either template_id or layout is required")
	}
	l, err := layout.FromJSON([]byte(raw))
	if err != nil {
		return nil, nil, err
	}
	return l, nil, nil
}

// listJobs handles GET /api/v1/jobs
func (h *Handler) listJobs(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": h.service.List(owner)})
}

// getJob handles GET /api/v1/jobs/:id
func (h *Handler) getJob(c *gin.Context) {
	owner, jobID, ok := h.jobParams(c)
	if !ok {
		return
	}

	job, err := h.service.Get(owner, jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// getReport handles GET /api/v1/jobs/:id/report with the per-row outcome.
func (h *Handler) getReport(c *gin.Context) {
	owner, jobID, ok := h.jobParams(c)
	if !ok {
		return
	}

	job, err := h.service.Get(owner, jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if !job.Status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "job is still running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"total_rows": job.TotalRows,
		"succeeded":  job.Succeeded,
		"failed":     job.Failed,
		"rows":       job.RowResults,
	})
}

// downloadArchive handles GET /api/v1/jobs/:id/archive. When the storage
// backend can presign, the client is redirected; otherwise the archive is
// streamed directly.
func (h *Handler) downloadArchive(c *gin.Context) {
	owner, jobID, ok := h.jobParams(c)
	if !ok {
		return
	}

	url, err := h.service.ArchiveURL(c.Request.Context(), owner, jobID, downloadURLExpiry)
	switch {
	case err == nil:
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	case errors.Is(err, storage.ErrNotSupported):
		// Fall through to direct streaming.
	case errors.Is(err, ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	case errors.Is(err, ErrJobNotFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "job is still running"})
		return
	case errors.Is(err, ErrNoArchive):
		c.JSON(http.StatusGone, gin.H{"error": "job produced no archive"})
		return
	default:
		h.logger.Error("archive url failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch archive"})
		return
	}

	r, err := h.service.Archive(c.Request.Context(), owner, jobID)
	if err != nil {
		h.logger.Error("archive open failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch archive"})
		return
	}
	defer r.Close()

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="certificates_`+jobID.String()+`.zip"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		h.logger.Warn("archive stream interrupted", zap.Error(err))
	}
}

// cancelJob handles POST /api/v1/jobs/:id/cancel
func (h *Handler) cancelJob(c *gin.Context) {
	owner, jobID, ok := h.jobParams(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(owner, jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

// streamProgress handles GET /api/v1/jobs/:id/progress, upgrading to a
// WebSocket that receives ProgressMessage frames.
func (h *Handler) streamProgress(c *gin.Context) {
	owner, jobID, ok := h.jobParams(c)
	if !ok {
		return
	}

	// Send the current state immediately after subscribing so late joiners
	// do not wait for the next row to finish.
	job, err := h.service.Get(owner, jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	if err := h.hub.HandleConnection(c.Writer, c.Request, jobID); err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Publish(ProgressMessage{
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) jobParams(c *gin.Context) (string, uuid.UUID, bool) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return "", uuid.Nil, false
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return "", uuid.Nil, false
	}
	return owner, jobID, true
}
