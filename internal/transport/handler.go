package transport

import (
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"go-fitting-room/internal/config"
	apperrors "go-fitting-room/internal/errors"
	"go-fitting-room/internal/imaging"
	"go-fitting-room/internal/logger"
	"go-fitting-room/internal/service"
	"go-fitting-room/internal/watermark"
	"go-fitting-room/pkg/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	Version = "2.0.0"
	engine  = "Gemini 2.5 Flash Image"

	headerRequestID      = "X-Request-ID"
	headerOutcome        = "X-TryOn-Outcome"
	headerFallbackReason = "X-TryOn-Fallback-Reason"
)

// StatsProvider exposes in-process counters for /health
type StatsProvider interface {
	GetMetrics() map[string]interface{}
}

type handler struct {
	svc      service.TryOnService
	renderer *watermark.Renderer
	stats    StatsProvider
	cfg      *config.Config
}

// NewHandler builds the gin router. stats may be nil.
func NewHandler(svc service.TryOnService, renderer *watermark.Renderer, stats StatsProvider, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, renderer: renderer, stats: stats, cfg: cfg}

	r := gin.Default()

	// Add middleware
	r.Use(
		corsMiddleware(cfg.CORSAllowOrigins),
		requestID(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/", h.root)
	r.GET("/health", h.healthCheck)

	api := r.Group("/api/try-on")
	api.POST("/text", h.tryOnText)
	api.POST("/image", h.tryOnImage)
	api.POST("/background", h.changeBackground)
	api.POST("/url", h.tryOnURL)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, apperrors.NewNotFoundError("route not found: "+c.Request.URL.Path, nil))
	})

	return r
}

func (h *handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, models.RootResponse{
		Message:  "Virtual Fitting Room API",
		Status:   "running",
		Engine:   engine,
		Model:    h.svc.Model(),
		APIReady: h.svc.Ready(),
	})
}

func (h *handler) healthCheck(c *gin.Context) {
	resp := models.HealthResponse{
		Status:      "healthy",
		GeminiReady: h.svc.Ready(),
		Model:       h.svc.Model(),
		Version:     Version,
	}
	if h.stats != nil {
		resp.Stats = h.stats.GetMetrics()
	}
	c.JSON(http.StatusOK, resp)
}

// tryOnText handles person_image + clothing_description. The form may also
// carry "strength"; it is reserved and intentionally never read.
func (h *handler) tryOnText(c *gin.Context) {
	person, ok := h.readFile(c, "person_image")
	if !ok {
		return
	}
	description, ok := h.requireField(c, "clothing_description")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	h.logRequest(c, "text").WithField("description", description).Info("Processing try-on request")

	res, err := h.svc.TryOnText(ctx, person, description)
	h.finish(c, res, err)
}

// tryOnImage handles person_image + clothing_image with optional notes.
// "strength" is reserved, as for the text endpoint.
func (h *handler) tryOnImage(c *gin.Context) {
	person, ok := h.readFile(c, "person_image")
	if !ok {
		return
	}
	garment, ok := h.readFile(c, "clothing_image")
	if !ok {
		return
	}
	description := strings.TrimSpace(c.PostForm("description"))

	ctx, cancel := h.requestContext(c)
	defer cancel()

	h.logRequest(c, "image").WithField("description", description).Info("Processing try-on request")

	res, err := h.svc.TryOnImage(ctx, person, garment, description)
	h.finish(c, res, err)
}

func (h *handler) changeBackground(c *gin.Context) {
	person, ok := h.readFile(c, "person_image")
	if !ok {
		return
	}
	background, ok := h.requireField(c, "background_description")
	if !ok {
		return
	}
	cameraAngle := strings.TrimSpace(c.PostForm("camera_angle"))

	ctx, cancel := h.requestContext(c)
	defer cancel()

	h.logRequest(c, "background").WithFields(logrus.Fields{
		"background":   background,
		"camera_angle": cameraAngle,
	}).Info("Processing background change request")

	res, err := h.svc.ChangeBackground(ctx, person, background, cameraAngle)
	h.finish(c, res, err)
}

func (h *handler) tryOnURL(c *gin.Context) {
	person, ok := h.readFile(c, "person_image")
	if !ok {
		return
	}
	productURL, ok := h.requireField(c, "product_url")
	if !ok {
		return
	}
	description := strings.TrimSpace(c.PostForm("description"))

	ctx, cancel := h.requestContext(c)
	defer cancel()

	h.logRequest(c, "url").WithField("product_url", productURL).Info("Processing try-on by product URL")

	res, err := h.svc.TryOnURL(ctx, person, productURL, description)
	h.finish(c, res, err)
}

// requestContext bounds request-scoped work such as product page fetches.
// The model call itself is detached inside the service.
func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := logger.ContextWithRequestID(c.Request.Context(), c.GetString(headerRequestID))
	return context.WithTimeout(ctx, h.cfg.RequestTimeout)
}

func (h *handler) logRequest(c *gin.Context, mode string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"request_id": c.GetString(headerRequestID),
		"mode":       mode,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	})
}

func (h *handler) readFile(c *gin.Context, field string) ([]byte, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(c, apperrors.NewValidationError(field+" is required", nil))
			return nil, false
		}
		respondError(c, apperrors.NewDecodeError("failed to read multipart form", err))
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, apperrors.NewDecodeError("failed to open "+field, err))
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, apperrors.NewDecodeError("failed to read "+field, err))
		return nil, false
	}
	return data, true
}

func (h *handler) requireField(c *gin.Context, field string) (string, bool) {
	value := strings.TrimSpace(c.PostForm(field))
	if value == "" {
		respondError(c, apperrors.NewValidationError(field+" is required", nil))
		return "", false
	}
	return value, true
}

func (h *handler) finish(c *gin.Context, res *service.Result, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	h.renderResult(c, res)
}

// renderResult writes the generated image, or the original stamped with the
// fallback text. Both are 200; the outcome headers tell them apart.
func (h *handler) renderResult(c *gin.Context, res *service.Result) {
	var out image.Image
	if res.Generated() {
		out = res.Image
		c.Header(headerOutcome, "generated")
	} else {
		out = h.renderer.Apply(res.Original, res.FallbackText())
		c.Header(headerOutcome, "fallback")
		c.Header(headerFallbackReason, string(res.Reason))
	}

	data, err := imaging.EncodePNG(out)
	if err != nil {
		respondError(c, apperrors.NewInternalError("failed to encode result", err))
		return
	}

	logger.WithFields(logrus.Fields{
		"request_id":         c.GetString(headerRequestID),
		"outcome":            c.Writer.Header().Get(headerOutcome),
		"reason":             res.Reason,
		"processing_time_ms": res.Elapsed.Milliseconds(),
		"bytes":              len(data),
	}).Info("Try-on request completed")

	c.Header("Content-Disposition", "inline; filename=result.png")
	c.Data(http.StatusOK, "image/png", data)
}

// Middleware and helper functions
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders: []string{headerRequestID, headerOutcome, headerFallbackReason, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(headerRequestID, rid)
		c.Header(headerRequestID, rid)
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func respondError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)

	detail := err.Error()
	message := ""
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Detail()
		message = appErr.Message
	}

	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString(headerRequestID),
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:  http.StatusText(code),
		Detail: detail,
	})
}
