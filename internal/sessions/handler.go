package sessions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/extract"
	"contract-analyzer/internal/llm"
	"contract-analyzer/internal/shared/server/middleware"
	"contract-analyzer/internal/shared/server/respond"
)

const (
	defaultMaxUploadBytes = 20 << 20

	extractionFailedMessage = "Failed to extract text from the PDF. Please check the file's content."
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)
	rg.GET("/sessions/:id", h.get)
	rg.DELETE("/sessions/:id", h.delete)
	rg.POST("/sessions/:id/document", h.setDocument)
	rg.POST("/sessions/:id/analyze", h.analyze)
	rg.GET("/sessions/:id/analysis", h.analysis)
	rg.POST("/sessions/:id/chat", h.chat)
}

func (h *Handler) create(c *gin.Context) {
	sess, err := h.Svc.Create(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create session", nil)
		return
	}
	middleware.SetSessionID(c, sess.ID)
	respond.JSON(c, http.StatusCreated, gin.H{
		"sessionId": sess.ID,
		"expiresAt": sess.ExpiresAt,
	})
}

func (h *Handler) get(c *gin.Context) {
	id := sessionID(c)
	sess, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to fetch session")
		return
	}
	respond.OK(c, toResponse(sess))
}

func (h *Handler) delete(c *gin.Context) {
	id := sessionID(c)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to delete session")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) setDocument(c *gin.Context) {
	id := sessionID(c)
	ctx := c.Request.Context()

	var text string
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respond.Error(c, http.StatusRequestEntityTooLarge, "upload_too_large", "uploaded file exceeds the size limit", gin.H{
					"maxBytes": tooLarge.Limit,
				})
				return
			}
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		defer file.Close()

		text = extract.ExtractPDF(ctx, file)
		if text == "" {
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", extractionFailedMessage, gin.H{
				"fileName": fileHeader.Filename,
			})
			return
		}
	} else {
		var req setDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
			return
		}
		text = req.Text
	}

	sess, err := h.Svc.SetDocument(ctx, id, text)
	if err != nil {
		h.fail(c, err, "failed to store document")
		return
	}
	respond.OK(c, toResponse(sess))
}

func (h *Handler) analyze(c *gin.Context) {
	id := sessionID(c)
	ctx := analyses.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))

	record, err := h.Svc.Analyze(ctx, id)
	if err != nil {
		h.fail(c, err, "failed to analyze document")
		return
	}
	respond.OK(c, record)
}

func (h *Handler) analysis(c *gin.Context) {
	id := sessionID(c)
	sess, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to fetch analysis")
		return
	}
	if sess.Record == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "no analysis for this session", nil)
		return
	}
	respond.OK(c, sess.Record)
}

func (h *Handler) chat(c *gin.Context) {
	id := sessionID(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	answer, err := h.Svc.Ask(c.Request.Context(), id, req.Question)
	if err != nil {
		h.fail(c, err, "failed to answer question")
		return
	}
	respond.OK(c, chatResponse{Answer: answer})
}

func sessionID(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	middleware.SetSessionID(c, id)
	return id
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	var providerErr *llm.ProviderError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, ErrNoAnalysis):
		respond.Error(c, http.StatusConflict, "no_analysis", NoAnalysisMessage, nil)
	case errors.Is(err, ErrEmptyQuestion):
		respond.Error(c, http.StatusBadRequest, "validation_error", "question is required", nil)
	case errors.Is(err, ErrDocumentTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "document_too_large", err.Error(), nil)
	case errors.Is(err, analyses.ErrEmptyInput):
		respond.Error(c, http.StatusBadRequest, "empty_document", analyses.EmptyInputMessage, nil)
	case errors.As(err, &providerErr):
		respond.Error(c, http.StatusBadGateway, "provider_error", llm.DisplayText(err), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusServiceUnavailable, "cancelled", fallback, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
