package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"LensInventory/internal/domain"
	"LensInventory/internal/platform"
	"LensInventory/internal/usecase"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

var errImageTooLarge = errors.New("image is too large")

type handler struct {
	listings      ListingGenerator
	platforms     *platform.Registry
	logger        *slog.Logger
	maxImageBytes int64
}

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type generateRequest struct {
	Analysis  *domain.ProductAnalysis `json:"analysis"`
	Platforms []string                `json:"platforms"`
}

func (h *handler) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "lens-inventory",
		"message": "Send a product picture to /analyze or an analysis to /listings.",
	})
}

func (h *handler) listPlatforms(c *gin.Context) {
	profiles := []platform.Profile{}
	if h.platforms != nil {
		profiles = h.platforms.Profiles()
	}
	c.JSON(http.StatusOK, gin.H{"platforms": profiles})
}

func (h *handler) analyze(c *gin.Context) {
	req := usecase.ImageRequest{
		RequestID: c.GetString(requestIDKey),
		ImageURL:  strings.TrimSpace(c.PostForm("image_url")),
		Condition: strings.TrimSpace(c.PostForm("condition")),
		Platforms: splitPlatforms(c.PostFormArray("platforms")),
	}

	image, err := h.readImage(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	req.Image = image

	result, err := h.listings.FromImage(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Analysis == nil {
		h.fail(c, &domain.MissingFieldError{Field: "analysis"})
		return
	}

	result, err := h.listings.FromAnalysis(c.Request.Context(), c.GetString(requestIDKey), *req.Analysis, splitPlatforms(req.Platforms))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) recent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.badRequest(c, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	items, err := h.listings.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []domain.GeneratedListing{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// readImage returns the uploaded picture, or nil when the form carries none.
func (h *handler) readImage(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if header.Size > h.maxImageBytes {
		return nil, errImageTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > h.maxImageBytes {
		return nil, errImageTooLarge
	}
	return data, nil
}

// fail maps service errors onto status codes.
func (h *handler) fail(c *gin.Context, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: c.GetString(requestIDKey)}

	var missing *domain.MissingFieldError
	switch {
	case errors.As(err, &missing):
		resp.Field = missing.Field
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, usecase.ErrNoImage):
		c.JSON(http.StatusBadRequest, resp)
	case usecase.IsUpstream(err):
		h.warn("upstream failure", "request_id", resp.RequestID, "error", err)
		c.JSON(http.StatusBadGateway, resp)
	default:
		h.warn("request failed", "request_id", resp.RequestID, "error", err)
		c.JSON(http.StatusInternalServerError, resp)
	}
}

func (h *handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), RequestID: c.GetString(requestIDKey)})
}

func (h *handler) warn(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, args...)
	}
}

// splitPlatforms accepts repeated values as well as comma-separated lists.
func splitPlatforms(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
