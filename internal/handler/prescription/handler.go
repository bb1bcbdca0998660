package prescription

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"

	"github.com/mediminder/mediminder-api/internal/service/extraction"
	apperrors "github.com/mediminder/mediminder-api/pkg/errors"
	"github.com/mediminder/mediminder-api/pkg/httputil"
)

type Handler struct {
	service *extraction.Service
}

func NewHandler(service *extraction.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.POST("/extract", h.Extract)
	}
}

type extractRequest struct {
	ImageBase64 string `json:"imageBase64"`
	Text        string `json:"text"`
}

// Extract runs the analysis pipeline on either an uploaded image or
// already-recognized text. Exactly one of the two inputs must be present.
func (h *Handler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if (req.ImageBase64 == "") == (req.Text == "") {
		httputil.RespondWithError(c, apperrors.BadRequest("provide exactly one of imageBase64 or text", nil))
		return
	}

	if req.Text != "" {
		result, err := h.service.ExtractFromText(c.Request.Context(), req.Text)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unavailable("extraction failed", err))
			return
		}
		httputil.RespondWithSuccess(c, result)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("imageBase64 is not valid base64", err))
		return
	}

	result, err := h.service.ExtractFromImage(c.Request.Context(), image)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unavailable("extraction failed", err))
		return
	}
	httputil.RespondWithSuccess(c, result)
}
