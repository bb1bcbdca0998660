package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/mediminder/mediminder-api/internal/service/reminder"
	apperrors "github.com/mediminder/mediminder-api/pkg/errors"
	"github.com/mediminder/mediminder-api/pkg/httputil"
)

type Handler struct {
	service *reminder.Service
}

func NewHandler(service *reminder.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.POST("/reset", h.Reset)
	}
}

// Reset wipes all medications, doses and pending alerts.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"reset": true})
}
