package dose

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mediminder/mediminder-api/internal/model"
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
	doses := r.Group("/doses")
	{
		doses.GET("", h.ListDoses)
		doses.PATCH("/:id/status", h.SetDoseStatus)
	}
}

type listDosesQuery struct {
	MedID string `form:"medId"`
	From  string `form:"from" binding:"omitempty"`
	To    string `form:"to" binding:"omitempty"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=taken missed"`
}

func (h *Handler) ListDoses(c *gin.Context) {
	var q listDosesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid query parameters", err))
		return
	}

	from, err := parseTimeParam(q.From)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid from parameter", err))
		return
	}
	to, err := parseTimeParam(q.To)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid to parameter", err))
		return
	}

	httputil.RespondWithSuccess(c, h.service.Doses(c.Request.Context(), q.MedID, from, to))
}

func (h *Handler) SetDoseStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	dose, err := h.service.MarkDose(c.Request.Context(), c.Param("id"), model.DoseStatus(req.Status))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	if dose == nil {
		httputil.RespondWithError(c, apperrors.NotFound("dose", nil))
		return
	}
	httputil.RespondWithSuccess(c, dose)
}

// parseTimeParam accepts RFC3339 timestamps or bare dates.
func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
