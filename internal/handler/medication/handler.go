package medication

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mediminder/mediminder-api/internal/service/reminder"
	apperrors "github.com/mediminder/mediminder-api/pkg/errors"
	"github.com/mediminder/mediminder-api/pkg/httputil"
)

// patternRe accepts 3 or 4 dash-separated non-negative counts, e.g. "1-0-1".
var patternRe = regexp.MustCompile(`^\d+(-\d+){2,3}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("dosepattern", func(fl validator.FieldLevel) bool {
			return patternRe.MatchString(fl.Field().String())
		})
	}
}

type Handler struct {
	service *reminder.Service
}

func NewHandler(service *reminder.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	medications := r.Group("/medications")
	{
		medications.POST("", h.AddMedication)
		medications.POST("/custom", h.AddCustomMedication)
		medications.GET("", h.ListMedications)
	}
}

type addMedicationRequest struct {
	Name    string `json:"name" binding:"required"`
	Pattern string `json:"pattern" binding:"required,dosepattern"`
	Days    int    `json:"days" binding:"omitempty,min=1,max=90"`
}

type addCustomMedicationRequest struct {
	Name  string   `json:"name" binding:"required"`
	Dates []string `json:"dates" binding:"required,min=1,dive,datetime=2006-01-02"`
	Times []string `json:"times" binding:"required,min=1,dive,datetime=15:04"`
}

func (h *Handler) AddMedication(c *gin.Context) {
	var req addMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	result, err := h.service.AddMedicationWithPattern(c.Request.Context(), req.Name, req.Pattern, req.Days)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) AddCustomMedication(c *gin.Context) {
	var req addCustomMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	result, err := h.service.AddMedicationWithExplicitTimes(c.Request.Context(), req.Name, req.Dates, req.Times)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) ListMedications(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Medications(c.Request.Context()))
}
