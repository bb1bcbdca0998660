package chat

import (
	"github.com/gin-gonic/gin"

	chatservice "github.com/mediminder/mediminder-api/internal/service/chat"
	apperrors "github.com/mediminder/mediminder-api/pkg/errors"
	"github.com/mediminder/mediminder-api/pkg/httputil"
)

type Handler struct {
	service *chatservice.Service
}

func NewHandler(service *chatservice.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Ask)
}

type askRequest struct {
	Question string `json:"question" binding:"required,min=3,max=500"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	answer, err := h.service.Ask(c.Request.Context(), req.Question)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			httputil.RespondWithError(c, appErr)
			return
		}
		httputil.RespondWithError(c, apperrors.Unavailable("chat is temporarily unavailable", err))
		return
	}
	httputil.RespondWithSuccess(c, askResponse{Answer: answer})
}
