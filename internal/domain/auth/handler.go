package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"permadrop/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type requestLinkRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) RequestLink(c *gin.Context) {
	var req requestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.RequestLink(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "login link sent"})
}

func (h *Handler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "token is required")
			return
		}
		token = req.Token
	}

	signed, user, err := h.service.VerifyToken(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"token": signed, "user": user})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		response.Error(c, http.StatusBadRequest, "INVALID_EMAIL", ErrInvalidEmail.Error())
	case errors.Is(err, ErrInvalidToken):
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", ErrInvalidToken.Error())
	case errors.Is(err, ErrMailDelivery):
		response.Error(c, http.StatusBadGateway, "MAIL_DELIVERY_FAILED", ErrMailDelivery.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
	}
}
