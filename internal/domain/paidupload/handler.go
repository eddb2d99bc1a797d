package paidupload

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"permadrop/internal/pkg/response"
)

type Handler struct {
	service *Service
	log     *zap.SugaredLogger
}

func NewHandler(service *Service, log *zap.SugaredLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	quote, err := h.service.CreateSession(c.Request.Context(), c.GetInt64("user_id"), req.FileName, req.SizeBytes, req.MimeType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, quote)
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	conf, err := h.service.ConfirmPayment(c.Request.Context(), req.SessionID, c.GetInt64("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, conf)
}

func (h *Handler) ConfirmUpload(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "session_id is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "file is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "cannot read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", "cannot read file")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	result, err := h.service.ConfirmUpload(c.Request.Context(), c.GetInt64("user_id"), sessionID, data, fileHeader.Filename, mimeType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *Handler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	result, err := h.service.RefundExplicit(c.Request.Context(), c.GetInt64("user_id"), req.SessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *Handler) GetSession(c *gin.Context) {
	req, err := h.service.GetSession(c.Request.Context(), c.GetInt64("user_id"), c.Param("sid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, req)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var refunded *RefundedError
	if errors.As(err, &refunded) {
		response.ErrorWithDetails(c, http.StatusBadGateway, "UPLOAD_FAILED_REFUNDED", err.Error(), gin.H{
			"refund_id":                 refunded.RefundID,
			"manual_follow_up_required": refunded.ManualFollowUp,
		})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrUnauthorized):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, ErrSizeMismatch):
		response.Error(c, http.StatusBadRequest, "SIZE_MISMATCH", err.Error())
	case errors.Is(err, ErrInvalidSize):
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, ErrInsufficientBalance):
		response.Error(c, http.StatusBadGateway, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, ErrUpstreamFailure):
		response.Error(c, http.StatusBadGateway, "UPSTREAM_FAILURE", err.Error())
	default:
		h.log.Errorw("unexpected paid upload error", "err", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
