package files

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"permadrop/internal/domain/ledger"
	"permadrop/internal/pkg/response"
)

type Handler struct {
	service *Service
	log     *zap.SugaredLogger
}

func NewHandler(service *Service, log *zap.SugaredLogger) *Handler {
	return &Handler{service: service, log: log}
}

type claimRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

type shareRequest struct {
	URL string `json:"url" binding:"required"`
}

// UploadFree accepts anonymous callers: user_id is only present when
// the optional auth middleware validated a credential.
func (h *Handler) UploadFree(c *gin.Context) {
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

	var userID *int64
	if id := c.GetInt64("user_id"); id != 0 {
		userID = &id
	}

	record, err := h.service.UploadFree(c.Request.Context(), userID, data, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, record)
}

func (h *Handler) ListFiles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.service.ListFiles(c.Request.Context(), c.GetInt64("user_id"), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

func (h *Handler) Claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	linked, err := h.service.ClaimFiles(c.Request.Context(), c.GetInt64("user_id"), req.URLs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"linked": linked})
}

func (h *Handler) CreateShareLink(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	link, err := h.service.CreateShareLink(c.Request.Context(), c.GetInt64("user_id"), req.URL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, link)
}

func (h *Handler) Redirect(c *gin.Context) {
	url, err := h.service.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrNoURLs):
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, ErrFileTooLarge):
		response.Error(c, http.StatusBadRequest, "FILE_TOO_LARGE", err.Error())
	case errors.Is(err, ErrNotOwner):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		h.log.Errorw("file operation failed", "err", err)
		response.Error(c, http.StatusBadGateway, "UPSTREAM_FAILURE", err.Error())
	}
}
