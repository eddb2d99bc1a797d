package paidupload

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the paid-upload endpoints. All of them require
// an authenticated caller.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	uploads := rg.Group("/uploads")
	{
		uploads.POST("/session", h.CreateSession)
		uploads.POST("/confirm-payment", h.ConfirmPayment)
		uploads.POST("/confirm", h.ConfirmUpload)
		uploads.POST("/refund", h.Refund)
		uploads.GET("/session/:sid", h.GetSession)
	}
}
