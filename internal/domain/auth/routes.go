package auth

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/auth")
	{
		group.POST("/login", h.RequestLink)
		group.POST("/verify", h.Verify)
		group.GET("/verify", h.Verify)
	}
}
