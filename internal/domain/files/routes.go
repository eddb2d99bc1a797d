package files

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts the endpoints open to anonymous callers.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/files", h.UploadFree)
}

// RegisterProtectedRoutes mounts the endpoints requiring a credential.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/files", h.ListFiles)
	rg.POST("/files/claim", h.Claim)
	rg.POST("/share", h.CreateShareLink)
}

// RegisterRedirectRoute mounts the short-link redirect at the root.
func (h *Handler) RegisterRedirectRoute(r gin.IRouter) {
	r.GET("/s/:id", h.Redirect)
}
