package http

import "github.com/gin-gonic/gin"

// Register attaches plan routes. optional lets anonymous callers through with
// no uid; required rejects them with 401.
func (h *Handler) Register(rg gin.IRouter, optional, required gin.HandlerFunc) {
	rg.POST("/generate", optional, h.generate)
	rg.POST("/validate-input", h.validateInput)
	rg.POST("/let-ai-decide", h.letAIDecide)
	rg.POST("/fetch-project-with-id", optional, h.fetchByID)
	rg.GET("/fetch-project-for-history", required, h.history)
	rg.DELETE("/delete-project", required, h.deleteProject)
	rg.GET("/generation-status/:id", h.generationStatus)
}
