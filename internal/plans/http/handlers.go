package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stackpilot/stackpilot-backend/internal/auth"
	"github.com/stackpilot/stackpilot-backend/internal/ratelimit"
)

func (h *Handler) validateInput(c *gin.Context) {
	var req ideaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": "invalid request body"})
		return
	}

	valid, msg, err := h.gen.ValidateInput(c.Request.Context(), req.ProjectIdea, ratelimit.ClientIP(c.Request))
	if err != nil {
		status, body := errorBody(err)
		if status == http.StatusTooManyRequests {
			h.writeError(c, err)
			return
		}
		if status >= http.StatusInternalServerError {
			h.log.WithContext(c.Request.Context()).Error("idea classification failed", "error", err)
			status, msg = http.StatusInternalServerError, "Could not validate the idea right now, please try again."
		} else {
			msg, _ = body["details"].(string)
		}
		c.JSON(status, gin.H{"valid": false, "message": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid, "message": msg})
}

func (h *Handler) letAIDecide(c *gin.Context) {
	var req ideaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "details": "invalid request body"})
		return
	}

	structure, err := h.gen.Decide(c.Request.Context(), req.ProjectIdea, ratelimit.ClientIP(c.Request))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"projectStructure": structure,
		"metadata": gin.H{
			"generatedAt": time.Now().UTC().Format(time.RFC3339),
			"nodeCount":   len(structure.Nodes),
			"edgeCount":   len(structure.Edges),
		},
	})
}

func (h *Handler) fetchByID(c *gin.Context) {
	var req idReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "details": "invalid request body"})
		return
	}

	p, err := h.plans.GetByID(c.Request.Context(), req.ID, auth.UserFirebaseUID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                p.ID,
		"generated_content": p.Content,
		"project_idea":      p.IdeaText,
		"created_at":        p.CreatedAt,
	})
}

func (h *Handler) history(c *gin.Context) {
	list, err := h.plans.GetProjects(c.Request.Context(), auth.UserFirebaseUID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) deleteProject(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if err := h.plans.Delete(c.Request.Context(), id, auth.UserFirebaseUID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) generationStatus(c *gin.Context) {
	id := c.Param("id")
	st, err := h.gen.Status(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": st})
}

