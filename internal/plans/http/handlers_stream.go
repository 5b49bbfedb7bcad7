package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stackpilot/stackpilot-backend/internal/auth"
	"github.com/stackpilot/stackpilot-backend/internal/plans/service"
	"github.com/stackpilot/stackpilot-backend/internal/ratelimit"
)

const keepAliveInterval = 15 * time.Second

// generate streams a plan as Server-Sent Events. Input and rate-limit failures
// are plain JSON responses because they happen before the stream opens.
func (h *Handler) generate(c *gin.Context) {
	var req ideaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "details": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	g, err := h.gen.Prepare(ctx, req.ProjectIdea, req.Visibility, ratelimit.ClientIP(c.Request), auth.UserFirebaseUID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "details": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Header("X-Plan-Id", g.ID)
	c.Status(http.StatusOK)
	flusher.Flush()

	// Run owns the generation and persistence; this goroutine only writes.
	events := make(chan service.StreamEvent, 16)
	go func() {
		defer close(events)
		_ = h.gen.Run(ctx, g, func(e service.StreamEvent) error {
			select {
			case events <- e:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case e, open := <-events:
			if !open {
				return
			}
			writeEvent(c.Writer, e.Type, eventPayload(e))
			flusher.Flush()
		}
	}
}

func eventPayload(e service.StreamEvent) any {
	switch e.Type {
	case service.EventPartial, service.EventFinal:
		return gin.H{"object": e.Data}
	case service.EventError, service.EventPersistFailed:
		_, body := errorBody(e.Err)
		return body
	}
	return e.Data
}

func writeEvent(w gin.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"error":"internal_error"}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
