package api

import (
	"encoding/json"
	"net/http"

	"keyboard-ai-backend/internal/services"
	"keyboard-ai-backend/pkg/logging"

	"github.com/gin-gonic/gin"
)

// ExecuteTool runs a text-transformation tool and streams the result back
// as server-sent events: {"chunk": "..."} per fragment, then exactly one
// {"done": true, "fullText": "..."} or {"error": "code"}.
// POST /api/tools/execute
func ExecuteTool(c *gin.Context) {
	var req services.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		startEventStream(c)
		writeEvent(c, gin.H{"error": services.CodeInvalidJSON})
		return
	}

	startEventStream(c)
	executionService.Execute(c.Request.Context(), req, func(ev services.Event) {
		switch {
		case ev.Err != "":
			writeEvent(c, gin.H{"error": ev.Err})
		case ev.Done:
			writeEvent(c, gin.H{"done": true, "fullText": ev.FullText})
		default:
			writeEvent(c, gin.H{"chunk": ev.Chunk})
		}
	})
}

// startEventStream switches the response to SSE. Errors are delivered as
// stream events from here on, the status is always 200.
func startEventStream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
}

// writeEvent writes one SSE data frame and flushes it immediately so the
// client sees fragments as they arrive.
func writeEvent(c *gin.Context, payload gin.H) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Errorf("Failed to marshal stream event: %v", err)
		return
	}
	if _, err := c.Writer.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		// Client went away; the pipeline notices via the request context
		return
	}
	c.Writer.Flush()
}
