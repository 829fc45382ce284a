package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"mixpool-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades clients onto the event feed. The feed is
// unauthenticated: it only carries what the pool is willing to make
// public, and withdrawal events are already unlinkable from deposits.
type WebSocketHandler struct {
	push *services.WebSocketPushService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(push *services.WebSocketPushService) *WebSocketHandler {
	return &WebSocketHandler{
		push: push,
	}
}

// HandleWebSocketHandler upgrades the connection and subscribes it to
// the requested topics. No topics parameter means all topics.
// GET /ws?topics=deposits,withdrawals
func (h *WebSocketHandler) HandleWebSocketHandler(c *gin.Context) {
	var topics []string

	if raw := c.Query("topics"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			topic := strings.TrimSpace(part)
			if topic == "" {
				continue
			}
			if !isKnownTopic(topic) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("Unknown topic %q: valid topics are %s", topic, strings.Join(services.AllTopics, ", ")),
					"code":  "UNKNOWN_TOPIC",
				})
				return
			}
			topics = append(topics, topic)
		}
	}

	h.push.HandleWebSocket(c.Writer, c.Request, topics)
}

func isKnownTopic(topic string) bool {
	for _, known := range services.AllTopics {
		if topic == known {
			return true
		}
	}
	return false
}
