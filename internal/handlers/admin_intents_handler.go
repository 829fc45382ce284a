// Admin Handlers - settlement queue inspection and retry
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"mixpool-backend/internal/dto"
	"mixpool-backend/internal/models"
	"mixpool-backend/internal/services"
	"mixpool-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminIntentsHandler exposes the transfer intent queue to operators
type AdminIntentsHandler struct {
	queue      services.IntentQueue
	dispatcher *services.SettlementDispatcher
	push       *services.WebSocketPushService
}

// NewAdminIntentsHandler creates a new AdminIntentsHandler instance
func NewAdminIntentsHandler(queue services.IntentQueue, dispatcher *services.SettlementDispatcher, push *services.WebSocketPushService) *AdminIntentsHandler {
	return &AdminIntentsHandler{
		queue:      queue,
		dispatcher: dispatcher,
		push:       push,
	}
}

// ListTransfersHandler lists transfer intents with optional status filter
// GET /api/v1/admin/transfers?status=failed&page=1&page_size=20
func (h *AdminIntentsHandler) ListTransfersHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := c.Query("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	pageSize = utils.Min(pageSize, 100)

	switch status {
	case "", string(models.IntentStatusPending), string(models.IntentStatusDispatched), string(models.IntentStatusFailed):
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid status filter: must be pending, dispatched or failed",
			"code":  "INVALID_STATUS",
		})
		return
	}

	intents, total, err := h.queue.List(c.Request.Context(), status, page, pageSize)
	if err != nil {
		logrus.WithError(err).Error("Failed to list transfer intents")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list transfers",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	views := make([]dto.TransferIntentView, len(intents))
	for i := range intents {
		views[i] = transferIntentView(&intents[i])
	}

	c.JSON(http.StatusOK, dto.ListTransfersResponse{
		Transfers: views,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	})
}

// GetTransferHandler returns a single transfer intent
// GET /api/v1/admin/transfers/:id
func (h *AdminIntentsHandler) GetTransferHandler(c *gin.Context) {
	intent, err := h.queue.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Transfer intent not found",
			"code":  "INTENT_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, transferIntentView(intent))
}

// RetryTransferHandler requeues a failed intent and wakes the
// dispatcher. Only failed intents can be retried; pending ones are
// already in line and dispatched ones are done.
// POST /api/v1/admin/transfers/:id/retry
func (h *AdminIntentsHandler) RetryTransferHandler(c *gin.Context) {
	id := c.Param("id")

	if err := h.dispatcher.Retry(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"code":  "RETRY_REJECTED",
		})
		return
	}

	logrus.WithField("intent_id", id).Info("Transfer intent requeued by admin")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
		"status":  string(models.IntentStatusPending),
	})
}

// WSConnectionsHandler reports the live websocket connections
// GET /api/v1/admin/ws/connections
func (h *AdminIntentsHandler) WSConnectionsHandler(c *gin.Context) {
	connections := h.push.ConnectionsSnapshot()

	c.JSON(http.StatusOK, gin.H{
		"connections": connections,
		"total":       len(connections),
	})
}

// transferIntentView maps a queue row to its API shape
func transferIntentView(intent *models.TransferIntent) dto.TransferIntentView {
	view := dto.TransferIntentView{
		ID:           intent.ID,
		WithdrawalID: intent.WithdrawalID,
		Kind:         intent.Kind,
		Recipient:    intent.Recipient,
		Amount:       intent.Amount,
		Status:       string(intent.Status),
		Attempts:     intent.Attempts,
		LastError:    intent.LastError,
		CreatedAt:    intent.CreatedAt.UTC().Format(time.RFC3339),
	}
	if intent.DispatchedAt != nil {
		view.DispatchedAt = intent.DispatchedAt.UTC().Format(time.RFC3339)
	}
	return view
}
