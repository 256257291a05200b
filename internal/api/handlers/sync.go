package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"orcsync.io/hub/internal/api/middleware"
	"orcsync.io/hub/internal/metrics"
	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pipeline"
	"orcsync.io/hub/internal/pkg/logger"
)

// Push handles POST /push — a station delivers a batch of local changes.
// Validation is synchronous; application is not. The body is accepted with
// 202 and a task id, and /get-pending later confirms propagation.
func (s *Server) Push(c *gin.Context) {
	station, ok := middleware.StationFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or missing API Key."})
		return
	}

	var changes []pipeline.InboundChange
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Expected a list of change items."})
		return
	}

	perChange, valid := pipeline.ValidateBatch(s.reg, changes)
	if !valid {
		c.JSON(http.StatusBadRequest, perChange)
		return
	}

	if len(changes) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "No changes to process.",
		})
		return
	}

	jobID, err := s.enqueuer.EnqueueIngest(c.Request.Context(), station.ID, changes)
	if err != nil {
		logger.Error("queue pushed batch",
			zap.Int("station_id", station.ID),
			zap.Int("changes", len(changes)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to queue changes for processing."})
		return
	}

	metrics.PushBatches.Inc()
	metrics.PushChanges.Add(float64(len(changes)))
	logger.Info("pushed batch accepted",
		zap.Int("station_id", station.ID),
		zap.Int("changes", len(changes)),
		zap.Int64("task_id", jobID))

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": fmt.Sprintf("Accepted %d changes for processing.", len(changes)),
		"task_id": strconv.FormatInt(jobID, 10),
		"info":    "Changes are being processed in the background. Check /get-pending/ for confirmation.",
	})
}

// GetPending handles GET /get-pending — a station polls for the changes it
// still has to apply, plus the ids of its own events that every peer has
// acknowledged.
func (s *Server) GetPending(c *gin.Context) {
	station, ok := middleware.StationFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or missing API Key."})
		return
	}

	ctx := c.Request.Context()
	events, err := s.led.PendingEventsFor(ctx, station.ID)
	if err != nil {
		logger.Error("load pending events", zap.Int("station_id", station.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load pending changes."})
		return
	}

	pending := s.renderPending(ctx, events)

	ackIDs, err := s.led.FullyAcknowledgedEventIDs(ctx, station.ID)
	if err != nil {
		logger.Error("load acknowledged events", zap.Int("station_id", station.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load acknowledged events."})
		return
	}
	acknowledged := make([]string, len(ackIDs))
	for i, id := range ackIDs {
		acknowledged[i] = id.String()
	}

	// Bookkeeping only; the poll response does not wait on it.
	stationID := station.ID
	if err := s.pools.SubmitDetached("general", func(ctx context.Context) {
		if err := s.led.TouchLastSeen(ctx, stationID); err != nil {
			logger.Warn("touch last_seen", zap.Int("station_id", stationID), zap.Error(err))
		}
	}); err != nil {
		logger.Warn("submit last_seen touch", zap.Int("station_id", stationID), zap.Error(err))
	}

	metrics.PendingPolls.Inc()
	metrics.PendingEventsServed.Add(float64(len(pending)))

	c.JSON(http.StatusOK, gin.H{
		"pending_changes":     pending,
		"acknowledged_events": acknowledged,
	})
}

// renderPending serializes pending events through the snapshot pool while
// keeping the ledger's oldest-first order. Each slot is written by exactly
// one task; the buffered channel lets stragglers finish after a cancelled
// poll without blocking a pool worker.
func (s *Server) renderPending(ctx context.Context, events []model.ChangeEvent) []pipeline.OutboundChange {
	out := make([]pipeline.OutboundChange, len(events))
	if len(events) == 0 {
		return out
	}

	done := make(chan struct{}, len(events))
	for i := range events {
		ev := &events[i]
		err := s.pools.Snapshot.Submit(ctx, func(ctx context.Context) {
			out[i] = s.serializer.Serialize(ctx, ev)
			done <- struct{}{}
		})
		if err != nil {
			// Pool refused the task (shutdown or cancelled request):
			// serialize inline so the slot is still filled.
			out[i] = s.serializer.Serialize(ctx, ev)
			done <- struct{}{}
		}
	}

	for range events {
		select {
		case <-done:
		case <-ctx.Done():
			// Queued tasks are skipped once the request context is
			// cancelled and will never signal; the caller is gone anyway.
			return out
		}
	}
	return out
}

// acknowledgeRequest is the body of POST /acknowledge. The pointer
// distinguishes a missing field from an empty list.
type acknowledgeRequest struct {
	AcknowledgedEvents *[]string `json:"acknowledged_events"`
}

// Acknowledge handles POST /acknowledge — a station confirms the events it
// has applied locally. Only the caller's own pending rows flip; the count
// in the response is the number actually updated.
func (s *Server) Acknowledge(c *gin.Context) {
	station, ok := middleware.StationFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or missing API Key."})
		return
	}

	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Malformed request."})
		return
	}
	if req.AcknowledgedEvents == nil {
		c.JSON(http.StatusBadRequest, gin.H{"acknowledged_events": []string{"This field is required."}})
		return
	}
	raw := *req.AcknowledgedEvents
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"acknowledged_events": []string{"This list may not be empty."}})
		return
	}

	ids := make([]uuid.UUID, len(raw))
	itemErrors := map[string][]string{}
	for i, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			itemErrors[strconv.Itoa(i)] = []string{"Must be a valid UUID."}
			continue
		}
		ids[i] = id
	}
	if len(itemErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"acknowledged_events": itemErrors})
		return
	}

	updated, err := s.led.Acknowledge(c.Request.Context(), station.ID, ids)
	if err != nil {
		logger.Error("acknowledge events", zap.Int("station_id", station.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to record acknowledgements."})
		return
	}

	metrics.EventsAcknowledged.Add(float64(updated))
	logger.Info("events acknowledged",
		zap.Int("station_id", station.ID),
		zap.Int("requested", len(ids)),
		zap.Int64("updated", updated))

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("%d events acknowledged.", updated),
	})
}
