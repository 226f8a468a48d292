package handlers

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/events"
	"github.com/medadhere/backend/internal/metrics"
	"github.com/medadhere/backend/pkg/logger"
)

type EventsHandler struct {
	hub *events.Hub
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// HandleConnection streams a patient's live events over a WebSocket until
// the client disconnects.
func (h *EventsHandler) HandleConnection(c *websocket.Conn) {
	patientID := c.Params("patientId")
	if patientID == "" {
		c.WriteJSON(map[string]string{"error": "patient ID is required"})
		c.Close()
		return
	}

	logger.Info("Event stream connected", zap.String("patient_id", patientID))
	metrics.WebSocketConnections.Inc()

	ch, cancel := h.hub.Subscribe(patientID)

	defer func() {
		cancel()
		c.Close()
		metrics.WebSocketConnections.Dec()
		logger.Info("Event stream closed", zap.String("patient_id", patientID))
	}()

	// Read pump. Inbound messages are ignored; a read error means the
	// client went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := c.WriteJSON(event); err != nil {
				logger.Debug("Failed to write event",
					zap.String("patient_id", patientID),
					zap.Error(err),
				)
				return
			}
		case <-closed:
			return
		}
	}
}
