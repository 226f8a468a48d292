package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medadhere/backend/pkg/logger"
)

// Event is a live notification pushed to subscribed clients.
type Event struct {
	Type      string      `json:"type"`
	PatientID string      `json:"patient_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

const (
	EventDoseLogged     = "dose_logged"
	EventDoseMissed     = "dose_missed"
	EventCaregiverAlert = "caregiver_alert"
)

// Hub fans events out to per-patient subscribers. Slow subscribers are
// skipped rather than blocking publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]bool),
	}
}

// Subscribe registers a listener for a patient's events. The returned
// cancel function must be called when the listener goes away.
func (h *Hub) Subscribe(patientID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[patientID] == nil {
		h.subs[patientID] = make(map[chan Event]bool)
	}
	h.subs[patientID][ch] = true
	h.mu.Unlock()

	logger.Debug("Event subscriber added", zap.String("patient_id", patientID))

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[patientID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, patientID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}

	return ch, cancel
}

// Publish delivers an event to the patient's subscribers. Defaults the
// timestamp when the caller leaves it zero.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.PatientID] {
		select {
		case ch <- event:
		default:
			logger.Warn("Dropping event for slow subscriber",
				zap.String("patient_id", event.PatientID),
				zap.String("type", event.Type),
			)
		}
	}
}

// SubscriberCount reports active listeners for a patient.
func (h *Hub) SubscriberCount(patientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[patientID])
}
