package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/adherence"
	"github.com/medadhere/backend/internal/events"
	"github.com/medadhere/backend/internal/metrics"
	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/pkg/logger"
)

type AdherenceHandler struct {
	engine *adherence.Engine
	hub    *events.Hub
}

func NewAdherenceHandler(engine *adherence.Engine, hub *events.Hub) *AdherenceHandler {
	return &AdherenceHandler{
		engine: engine,
		hub:    hub,
	}
}

// GetReport recomputes the report from the store on every call so it
// always reflects the latest persisted events.
func (h *AdherenceHandler) GetReport(c *fiber.Ctx) error {
	patientID := c.Params("patientId")
	days := c.QueryInt("days", 30)

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	began := time.Now()
	report, err := h.engine.GenerateReport(patientID, start, end)
	if err != nil {
		logger.Error("Failed to generate adherence report",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate report",
		})
	}
	metrics.AdherenceReportDuration.Observe(time.Since(began).Seconds())

	return c.JSON(report)
}

func (h *AdherenceHandler) GetStats(c *fiber.Ctx) error {
	patientID := c.Params("patientId")

	stats, err := h.engine.CurrentStats(patientID)
	if err != nil {
		logger.Error("Failed to compute adherence stats",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}

	return c.JSON(stats)
}

func (h *AdherenceHandler) GetMissedDoses(c *fiber.Ctx) error {
	patientID := c.Params("patientId")
	days := c.QueryInt("days", 7)

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	missed, err := h.engine.MissedDoses(patientID, start, end)
	if err != nil {
		logger.Error("Failed to list missed doses",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list missed doses",
		})
	}

	return c.JSON(fiber.Map{
		"patient_id":   patientID,
		"missed_doses": missed,
		"count":        len(missed),
	})
}

func (h *AdherenceHandler) SendAlert(c *fiber.Ctx) error {
	var req struct {
		PatientID        string `json:"patient_id"`
		CaregiverContact string `json:"caregiver_contact"`
		AlertType        string `json:"alert_type"`
		Message          string `json:"message"`
		Severity         string `json:"severity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.PatientID == "" || req.CaregiverContact == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "patient_id, caregiver_contact and message are required",
		})
	}
	patientID := req.PatientID

	alert := &models.CaregiverAlert{
		PatientID:        patientID,
		CaregiverContact: req.CaregiverContact,
		AlertType:        req.AlertType,
		Message:          req.Message,
		Severity:         req.Severity,
	}

	alertID, err := h.engine.SendCaregiverAlert(alert)
	if err != nil {
		logger.Error("Failed to send caregiver alert",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send alert",
		})
	}

	metrics.AlertsSent.WithLabelValues(alert.Severity).Inc()
	h.hub.Publish(events.Event{
		Type:      events.EventCaregiverAlert,
		PatientID: patientID,
		Payload:   alert,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"alert_id": alertID,
	})
}

func (h *AdherenceHandler) GetTrends(c *fiber.Ctx) error {
	patientID := c.Params("patientId")
	days := c.QueryInt("days", 90)

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	trends, err := h.engine.AnalyzeTrends(patientID, start, end)
	if err != nil {
		logger.Error("Failed to analyze adherence trends",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to analyze trends",
		})
	}

	return c.JSON(trends)
}

func (h *AdherenceHandler) GetRecentDoses(c *fiber.Ctx) error {
	patientID := c.Params("patientId")

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 500 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 500",
		})
	}

	doses, err := h.engine.RecentDoses(patientID, limit)
	if err != nil {
		logger.Error("Failed to list recent doses",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list doses",
		})
	}

	out := make([]fiber.Map, 0, len(doses))
	for _, d := range doses {
		entry := fiber.Map{
			"id":            d.ID,
			"patient_id":    d.PatientID,
			"medication_id": d.MedicationID,
			"status":        d.Status,
			"timestamp":     d.Timestamp.Format(time.RFC3339),
			"confidence":    d.Confidence,
		}
		if d.ScheduledTime != nil {
			entry["scheduled_time"] = d.ScheduledTime.Format(time.RFC3339)
		}
		out = append(out, entry)
	}

	return c.JSON(fiber.Map{
		"patient_id": patientID,
		"doses":      out,
		"count":      len(out),
	})
}
