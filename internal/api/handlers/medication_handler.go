package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/events"
	"github.com/medadhere/backend/internal/ingestiondetect"
	"github.com/medadhere/backend/internal/metrics"
	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/internal/verification"
	"github.com/medadhere/backend/pkg/logger"
)

type MedicationHandler struct {
	verifier *verification.Verifier
	detector *ingestiondetect.Detector
	hub      *events.Hub
}

func NewMedicationHandler(verifier *verification.Verifier, detector *ingestiondetect.Detector, hub *events.Hub) *MedicationHandler {
	return &MedicationHandler{
		verifier: verifier,
		detector: detector,
		hub:      hub,
	}
}

func (h *MedicationHandler) CreateMedication(c *fiber.Ctx) error {
	var req struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		GenericName  string `json:"generic_name"`
		Dosage       string `json:"dosage"`
		Shape        string `json:"shape"`
		Color        string `json:"color"`
		Imprint      string `json:"imprint"`
		NDCNumber    string `json:"ndc_number"`
		Manufacturer string `json:"manufacturer"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}

	med := &models.Medication{
		ID:           req.ID,
		Name:         req.Name,
		GenericName:  req.GenericName,
		Dosage:       req.Dosage,
		Shape:        req.Shape,
		Color:        req.Color,
		Imprint:      req.Imprint,
		NDCNumber:    req.NDCNumber,
		Manufacturer: req.Manufacturer,
	}
	if med.ID == "" {
		med.ID = uuid.New().String()
	}

	if err := h.verifier.RegisterMedication(med); err != nil {
		logger.Error("Failed to register medication", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to register medication",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":   med.ID,
		"name": med.Name,
	})
}

func (h *MedicationHandler) VerifyPill(c *fiber.Ctx) error {
	var req struct {
		PatientID string                `json:"patient_id"`
		PillInfo  verification.PillInfo `json:"pill_info"`
		Timestamp string                `json:"timestamp"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.PatientID == "" || req.PillInfo.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "patient_id and pill_info.name are required",
		})
	}

	at := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "timestamp must be RFC3339",
			})
		}
		at = parsed
	}

	result, err := h.verifier.Verify(req.PatientID, req.PillInfo, at)
	if err != nil {
		logger.Error("Pill verification failed",
			zap.String("patient_id", req.PatientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Verification failed",
		})
	}

	return c.JSON(result)
}

func (h *MedicationHandler) ConfirmIngestion(c *fiber.Ctx) error {
	var req struct {
		PatientID    string `json:"patient_id"`
		MedicationID string `json:"medication_id"`
		ImageData    string `json:"image_data"`
		Timestamp    string `json:"timestamp"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.PatientID == "" || req.MedicationID == "" || req.ImageData == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "patient_id, medication_id and image_data are required",
		})
	}

	at := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "timestamp must be RFC3339",
			})
		}
		at = parsed
	}

	result, err := h.detector.Detect(req.ImageData, req.PatientID, req.MedicationID)
	if err != nil {
		logger.Error("Ingestion detection failed",
			zap.String("patient_id", req.PatientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not analyze image",
		})
	}

	if !result.Ingested {
		metrics.IngestionChecks.WithLabelValues("not_detected").Inc()
		return c.JSON(fiber.Map{
			"ingested":         false,
			"confidence":       result.Confidence,
			"message":          result.Message,
			"detected_actions": result.Actions,
		})
	}

	event, err := h.verifier.LogDoseTaken(req.PatientID, req.MedicationID, at, result.Confidence)
	if err != nil {
		logger.Error("Failed to log confirmed dose",
			zap.String("patient_id", req.PatientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log dose",
		})
	}

	metrics.IngestionChecks.WithLabelValues("detected").Inc()
	metrics.DosesLogged.WithLabelValues(event.Status).Inc()
	h.hub.Publish(events.Event{
		Type:      events.EventDoseLogged,
		PatientID: req.PatientID,
		Payload: fiber.Map{
			"dose_id":       event.ID,
			"medication_id": event.MedicationID,
			"confidence":    event.Confidence,
		},
	})

	return c.JSON(fiber.Map{
		"ingested":         true,
		"confidence":       result.Confidence,
		"message":          result.Message,
		"detected_actions": result.Actions,
		"dose_id":          event.ID,
	})
}

func (h *MedicationHandler) GetSchedule(c *fiber.Ctx) error {
	patientID := c.Params("patientId")

	schedules, err := h.verifier.Schedule(patientID)
	if err != nil {
		logger.Error("Failed to list schedule",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list schedule",
		})
	}

	return c.JSON(fiber.Map{
		"patient_id": patientID,
		"schedule":   schedules,
		"count":      len(schedules),
	})
}

func (h *MedicationHandler) AddScheduleEntry(c *fiber.Ctx) error {
	var req struct {
		PatientID      string   `json:"patient_id"`
		MedicationID   string   `json:"medication_id"`
		MedicationName string   `json:"medication_name"`
		Dosage         string   `json:"dosage"`
		Frequency      string   `json:"frequency"`
		Times          []string `json:"times"`
		Instructions   string   `json:"instructions"`
		Prescriber     string   `json:"prescriber"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.PatientID == "" || len(req.Times) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "patient_id and times are required",
		})
	}

	// A medication_id pulls name and dosage from the registry; otherwise
	// the entry is created from the literal fields.
	if req.MedicationID != "" {
		schedule, err := h.verifier.ScheduleFromMedication(req.PatientID, req.MedicationID, req.Times, req.Frequency)
		if err == verification.ErrMedicationNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Medication not found",
			})
		}
		if err != nil {
			logger.Error("Failed to add schedule entry", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to add schedule entry",
			})
		}
		return c.Status(fiber.StatusCreated).JSON(schedule)
	}

	if req.MedicationName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "medication_name or medication_id is required",
		})
	}

	schedule := &models.MedicationSchedule{
		PatientID:      req.PatientID,
		MedicationName: req.MedicationName,
		Dosage:         req.Dosage,
		Frequency:      req.Frequency,
		Times:          req.Times,
		Instructions:   req.Instructions,
		Prescriber:     req.Prescriber,
	}
	id, err := h.verifier.AddToSchedule(schedule)
	if err != nil {
		logger.Error("Failed to add schedule entry", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	schedule.ID = id

	return c.Status(fiber.StatusCreated).JSON(schedule)
}

func (h *MedicationHandler) RemoveScheduleEntry(c *fiber.Ctx) error {
	patientID := c.Params("patientId")
	scheduleID, err := c.ParamsInt("scheduleId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule ID",
		})
	}

	removed, err := h.verifier.RemoveFromSchedule(patientID, scheduleID)
	if err != nil {
		logger.Error("Failed to remove schedule entry",
			zap.String("patient_id", patientID),
			zap.Int("schedule_id", scheduleID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove schedule entry",
		})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Schedule entry not found",
		})
	}

	return c.JSON(fiber.Map{
		"removed":     true,
		"schedule_id": scheduleID,
	})
}
