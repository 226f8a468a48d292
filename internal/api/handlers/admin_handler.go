package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/pkg/logger"
)

// AdminStore is the subset of storage operations the admin surface needs.
type AdminStore interface {
	ClearAll() error
	UpsertPill(pill *models.PillRecord) error
}

type AdminHandler struct {
	store AdminStore
}

func NewAdminHandler(store AdminStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// ClearData wipes all stored events, schedules and alerts. Requires an
// explicit confirm flag, either as a query parameter or in the body.
func (h *AdminHandler) ClearData(c *fiber.Ctx) error {
	confirm := c.QueryBool("confirm")
	if !confirm && len(c.Body()) > 0 {
		var req struct {
			Confirm bool `json:"confirm"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		confirm = req.Confirm
	}
	if !confirm {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Confirmation required to clear data",
		})
	}

	if err := h.store.ClearAll(); err != nil {
		logger.Error("Failed to clear data", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear data",
		})
	}

	logger.Info("All patient data cleared")
	return c.JSON(fiber.Map{
		"cleared": true,
	})
}

// AddPill registers or updates an entry in the pill identification
// database.
func (h *AdminHandler) AddPill(c *fiber.Ctx) error {
	var req struct {
		Key          string `json:"key"`
		Name         string `json:"name"`
		Dosage       string `json:"dosage"`
		Shape        string `json:"shape"`
		Color        string `json:"color"`
		Imprint      string `json:"imprint"`
		Size         string `json:"size"`
		NDCNumber    string `json:"ndc_number"`
		Manufacturer string `json:"manufacturer"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Key == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "key and name are required",
		})
	}

	pill := &models.PillRecord{
		Key:          req.Key,
		Name:         req.Name,
		Dosage:       req.Dosage,
		Shape:        req.Shape,
		Color:        req.Color,
		Imprint:      req.Imprint,
		Size:         req.Size,
		NDCNumber:    req.NDCNumber,
		Manufacturer: req.Manufacturer,
	}
	if err := h.store.UpsertPill(pill); err != nil {
		logger.Error("Failed to upsert pill", zap.String("key", req.Key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store pill",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key": pill.Key,
	})
}
