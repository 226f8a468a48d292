package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/drugdata"
	"github.com/medadhere/backend/internal/identification"
	"github.com/medadhere/backend/internal/metrics"
	"github.com/medadhere/backend/internal/ocr"
	"github.com/medadhere/backend/pkg/logger"
)

const maxLabelCandidates = 3

type PillHandler struct {
	identifier *identification.Identifier
	drugs      *drugdata.Client
}

func NewPillHandler(identifier *identification.Identifier, drugs *drugdata.Client) *PillHandler {
	return &PillHandler{
		identifier: identifier,
		drugs:      drugs,
	}
}

func (h *PillHandler) Identify(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Image file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not open image file",
		})
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read image file",
		})
	}

	threshold := c.QueryFloat("threshold", 0)

	result, err := h.identifier.Identify(imageData, threshold)
	if err != nil {
		metrics.IdentificationsTotal.WithLabelValues("error").Inc()
		logger.Error("Pill identification failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not analyze image",
		})
	}

	if result == nil {
		metrics.IdentificationsTotal.WithLabelValues("no_match").Inc()
		return c.JSON(fiber.Map{
			"identified": false,
			"message":    "No matching pill found",
		})
	}

	metrics.IdentificationsTotal.WithLabelValues("match").Inc()
	metrics.IdentificationConfidence.Observe(result.Confidence)

	return c.JSON(fiber.Map{
		"identified": true,
		"key":        result.Key,
		"pill":       result.PillInfo,
		"confidence": result.Confidence,
	})
}

func (h *PillHandler) GetDatabase(c *fiber.Ctx) error {
	pills, err := h.identifier.AllPills()
	if err != nil {
		logger.Error("Failed to list pill database", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list pill database",
		})
	}

	return c.JSON(fiber.Map{
		"pills": pills,
		"count": len(pills),
	})
}

func (h *PillHandler) Search(c *fiber.Ctx) error {
	criteria := make(map[string]string)
	for _, field := range []string{"name", "dosage", "shape", "color", "imprint", "manufacturer"} {
		if v := c.Query(field); v != "" {
			criteria[field] = v
		}
	}
	if len(criteria) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one search criterion is required",
		})
	}

	pills, err := h.identifier.Search(criteria)
	if err != nil {
		logger.Error("Pill search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Pill search failed",
		})
	}

	return c.JSON(fiber.Map{
		"pills": pills,
		"count": len(pills),
	})
}

func (h *PillHandler) Lookup(c *fiber.Ctx) error {
	if h.drugs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Drug database lookup is disabled",
		})
	}

	name := c.Query("name")
	imprint := c.Query("imprint")
	if name == "" && imprint == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name or imprint query parameter is required",
		})
	}

	var (
		results []drugdata.DrugRecord
		err     error
	)
	if name != "" {
		results, err = h.drugs.SearchByName(c.Context(), name)
	} else {
		results, err = h.drugs.SearchByImprint(c.Context(), imprint)
	}
	if err != nil {
		metrics.DrugLookups.WithLabelValues("external", "error").Inc()
		logger.Error("Drug lookup failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Drug database lookup failed",
		})
	}

	metrics.DrugLookups.WithLabelValues("external", "ok").Inc()
	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}

// ScanLabel extracts candidate drug names from OCR label text and looks
// the best candidates up in the external drug databases.
func (h *PillHandler) ScanLabel(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Text is required",
		})
	}

	candidates, err := ocr.ParseLabel(req.Text)
	if err != nil {
		logger.Error("Label parsing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not parse label text",
		})
	}

	candidateName := ""
	if len(candidates) > 0 {
		candidateName = candidates[0]
	}

	matches := make([]drugdata.DrugRecord, 0)
	if h.drugs != nil {
		for i, candidate := range candidates {
			if i >= maxLabelCandidates {
				break
			}
			results, err := h.drugs.SearchByName(c.Context(), candidate)
			if err != nil {
				logger.Warn("Label candidate lookup failed",
					zap.String("candidate", candidate),
					zap.Error(err),
				)
				continue
			}
			if len(results) > 0 {
				candidateName = candidate
				matches = results
				break
			}
		}
	}

	return c.JSON(fiber.Map{
		"candidate_name": candidateName,
		"candidates":     candidates,
		"matches":        matches,
	})
}
