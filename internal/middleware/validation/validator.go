package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

type Config struct {
	MaxBodySize         int
	MaxReportDays       int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 10 * 1024 * 1024
	}
	if cfg.MaxReportDays == 0 {
		cfg.MaxReportDays = 365
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}

			if len(c.Body()) > cfg.MaxBodySize {
				cfg.Logger.Warn("Oversized request body rejected",
					zap.String("ip", c.IP()),
					zap.String("path", c.Path()),
					zap.Int("size", len(c.Body())),
				)
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Request body exceeds maximum size",
				})
			}
		}

		if pid := patientIDFromPath(c.Path()); pid != "" && !IsValidPatientID(pid) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid patient ID format",
			})
		}

		if days := c.Query("days"); days != "" {
			n, err := strconv.Atoi(days)
			if err != nil || n < 1 || n > cfg.MaxReportDays {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Days must be between 1 and " + strconv.Itoa(cfg.MaxReportDays),
				})
			}
		}

		return c.Next()
	}
}

// IsValidPatientID accepts short alphanumeric identifiers with dashes and
// underscores.
func IsValidPatientID(id string) bool {
	return patientIDPattern.MatchString(id)
}

// Path segments whose following segment is a patient identifier.
var patientIDPrefixes = map[string]bool{
	"report": true, "stats": true, "missed-doses": true,
	"trends": true, "doses": true, "schedule": true, "events": true,
}

// patientIDFromPath pulls the patient identifier out of routes shaped like
// /adherence/report/{id} and /medications/schedule/{id}. Middleware runs
// before route matching, so named params are not available here.
func patientIDFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if i+1 >= len(segments) {
			break
		}
		if patientIDPrefixes[seg] {
			return segments[i+1]
		}
	}
	return ""
}
