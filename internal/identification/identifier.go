package identification

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/internal/vision"
	"github.com/medadhere/backend/pkg/logger"
)

// mockConfidence is the fixed score reported by the stand-in classifier.
// There is no trained model behind identification.
const mockConfidence = 0.85

type PillStore interface {
	GetPill(key string) (*models.PillRecord, error)
	ListPills() ([]models.PillRecord, error)
}

type Identifier struct {
	store     PillStore
	threshold float64
}

type Result struct {
	Key        string
	PillInfo   models.PillRecord
	Confidence float64
}

func NewIdentifier(store PillStore, threshold float64) *Identifier {
	return &Identifier{
		store:     store,
		threshold: threshold,
	}
}

// Identify runs the mock classifier against an uploaded image. It returns
// nil when no pill matches with sufficient confidence.
func (i *Identifier) Identify(imageData []byte, threshold float64) (*Result, error) {
	if threshold <= 0 {
		threshold = i.threshold
	}

	img, err := vision.Preprocess(imageData)
	if err != nil {
		return nil, fmt.Errorf("identify pill: %w", err)
	}

	features := vision.Analyze(img)
	key := classifyKey(features.Mean)

	if mockConfidence < threshold {
		logger.Debug("Identification below threshold",
			zap.Float64("confidence", mockConfidence),
			zap.Float64("threshold", threshold),
		)
		return nil, nil
	}

	pill, err := i.store.GetPill(key)
	if err != nil {
		return nil, fmt.Errorf("identify pill: %w", err)
	}
	if pill == nil {
		// Candidate class is not in the database; treat as no match.
		return nil, nil
	}

	logger.Info("Pill identified",
		zap.String("key", key),
		zap.Float64("brightness", features.Mean),
	)

	return &Result{
		Key:        key,
		PillInfo:   *pill,
		Confidence: mockConfidence,
	}, nil
}

// classifyKey buckets mean brightness into one of the well-known demo
// classes. A real model would replace this.
func classifyKey(mean float64) string {
	switch {
	case mean > 0.66:
		return "aspirin_325mg"
	case mean > 0.33:
		return "ibuprofen_200mg"
	default:
		return "acetaminophen_500mg"
	}
}

// AllPills returns every record in the identification database.
func (i *Identifier) AllPills() ([]models.PillRecord, error) {
	pills, err := i.store.ListPills()
	if err != nil {
		return nil, fmt.Errorf("list pills: %w", err)
	}
	return pills, nil
}

// Search filters the database by case-insensitive substring match on every
// given criterion; a pill must satisfy all of them.
func (i *Identifier) Search(criteria map[string]string) ([]models.PillRecord, error) {
	pills, err := i.store.ListPills()
	if err != nil {
		return nil, fmt.Errorf("search pills: %w", err)
	}

	results := make([]models.PillRecord, 0)
	for _, pill := range pills {
		if matchesCriteria(&pill, criteria) {
			results = append(results, pill)
		}
	}

	return results, nil
}

func matchesCriteria(pill *models.PillRecord, criteria map[string]string) bool {
	fields := map[string]string{
		"name":         pill.Name,
		"dosage":       pill.Dosage,
		"shape":        pill.Shape,
		"color":        pill.Color,
		"imprint":      pill.Imprint,
		"manufacturer": pill.Manufacturer,
	}

	for key, value := range criteria {
		field, ok := fields[key]
		if !ok {
			return false
		}
		if !strings.Contains(strings.ToLower(field), strings.ToLower(value)) {
			return false
		}
	}

	return true
}
