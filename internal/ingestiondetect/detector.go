package ingestiondetect

import (
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/vision"
	"github.com/medadhere/backend/pkg/logger"
)

// Detector scores medication-ingestion evidence in a still image. The
// heuristics stand in for an action-recognition model: facial landmarking,
// swallow detection and pill-to-mouth tracking are all out of scope.
type Detector struct {
	threshold float64
}

type Result struct {
	Ingested   bool     `json:"ingested"`
	Confidence float64  `json:"confidence"`
	Message    string   `json:"message"`
	Actions    []string `json:"detected_actions"`
}

func NewDetector(threshold float64) *Detector {
	return &Detector{threshold: threshold}
}

// Detect decodes a base64 image and scores it for ingestion actions.
func (d *Detector) Detect(imageB64, patientID, medicationID string) (*Result, error) {
	imageData, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return nil, fmt.Errorf("detect ingestion: invalid base64 image: %w", err)
	}

	img, err := vision.Preprocess(imageData)
	if err != nil {
		return nil, fmt.Errorf("detect ingestion: %w", err)
	}

	result := d.analyze(vision.Analyze(img))

	logger.Info("Ingestion detection completed",
		zap.String("patient_id", patientID),
		zap.String("medication_id", medicationID),
		zap.Bool("ingested", result.Ingested),
		zap.Float64("confidence", result.Confidence),
	)

	return result, nil
}

func (d *Detector) analyze(f vision.Features) *Result {
	confidence := 0.0
	actions := make([]string, 0)

	if f.Mean > 0.3 && f.StdDev > 0.1 {
		confidence += 0.3
		actions = append(actions, "face_detected")
	}
	if f.Variance > 0.01 {
		confidence += 0.4
		actions = append(actions, "mouth_activity")
	}
	if f.StdDev > 0.1 {
		confidence += 0.3
		actions = append(actions, "hand_motion")
	}

	result := &Result{
		Confidence: confidence,
		Actions:    actions,
	}

	if confidence >= d.threshold {
		result.Ingested = true
		result.Message = "Medication ingestion detected"
	} else {
		result.Message = "Ingestion not clearly detected"
	}

	return result
}
