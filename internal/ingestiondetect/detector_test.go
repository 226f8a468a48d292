package ingestiondetect

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/medadhere/backend/internal/vision"
)

func encodeB64PNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func flatFrame(t *testing.T, gray uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return encodeB64PNG(t, img)
}

func contrastFrame(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if (x/16+y/16)%2 == 0 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return encodeB64PNG(t, img)
}

func TestDetectFlatFrameNotIngested(t *testing.T) {
	detector := NewDetector(0.75)

	result, err := detector.Detect(flatFrame(t, 128), "patient-1", "med-1")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Ingested {
		t.Error("flat frame should not count as ingestion")
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", result.Confidence)
	}
	if len(result.Actions) != 0 {
		t.Errorf("actions = %v, want none", result.Actions)
	}
	if result.Message != "Ingestion not clearly detected" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestDetectHighContrastFrameIngested(t *testing.T) {
	detector := NewDetector(0.75)

	result, err := detector.Detect(contrastFrame(t), "patient-1", "med-1")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.Ingested {
		t.Fatalf("expected ingestion, got confidence %v", result.Confidence)
	}
	if math.Abs(result.Confidence-1.0) > 1e-9 {
		t.Errorf("confidence = %v, want 1.0", result.Confidence)
	}
	if result.Message != "Medication ingestion detected" {
		t.Errorf("message = %q", result.Message)
	}

	want := map[string]bool{"face_detected": true, "mouth_activity": true, "hand_motion": true}
	if len(result.Actions) != len(want) {
		t.Fatalf("actions = %v", result.Actions)
	}
	for _, a := range result.Actions {
		if !want[a] {
			t.Errorf("unexpected action %q", a)
		}
	}
}

func TestDetectRejectsInvalidBase64(t *testing.T) {
	detector := NewDetector(0.75)
	if _, err := detector.Detect("%%%not-base64%%%", "patient-1", "med-1"); err == nil {
		t.Fatal("expected base64 error")
	}
}

func TestDetectRejectsNonImagePayload(t *testing.T) {
	detector := NewDetector(0.75)
	payload := base64.StdEncoding.EncodeToString([]byte("just text"))
	if _, err := detector.Detect(payload, "patient-1", "med-1"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAnalyzeRuleCombinations(t *testing.T) {
	detector := NewDetector(0.75)

	tests := []struct {
		name           string
		features       vision.Features
		wantConfidence float64
		wantIngested   bool
	}{
		{"all signals", vision.Features{Mean: 0.5, StdDev: 0.3, Variance: 0.09}, 1.0, true},
		{"no signals", vision.Features{Mean: 0.2, StdDev: 0.05, Variance: 0.0025}, 0, false},
		{"variance only", vision.Features{Mean: 0.2, StdDev: 0.05, Variance: 0.02}, 0.4, false},
		{"dark but busy", vision.Features{Mean: 0.2, StdDev: 0.15, Variance: 0.0225}, 0.7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detector.analyze(tt.features)
			if math.Abs(result.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("confidence = %v, want %v", result.Confidence, tt.wantConfidence)
			}
			if result.Ingested != tt.wantIngested {
				t.Errorf("ingested = %v, want %v", result.Ingested, tt.wantIngested)
			}
		})
	}
}
