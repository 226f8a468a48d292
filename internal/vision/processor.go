package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
)

// Model input size shared by the identifier and the ingestion detector.
const targetSize = 224

// Features are normalized grayscale statistics of a preprocessed image.
type Features struct {
	Mean     float64
	StdDev   float64
	Variance float64
}

// Preprocess decodes a JPEG or PNG image and resizes it to the model input
// size.
func Preprocess(data []byte) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetSize, targetSize))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return dst, nil
}

// Analyze computes grayscale statistics over the image, with pixel values
// normalized to [0, 1].
func Analyze(img *image.RGBA) Features {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return Features{}
	}

	sum := 0.0
	values := make([]float64, 0, int(n))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels scaled to [0,1].
			v := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			values = append(values, v)
			sum += v
		}
	}

	mean := sum / n
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= n

	return Features{
		Mean:     mean,
		StdDev:   math.Sqrt(variance),
		Variance: variance,
	}
}
