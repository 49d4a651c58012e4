package contact

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"testing"
)

func TestPrepareImage_Downscale(t *testing.T) {
	b64, width, height, err := prepareImage(testPNG(t, 64, 48), 32)
	if err != nil {
		t.Fatalf("prepareImage failed: %v", err)
	}
	if width != 32 || height != 24 {
		t.Errorf("expected 32x24 after fit, got %dx%d", width, height)
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("encoded dimensions %dx%d, want 32x24", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPrepareImage_SmallImageKeptAsIs(t *testing.T) {
	_, width, height, err := prepareImage(testPNG(t, 30, 20), 32)
	if err != nil {
		t.Fatalf("prepareImage failed: %v", err)
	}
	if width != 30 || height != 20 {
		t.Errorf("small image must not be resized, got %dx%d", width, height)
	}
}

func TestPrepareImage_InvalidData(t *testing.T) {
	if _, _, _, err := prepareImage([]byte("garbage"), 32); err == nil {
		t.Error("expected error for undecodable data")
	}
}

func TestEstimateImageTokens(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          int
	}{
		{"single tile", 512, 512, 85 + 170},
		{"four tiles", 1024, 1024, 85 + 4*170},
		{"non-aligned", 513, 512, 85 + 2*170},
		{"zero size", 0, 0, 85},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateImageTokens(tc.width, tc.height)
			if got != tc.want {
				t.Errorf("EstimateImageTokens(%d, %d) = %d, want %d", tc.width, tc.height, got, tc.want)
			}
		})
	}
}
