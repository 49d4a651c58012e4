package contact

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

const jpegQuality = 85

// prepareImage decodes a card photo, auto-orients it, downscales it so
// neither side exceeds maxSide, and re-encodes it as base64 JPEG for the
// vision call. Returns the final dimensions for token estimation.
func prepareImage(data []byte, maxSide int) (b64 string, width, height int, err error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if maxSide > 0 && (bounds.Dx() > maxSide || bounds.Dy() > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), bounds.Dx(), bounds.Dy(), nil
}
