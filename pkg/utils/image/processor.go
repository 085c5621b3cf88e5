package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/chai2010/webp"
)

const (
	MaxImageSize = 5 * 1024 * 1024 // 5MB
	webpQuality  = 85
)

// ToWebP decodes a JPEG, PNG or WebP image and re-encodes it as lossy WebP.
// It returns the encoded bytes with their extension and content type.
func ToWebP(r io.Reader) (*bytes.Buffer, string, string, error) {
	img, _, err := image.Decode(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("could not decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: webpQuality}); err != nil {
		return nil, "", "", fmt.Errorf("could not encode image: %w", err)
	}

	return buf, ".webp", "image/webp", nil
}
