package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWebP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		src.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, ext, contentType, err := ToWebP(&in)
	require.NoError(t, err)
	assert.Equal(t, ".webp", ext)
	assert.Equal(t, "image/webp", contentType)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("RIFF")))
}

func TestToWebPRejectsGarbage(t *testing.T) {
	_, _, _, err := ToWebP(strings.NewReader("not an image"))
	assert.Error(t, err)
}
