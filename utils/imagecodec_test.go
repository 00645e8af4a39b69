package utils_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askboard/askboard/config"
	"github.com/askboard/askboard/utils"
)

func codecConfig() {
	config.Set(config.AppConfig{JWTSecret: "test-secret", JPEGQuality: 60})
}

func samplePNG(t *testing.T, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 50, B: 50, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestReencodePNGStaysPNG(t *testing.T) {
	codecConfig()

	out, err := utils.ReencodeImage(samplePNG(t, 255))
	require.NoError(t, err)
	assert.Equal(t, "png", out.Format)
	assert.Equal(t, ".png", out.Ext)

	_, format, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestReencodeJPEGStaysJPEG(t *testing.T) {
	codecConfig()

	out, err := utils.ReencodeImage(sampleJPEG(t))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", out.Format)
	assert.Equal(t, ".jpg", out.Ext)

	_, format, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestReencodeFlattensAlpha(t *testing.T) {
	codecConfig()

	out, err := utils.ReencodeImage(samplePNG(t, 0))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)

	// fully transparent source lands on the white background
	r, g, b, _ := decoded.At(0, 0).RGBA()
	assert.EqualValues(t, 0xffff, r)
	assert.EqualValues(t, 0xffff, g)
	assert.EqualValues(t, 0xffff, b)
}

func TestReencodeRejectsGarbage(t *testing.T) {
	codecConfig()

	_, err := utils.ReencodeImage([]byte("definitely not an image"))
	assert.ErrorIs(t, err, utils.ErrUnsupportedImage)

	_, err = utils.ReencodeImage(nil)
	assert.ErrorIs(t, err, utils.ErrUnsupportedImage)
}
