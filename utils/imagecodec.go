package utils

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/askboard/askboard/config"
)

// ErrUnsupportedImage is returned when an upload cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("unsupported or corrupted image")

// EncodedImage is the result of re-encoding an upload for storage.
type EncodedImage struct {
	Data   []byte
	Format string // "jpeg" or "png"
	Ext    string // file extension including the dot
}

// ReencodeImage decodes an uploaded image and re-encodes it for storage as a
// size-control measure: sources with an alpha channel or palette are
// flattened onto white RGB first; JPEG sources are re-encoded as JPEG at the
// configured quality, everything else becomes optimized PNG.
func ReencodeImage(data []byte) (*EncodedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// image.Decode only knows registered formats; try GIF explicitly in
		// case the generic sniff failed on a malformed header.
		if g, gerr := gif.Decode(bytes.NewReader(data)); gerr == nil {
			img, format = g, "gif"
		} else {
			return nil, ErrUnsupportedImage
		}
	}

	flat := flattenToRGB(img)

	var buf bytes.Buffer
	if format == "jpeg" {
		quality := config.Get().JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 60
		}
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
		return &EncodedImage{Data: buf.Bytes(), Format: "jpeg", Ext: ".jpg"}, nil
	}

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, flat); err != nil {
		return nil, err
	}
	return &EncodedImage{Data: buf.Bytes(), Format: "png", Ext: ".png"}, nil
}

// flattenToRGB draws the source over a white background, discarding alpha
// and palette information.
func flattenToRGB(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}
