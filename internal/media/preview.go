package media

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// PreviewMaxSize is the longest edge of a generated preview.
	PreviewMaxSize = 1080
	previewQuality = 70
)

// Preview returns a WebP copy of an image scaled to fit PreviewMaxSize.
// ok is false when data is not a decodable image or is already small enough.
func Preview(data []byte) (out []byte, ok bool, err error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, nil
	}
	b := src.Bounds()
	if b.Dx() <= PreviewMaxSize && b.Dy() <= PreviewMaxSize {
		return nil, false, nil
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resizeToFit(src, PreviewMaxSize, PreviewMaxSize), &webp.Options{Quality: previewQuality}); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
