package rle

import (
	"image"
	"image/color"
)

// Image is the row-major, pixel-interleaved pixel store described in
// §3: xlen*ylen*channels bytes, channels = ncolors + (alpha ? 1 : 0).
// It implements image.Image so it slots into the stdlib image
// ecosystem the same way golang.org/x/image's format packages do.
type Image struct {
	Header   Header
	Pix      []byte
	Channels int
	// Endian is the byte order the stream should be (re-)written with.
	// Decode sets it from the source file's stamped magic (§9
	// "Endianness: detect per-file from magic; keep the stamp through
	// decode so re-encode can preserve it"); NewImage defaults to
	// LittleEndian, the recommended choice for new files (§4.2).
	Endian Endian
}

// NewImage allocates a buffer for h and applies the §3 pre-fill:
// background channel values (or zero, if none) for the colour planes,
// and 0xFF for the alpha plane when present. The pre-fill happens
// here, at allocation time, not during decode — a BG_OVERLAY stream
// never rewrites background pixels and relies on this.
func NewImage(h *Header) (*Image, error) {
	channels := h.Channels()
	n := int64(h.XLen) * int64(h.YLen) * int64(channels)
	pix, err := guardedAlloc(n)
	if err != nil {
		return nil, err
	}

	img := &Image{Header: *h, Pix: pix, Channels: channels}

	hasAlpha := h.HasAlpha()
	hasBG := h.HasBackground()
	if !hasBG && !hasAlpha {
		return img, nil
	}

	w, ht := int(h.XLen), int(h.YLen)
	for y := 0; y < ht; y++ {
		row := pix[y*w*channels : (y+1)*w*channels]
		for x := 0; x < w; x++ {
			px := row[x*channels : (x+1)*channels]
			if hasBG {
				copy(px[:h.NColors], h.Background)
			}
			if hasAlpha {
				px[channels-1] = 0xFF
			}
		}
	}
	return img, nil
}

// Pixel returns the channels-length slice of bytes for pixel (x, y).
// It does not check x against the width: a y past the last row
// panics, while an x past the row end returns bytes of a pixel on a
// later row. Callers stay within Bounds(), as with the image package.
func (img *Image) Pixel(x, y int) []byte {
	w := int(img.Header.XLen)
	i := (y*w + x) * img.Channels
	return img.Pix[i : i+img.Channels]
}

// RowIsBackground reports whether every pixel in row y has colour
// planes equal to the declared background. It is a no-op (returns
// false) when no background is declared.
func (img *Image) RowIsBackground(y int) bool {
	if !img.Header.HasBackground() {
		return false
	}
	w := int(img.Header.XLen)
	for x := 0; x < w; x++ {
		if !img.PixelIsBackground(x, y) {
			return false
		}
	}
	return true
}

// PixelIsBackground reports whether pixel (x, y)'s colour planes
// (not alpha) equal the declared background.
func (img *Image) PixelIsBackground(x, y int) bool {
	h := &img.Header
	if !h.HasBackground() {
		return false
	}
	px := img.Pixel(x, y)
	for c := 0; c < int(h.NColors); c++ {
		if px[c] != h.Background[c] {
			return false
		}
	}
	return true
}

// Bounds implements image.Image.
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(int(img.Header.XPos), int(img.Header.YPos),
		int(img.Header.XPos)+int(img.Header.XLen), int(img.Header.YPos)+int(img.Header.YLen))
}

// ColorModel implements image.Image.
func (img *Image) ColorModel() color.Model {
	if img.Header.HasAlpha() {
		return color.NRGBAModel
	}
	return color.RGBAModel
}

// At implements image.Image. Missing colour planes (ncolors < 3) take
// the value of plane 0, so a 1-channel Utah RLE image reads as
// grayscale widened to RGB(A).
func (img *Image) At(x, y int) color.Color {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		if img.Header.HasAlpha() {
			return color.NRGBA{}
		}
		return color.RGBA{}
	}
	px := img.Pixel(x-b.Min.X, y-b.Min.Y)
	nc := int(img.Header.NColors)

	get := func(i int) uint8 {
		if i < nc {
			return px[i]
		}
		if nc > 0 {
			return px[0]
		}
		return 0
	}

	if img.Header.HasAlpha() {
		return color.NRGBA{R: get(0), G: get(1), B: get(2), A: px[img.Channels-1]}
	}
	return color.RGBA{R: get(0), G: get(1), B: get(2), A: 0xFF}
}
