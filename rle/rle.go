// Package rle implements the Utah RLE (Run-Length Encoded) image
// interchange format: a byte-oriented run-length coding over
// per-channel scanlines with an implicit scanline delimiter, optional
// background elision, an optional alpha channel, and optional
// colour-map/comment header sub-blocks.
//
// Decode and Encode follow the same shape as the stdlib image codecs
// (image/png, golang.org/x/image/tiff): Decode reads any valid
// stream into an image.Image, Encode writes one out. Read/Write
// operate on the package's own *Image type when callers need direct
// access to the background/alpha semantics Decode's generic
// image.Image return type can't carry.
package rle

import (
	"bufio"
	"image"
	"io"
)

func init() {
	// Detect either byte order of the magic so image.Decode and
	// image.DecodeConfig can identify Utah RLE streams regardless of
	// which endianness produced them.
	image.RegisterFormat("rle", string([]byte{magicLE0, magicLE1}), Decode, DecodeConfig)
	image.RegisterFormat("rle", string([]byte{magicBE0, magicBE1}), Decode, DecodeConfig)
}

// Validate checks a Header against the format's invariants (§3)
// without reading or writing any pixel data.
func Validate(h *Header) error {
	return h.Validate()
}

// Decode reads a Utah RLE stream and returns it as an image.Image,
// satisfying the image.Decode registry (§6 "read").
func Decode(r io.Reader) (image.Image, error) {
	return Read(r)
}

// DecodeConfig reads just enough of a Utah RLE stream to report its
// dimensions and colour model, without decoding the opcode stream.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, _, err := ReadHeader(bufferedReader(r))
	if err != nil {
		return image.Config{}, err
	}
	img := &Image{Header: *h, Channels: h.Channels()}
	return image.Config{
		ColorModel: img.ColorModel(),
		Width:      int(h.XLen),
		Height:     int(h.YLen),
	}, nil
}

// Encode writes m to w as a Utah RLE stream using BGSaveAll (every
// pixel encoded explicitly), satisfying the generic image.Image
// encoder signature used throughout golang.org/x/image (e.g.
// tiff.Encode). Callers that need background elision or an explicit
// BackgroundMode should call Write directly with an *Image.
func Encode(w io.Writer, m image.Image) error {
	img, err := fromImage(m)
	if err != nil {
		return err
	}
	return Write(w, img, BGSaveAll)
}

// fromImage converts an arbitrary image.Image into an *Image with no
// declared background and, when the source has any non-opaque pixel,
// an alpha channel. This is a one-way lossy adapter for Encode/
// image.RegisterFormat interop; callers that already have pixel
// bytes should build an *Image (or use WriteRGB) directly instead.
func fromImage(m image.Image) (*Image, error) {
	if img, ok := m.(*Image); ok {
		return img, nil
	}

	b := m.Bounds()
	w, ht := b.Dx(), b.Dy()
	if w <= 0 || ht <= 0 {
		return nil, newError(DimTooLarge, "image has empty bounds")
	}

	alpha := false
	for y := b.Min.Y; y < b.Max.Y && !alpha; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := m.At(x, y).RGBA()
			if a != 0xFFFF {
				alpha = true
				break
			}
		}
	}

	h := &Header{
		XLen:      uint16(w),
		YLen:      uint16(ht),
		NColors:   3,
		PixelBits: 8,
		Flags:     FlagNoBackground,
	}
	if alpha {
		h.Flags |= FlagAlpha
	}

	img, err := NewImage(h)
	if err != nil {
		return nil, err
	}

	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, a := m.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := img.Pixel(x, y)
			px[0] = byte(r >> 8)
			px[1] = byte(g >> 8)
			px[2] = byte(bl >> 8)
			if alpha {
				px[3] = byte(a >> 8)
			}
		}
	}
	return img, nil
}

// bufferedReader wraps r in a *bufio.Reader unless it already is one,
// so header and opcode reads don't each cost a syscall.
func bufferedReader(r io.Reader) io.Reader {
	if _, ok := r.(*bufio.Reader); ok {
		return r
	}
	return bufio.NewReader(r)
}
