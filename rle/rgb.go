package rle

import "io"

// ReadRGB decodes a Utah RLE stream into its raw, row-major,
// pixel-interleaved bytes (§6 "read"), for callers that want the
// pixel data without going through image.Image/color.Color widening.
// hasAlpha reports whether the last channel of each pixel is alpha.
func ReadRGB(source io.Reader) (pix []byte, w, h int, hasAlpha bool, comments []string, err error) {
	img, err := Read(source)
	if err != nil {
		return nil, 0, 0, false, nil, err
	}
	return img.Pix, int(img.Header.XLen), int(img.Header.YLen), img.Header.HasAlpha(), img.Header.Comments, nil
}

// WriteRGB packages raw row-major, pixel-interleaved pixel bytes into
// a Utah RLE stream (§6 "write"). pix must hold w*h*channels bytes,
// channels being 3 (RGB) or 4 (RGBA, alpha last) depending on alpha.
// bg, if non-nil, must hold 3 bytes and declares the background
// colour under mode; a nil bg writes NO_BACKGROUND regardless of mode.
func WriteRGB(sink io.Writer, pix []byte, w, h int, comments []string, bg []byte, alpha bool, mode BackgroundMode) error {
	hdr := &Header{
		XLen:      uint16(w),
		YLen:      uint16(h),
		NColors:   3,
		PixelBits: 8,
	}
	if alpha {
		hdr.Flags |= FlagAlpha
	}
	if bg == nil {
		hdr.Flags |= FlagNoBackground
	} else {
		hdr.Background = bg
	}
	if len(comments) > 0 {
		hdr.Flags |= FlagComment
		hdr.Comments = comments
	}

	channels := hdr.Channels()
	want := w * h * channels
	if len(pix) != want {
		return newError(PixelsTooLarge, "pix length does not match w*h*channels")
	}

	img := &Image{Header: *hdr, Pix: pix, Channels: channels}
	return Write(sink, img, mode)
}
