package rle

import (
	"bytes"
	"testing"
)

func newRGBImage(t *testing.T, w, h int, bg []byte) *Image {
	t.Helper()
	hdr := &Header{XLen: uint16(w), YLen: uint16(h), NColors: 3, PixelBits: 8}
	if bg == nil {
		hdr.Flags |= FlagNoBackground
	} else {
		hdr.Background = bg
	}
	img, err := NewImage(hdr)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	return img
}

// TestEncodeOneByOneRGB is the byte-exact single-pixel case: one
// SET_COLOR/BYTE_DATA pair per channel, each padded to an even count,
// then EOF.
func TestEncodeOneByOneRGB(t *testing.T) {
	img := newRGBImage(t, 1, 1, nil)
	copy(img.Pixel(0, 0), []byte{10, 20, 30})

	var buf bytes.Buffer
	if err := Write(&buf, img, BGSaveAll); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Skip the header (15 fixed bytes + 1 NO_BACKGROUND pad byte).
	body := buf.Bytes()[16:]
	want := []byte{
		tagSetColor, 0, tagByteData, 0, 10, 0,
		tagSetColor, 1, tagByteData, 0, 20, 0,
		tagSetColor, 2, tagByteData, 0, 30, 0,
		tagEOF,
	}
	if !bytes.Equal(body, want) {
		t.Fatalf("opcode stream = % x, want % x", body, want)
	}
}

// TestEncodeSolidBackgroundElision covers a uniform background image
// under BGOverlay: the entire row (and image) is elided, leaving only
// EOF after the header.
func TestEncodeSolidBackgroundElision(t *testing.T) {
	bg := []byte{255, 0, 0}
	img := newRGBImage(t, 20, 20, bg)
	// NewImage already pre-fills every pixel to bg; nothing to change.

	var buf bytes.Buffer
	if err := Write(&buf, img, BGOverlay); err != nil {
		t.Fatalf("Write: %v", err)
	}

	body := buf.Bytes()[15+3:] // fixed head + 3-byte background block (odd ncolors, no pad)
	if !bytes.Equal(body, []byte{tagEOF}) {
		t.Fatalf("opcode stream = % x, want just EOF", body)
	}
}

// TestEncodeLongRunData covers a row wide enough (512px) to force the
// long operand form of RUN_DATA, once per colour channel.
func TestEncodeLongRunData(t *testing.T) {
	img := newRGBImage(t, 512, 1, nil)
	for x := 0; x < 512; x++ {
		copy(img.Pixel(x, 0), []byte{128, 128, 128})
	}

	var buf bytes.Buffer
	if err := Write(&buf, img, BGSaveAll); err != nil {
		t.Fatalf("Write: %v", err)
	}
	body := buf.Bytes()[16:]

	longRunTag := tagRunData | longFlag
	count := bytes.Count(body, []byte{longRunTag})
	if count != 3 {
		t.Fatalf("long RUN_DATA opcode count = %d, want 3 (one per channel)", count)
	}
	if bytes.Contains(body, []byte{tagByteData}) || bytes.Contains(body, []byte{tagByteData | longFlag}) {
		t.Fatal("expected no BYTE_DATA opcodes for a uniform 512px row")
	}

	img2, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, x := range []int{0, 1, 255, 256, 511} {
		if got := img2.Pixel(x, 0); got[0] != 128 || got[1] != 128 || got[2] != 128 {
			t.Fatalf("pixel %d = %v, want [128 128 128]", x, got)
		}
	}
}

// TestEncodeScanlineDelimiterIsImplicit ensures row transitions rely
// on the repeated SET_COLOR(0) rather than an explicit SKIP_LINES
// opcode when every row carries real pixel data.
func TestEncodeScanlineDelimiterIsImplicit(t *testing.T) {
	img := newRGBImage(t, 4, 4, nil)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			copy(img.Pixel(x, y), []byte{0, byte(y * 64), 0})
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, img, BGSaveAll); err != nil {
		t.Fatalf("Write: %v", err)
	}
	body := buf.Bytes()[16:]

	// Operand bytes include 0x00 (channel 0, zero values) and 0x40
	// (row 1 green), so compare the whole stream rather than searching
	// for tag bytes: each row is SET_COLOR(c) + a 4-pixel RUN_DATA per
	// channel, with no SKIP_LINES anywhere.
	var want []byte
	for y := 0; y < 4; y++ {
		for c := byte(0); c < 3; c++ {
			v := byte(0)
			if c == 1 {
				v = byte(y * 64)
			}
			want = append(want, tagSetColor, c, tagRunData, 3, v, 0)
		}
	}
	want = append(want, tagEOF)
	if !bytes.Equal(body, want) {
		t.Fatalf("opcode stream = % x, want % x (no SKIP_LINES opcode when every row has real pixels)", body, want)
	}
	if n := bytes.Count(body, []byte{tagSetColor, 0}); n != 4 {
		t.Fatalf("SET_COLOR(0) appears %d times, want 4 (once per row)", n)
	}

	img2, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for y := 0; y < 4; y++ {
		if got := img2.Pixel(2, y)[1]; got != byte(y*64) {
			t.Fatalf("row %d green = %d, want %d", y, got, y*64)
		}
	}
}
