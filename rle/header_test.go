package rle

import (
	"bytes"
	"testing"
)

func TestHeaderValidateTable(t *testing.T) {
	base := func() *Header {
		return &Header{XLen: 4, YLen: 4, NColors: 3, PixelBits: 8, Flags: FlagNoBackground}
	}

	cases := []struct {
		name    string
		mutate  func(*Header)
		wantErr Kind
	}{
		{"valid", func(h *Header) {}, -1},
		{"ncolors zero", func(h *Header) { h.NColors = 0 }, InvalidNColors},
		{"ncolors too large", func(h *Header) { h.NColors = 4 }, InvalidNColors},
		{"pixelbits not 8", func(h *Header) { h.PixelBits = 1 }, InvalidPixelBits},
		{"xlen zero", func(h *Header) { h.XLen = 0 }, DimTooLarge},
		{"xlen over max", func(h *Header) { h.XLen = MaxDim + 1 }, DimTooLarge},
		{"background present but NO_BACKGROUND set", func(h *Header) { h.Background = []uint8{1, 2, 3} }, InvalidBGBlock},
		{"ncmap too large", func(h *Header) { h.NCMap = 4 }, ColorMapTooLarge},
		{"cmaplen too large", func(h *Header) { h.NCMap = 1; h.CMapLen = 9; h.ColorMap = make([]uint16, 1<<9) }, ColorMapTooLarge},
		{"colormap present but ncmap zero", func(h *Header) { h.ColorMap = []uint16{1} }, ColorMapTooLarge},
		{"comments present but flag clear", func(h *Header) { h.Comments = []string{"x"} }, CommentTooLarge},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := base()
			c.mutate(h)
			err := h.Validate()
			if c.wantErr == -1 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			rerr, ok := err.(*Error)
			if !ok || rerr.Kind != c.wantErr {
				t.Fatalf("Validate() = %v, want Kind %s", err, c.wantErr)
			}
		})
	}
}

func TestHeaderBackgroundRequiresExactLength(t *testing.T) {
	h := &Header{XLen: 1, YLen: 1, NColors: 3, PixelBits: 8, Background: []uint8{1, 2}}
	if err := h.Validate(); err == nil {
		t.Fatal("expected InvalidBGBlock for short background slice")
	}
}

func TestWriteReadHeaderRoundtrip(t *testing.T) {
	for _, endian := range []Endian{LittleEndian, BigEndian} {
		h := &Header{
			XPos: 3, YPos: -2, XLen: 10, YLen: 20,
			NColors: 3, PixelBits: 8,
			Background: []uint8{1, 2, 3},
			Comments:   []string{"made by rle_test", "second line"},
			Flags:      FlagComment,
		}
		var buf bytes.Buffer
		if err := WriteHeader(&buf, h, endian); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		got, gotEndian, err := ReadHeader(&buf)
		if err != nil {
			t.Fatalf("ReadHeader: %v", err)
		}
		if gotEndian != endian {
			t.Fatalf("endian = %v, want %v", gotEndian, endian)
		}
		if got.XPos != h.XPos || got.YPos != h.YPos || got.XLen != h.XLen || got.YLen != h.YLen {
			t.Fatalf("geometry mismatch: got %+v, want %+v", got, h)
		}
		if len(got.Background) != 3 || got.Background[0] != 1 || got.Background[2] != 3 {
			t.Fatalf("background mismatch: %v", got.Background)
		}
		if len(got.Comments) != 2 || got.Comments[0] != "made by rle_test" {
			t.Fatalf("comments mismatch: %v", got.Comments)
		}
	}
}

func TestWriteHeaderNoBackgroundPadByte(t *testing.T) {
	h := &Header{XLen: 1, YLen: 1, NColors: 3, PixelBits: 8, Flags: FlagNoBackground}
	var buf bytes.Buffer
	if err := WriteHeader(&buf, h, LittleEndian); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	b := buf.Bytes()
	// 2 magic + 2 xpos + 2 ypos + 2 xlen + 2 ylen + 1 flags + 1 ncolors +
	// 1 pixelbits + 1 ncmap + 1 cmaplen = 15 bytes of fixed head, then
	// exactly one 0x00 pad byte in place of a background block.
	const fixedHead = 15
	if len(b) != fixedHead+1 {
		t.Fatalf("stream length = %d, want %d", len(b), fixedHead+1)
	}
	if b[fixedHead] != 0 {
		t.Fatalf("pad byte = %#x, want 0x00", b[fixedHead])
	}
}

// TestCommentCapStaysBelowU16Max guards the off-by-one that would let
// a 65536-byte comment block pass Validate and then truncate its
// u16 length prefix to 0 on write.
func TestCommentCapStaysBelowU16Max(t *testing.T) {
	if MaxCommentBytes >= 1<<16 {
		t.Fatalf("MaxCommentBytes = %d, must be < 65536 to fit a u16 length prefix", MaxCommentBytes)
	}

	// One comment one byte short of the cap (NUL terminator included):
	// total == MaxCommentBytes must still validate.
	h := &Header{XLen: 1, YLen: 1, NColors: 3, PixelBits: 8, Flags: FlagNoBackground | FlagComment,
		Comments: []string{string(make([]byte, MaxCommentBytes-1))}}
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate() at exactly the cap: %v", err)
	}

	h.Comments[0] = string(make([]byte, MaxCommentBytes))
	if err := h.Validate(); err == nil {
		t.Fatal("expected CommentTooLarge one byte over the cap")
	} else if rerr, ok := err.(*Error); !ok || rerr.Kind != CommentTooLarge {
		t.Fatalf("got %v, want CommentTooLarge", err)
	}
}

func TestReadHeaderBadMagic(t *testing.T) {
	buf := bytes.NewReader([]byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 8, 0, 0, 0})
	if _, _, err := ReadHeader(buf); err == nil {
		t.Fatal("expected BadMagic")
	} else if rerr, ok := err.(*Error); !ok || rerr.Kind != BadMagic {
		t.Fatalf("got %v, want BadMagic", err)
	}
}

func TestReadHeaderInvalidNColors(t *testing.T) {
	buf := bytes.NewReader([]byte{magicLE0, magicLE1, 0, 0, 0, 0, 1, 0, 1, 0, 0, 4, 8, 0, 0})
	if _, _, err := ReadHeader(buf); err == nil {
		t.Fatal("expected InvalidNColors")
	} else if rerr, ok := err.(*Error); !ok || rerr.Kind != InvalidNColors {
		t.Fatalf("got %v, want InvalidNColors", err)
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	buf := bytes.NewReader([]byte{magicLE0, magicLE1, 0, 0})
	if _, _, err := ReadHeader(buf); err == nil {
		t.Fatal("expected HeaderTruncated")
	} else if rerr, ok := err.(*Error); !ok || rerr.Kind != HeaderTruncated {
		t.Fatalf("got %v, want HeaderTruncated", err)
	}
}
