package rle

import (
	"io"
)

// Flag bits for Header.Flags.
const (
	FlagClearFirst  uint8 = 0x01 // display hint only, no encoding effect
	FlagNoBackground uint8 = 0x02
	FlagAlpha       uint8 = 0x04
	FlagComment     uint8 = 0x08
)

// MaxDim bounds Header.XLen/YLen.
const MaxDim = 32767

// MaxCommentBytes bounds the comment sub-block's total byte count.
// It must stay below 1<<16: the block's length prefix is a wire u16
// (WriteHeader's writeU16BE), so a total of exactly 65536 would wrap
// to 0 on write.
const MaxCommentBytes = 1<<16 - 1

// AlphaChannel is the channel index SET_COLOR uses to address the
// alpha plane, distinct from the ncolors colour planes (0..ncolors-1).
const AlphaChannel = 255

const (
	magicLE0, magicLE1 byte = 0x52, 0xCC
	magicBE0, magicBE1 byte = 0xCC, 0x52
)

// Header holds the fixed 15-byte head (magic included) plus the optional background,
// colour-map, and comment sub-blocks that follow it (§3).
type Header struct {
	XPos, YPos   int16
	XLen, YLen   uint16
	Flags        uint8
	NColors      uint8
	PixelBits    uint8
	NCMap        uint8
	CMapLen      uint8
	Background   []uint8  // len == NColors when present; nil iff FlagNoBackground
	ColorMap     []uint16 // len == NCMap * (1<<CMapLen); nil iff NCMap == 0
	Comments     []string // NUL-terminated strings, in order; nil iff FlagComment clear
}

// HasAlpha reports whether the image carries an alpha plane.
func (h *Header) HasAlpha() bool { return h.Flags&FlagAlpha != 0 }

// HasBackground reports whether a background colour is declared.
func (h *Header) HasBackground() bool { return h.Flags&FlagNoBackground == 0 }

// Channels returns the number of per-pixel bytes: the colour planes
// plus one more if an alpha plane is present (§3 invariant 5).
func (h *Header) Channels() int {
	n := int(h.NColors)
	if h.HasAlpha() {
		n++
	}
	return n
}

// pixelCount returns xlen*ylen*channels as an int64 to make the
// overflow/cap check in Validate exact regardless of platform int width.
func (h *Header) pixelCount() int64 {
	return int64(h.XLen) * int64(h.YLen) * int64(h.Channels())
}

// Validate checks Header against the §3 invariants, independent of
// whether it is about to be read or written.
func (h *Header) Validate() error {
	if h.NColors == 0 || h.NColors > 3 {
		return newError(InvalidNColors, "ncolors must be 1, 2, or 3")
	}
	if h.PixelBits != 8 {
		return newError(InvalidPixelBits, "pixelbits must be 8")
	}
	if h.XLen == 0 || h.YLen == 0 || h.XLen > MaxDim || h.YLen > MaxDim {
		return newError(DimTooLarge, "xlen/ylen must be in [1, MaxDim]")
	}
	if h.pixelCount() > MaxAllocBytes {
		return newError(PixelsTooLarge, "xlen*ylen*channels exceeds allocation cap")
	}
	if h.HasBackground() {
		if len(h.Background) != int(h.NColors) {
			return newError(InvalidBGBlock, "background length must equal ncolors")
		}
	} else if len(h.Background) != 0 {
		return newError(InvalidBGBlock, "background must be absent when NO_BACKGROUND is set")
	}
	if h.NCMap > 3 {
		return newError(ColorMapTooLarge, "ncmap must be 0..3")
	}
	if h.NCMap > 0 {
		if h.CMapLen > 8 {
			return newError(ColorMapTooLarge, "cmaplen must be <= 8")
		}
		want := int(h.NCMap) * (1 << h.CMapLen)
		if len(h.ColorMap) != want {
			return newError(ColorMapTooLarge, "colour map length does not match ncmap*2^cmaplen")
		}
	} else if len(h.ColorMap) != 0 {
		return newError(ColorMapTooLarge, "colour map present but ncmap is 0")
	}
	if h.Flags&FlagComment != 0 {
		total := 0
		for _, c := range h.Comments {
			total += len(c) + 1 // NUL terminator
		}
		if total > MaxCommentBytes {
			return newError(CommentTooLarge, "comment block exceeds cap")
		}
	} else if len(h.Comments) != 0 {
		return newError(CommentTooLarge, "comments present but COMMENT flag clear")
	}
	return nil
}

// WriteHeader validates h and serialises it: magic, fixed head,
// background/pad sub-block, colour map (if any), comments (if any).
func WriteHeader(w io.Writer, h *Header, endian Endian) error {
	if err := h.Validate(); err != nil {
		return err
	}

	wr := newWriter(w, endian)

	if endian == BigEndian {
		if err := wr.writeBytes([]byte{magicBE0, magicBE1}); err != nil {
			return err
		}
	} else {
		if err := wr.writeBytes([]byte{magicLE0, magicLE1}); err != nil {
			return err
		}
	}

	if err := wr.writeU16(uint16(h.XPos)); err != nil {
		return err
	}
	if err := wr.writeU16(uint16(h.YPos)); err != nil {
		return err
	}
	if err := wr.writeU16(h.XLen); err != nil {
		return err
	}
	if err := wr.writeU16(h.YLen); err != nil {
		return err
	}
	if err := wr.writeU8(h.Flags); err != nil {
		return err
	}
	if err := wr.writeU8(h.NColors); err != nil {
		return err
	}
	if err := wr.writeU8(h.PixelBits); err != nil {
		return err
	}
	if err := wr.writeU8(h.NCMap); err != nil {
		return err
	}
	if err := wr.writeU8(h.CMapLen); err != nil {
		return err
	}

	if !h.HasBackground() {
		if err := wr.writeU8(0); err != nil {
			return err
		}
	} else {
		for _, v := range h.Background {
			if err := wr.writeU8(v); err != nil {
				return err
			}
		}
		if h.NColors%2 == 0 {
			if err := wr.writeU8(0); err != nil {
				return err
			}
		}
	}

	for _, v := range h.ColorMap {
		if err := wr.writeU16(v); err != nil {
			return err
		}
	}

	if h.Flags&FlagComment != 0 {
		var buf []byte
		for _, c := range h.Comments {
			buf = append(buf, c...)
			buf = append(buf, 0)
		}
		if err := wr.writeU16BE(uint16(len(buf))); err != nil {
			return err
		}
		if err := wr.writeBytes(buf); err != nil {
			return err
		}
		if len(buf)%2 != 0 {
			if err := wr.writeU8(0); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadHeader detects the stream's stamped endianness from its magic,
// then parses the fixed head and optional sub-blocks.
func ReadHeader(r io.Reader) (*Header, Endian, error) {
	var magic [2]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, wrapError(BadMagic, "could not read magic", err)
	}

	var endian Endian
	switch {
	case magic[0] == magicLE0 && magic[1] == magicLE1:
		endian = LittleEndian
	case magic[0] == magicBE0 && magic[1] == magicBE1:
		endian = BigEndian
	default:
		return nil, 0, newError(BadMagic, "unrecognised magic bytes")
	}

	rd := newReader(r, endian)
	h := &Header{}

	xpos, err := rd.readU16(HeaderTruncated)
	if err != nil {
		return nil, 0, err
	}
	h.XPos = int16(xpos)

	ypos, err := rd.readU16(HeaderTruncated)
	if err != nil {
		return nil, 0, err
	}
	h.YPos = int16(ypos)

	if h.XLen, err = rd.readU16(HeaderTruncated); err != nil {
		return nil, 0, err
	}
	if h.YLen, err = rd.readU16(HeaderTruncated); err != nil {
		return nil, 0, err
	}
	if h.Flags, err = rd.readU8(HeaderTruncated); err != nil {
		return nil, 0, err
	}
	if h.NColors, err = rd.readU8(HeaderTruncated); err != nil {
		return nil, 0, err
	}
	if h.PixelBits, err = rd.readU8(HeaderTruncated); err != nil {
		return nil, 0, err
	}
	if h.NCMap, err = rd.readU8(HeaderTruncated); err != nil {
		return nil, 0, err
	}
	if h.CMapLen, err = rd.readU8(HeaderTruncated); err != nil {
		return nil, 0, err
	}

	if h.NColors == 0 || h.NColors > 3 {
		return nil, 0, newError(InvalidNColors, "ncolors must be 1, 2, or 3")
	}
	if h.PixelBits != 8 {
		return nil, 0, newError(InvalidPixelBits, "pixelbits must be 8")
	}

	if h.Flags&FlagNoBackground != 0 {
		if _, err := rd.readU8(HeaderTruncated); err != nil {
			return nil, 0, err
		}
	} else {
		h.Background = make([]uint8, h.NColors)
		for i := range h.Background {
			if h.Background[i], err = rd.readU8(HeaderTruncated); err != nil {
				return nil, 0, err
			}
		}
		if h.NColors%2 == 0 {
			if _, err := rd.readU8(HeaderTruncated); err != nil {
				return nil, 0, err
			}
		}
	}

	if h.NCMap > 0 {
		if h.CMapLen > 8 {
			return nil, 0, newError(ColorMapTooLarge, "cmaplen must be <= 8")
		}
		n := int(h.NCMap) * (1 << h.CMapLen)
		h.ColorMap = make([]uint16, n)
		for i := range h.ColorMap {
			if h.ColorMap[i], err = rd.readU16(HeaderTruncated); err != nil {
				return nil, 0, err
			}
		}
	}

	if h.Flags&FlagComment != 0 {
		length, err := rd.readU16BE(HeaderTruncated)
		if err != nil {
			return nil, 0, err
		}
		if int(length) > MaxCommentBytes {
			return nil, 0, newError(CommentTooLarge, "comment block exceeds cap")
		}
		buf := make([]byte, length)
		if len(buf) > 0 {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, 0, wrapError(HeaderTruncated, "short read of comment block", err)
			}
		}
		if length%2 != 0 {
			if _, err := rd.readU8(HeaderTruncated); err != nil {
				return nil, 0, err
			}
		}
		h.Comments = splitNulTerminated(buf)
	}

	if err := h.Validate(); err != nil {
		return nil, 0, err
	}

	return h, endian, nil
}

func splitNulTerminated(buf []byte) []string {
	var out []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			out = append(out, string(buf[start:i]))
			start = i + 1
		}
	}
	if start < len(buf) {
		out = append(out, string(buf[start:]))
	}
	return out
}
