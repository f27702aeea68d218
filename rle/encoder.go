package rle

import "io"

// BackgroundMode selects the encoder's background-elision policy
// (§4.4).
type BackgroundMode int

const (
	// BGSaveAll disables all skip optimisations; every pixel is
	// encoded explicitly.
	BGSaveAll BackgroundMode = iota
	// BGOverlay enables row- and pixel-level background skipping,
	// relying on the decoder's pre-fill to restore elided pixels.
	BGOverlay
	// BGClear behaves like BGOverlay and additionally sets the
	// CLEAR_FIRST flag in the written header.
	BGClear
)

// Write serialises img to w as a Utah RLE stream: the header (in
// img.Endian), then the opcode stream chosen per mode, then EOF.
func Write(w io.Writer, img *Image, mode BackgroundMode) error {
	h := img.Header
	if mode == BGClear {
		h.Flags |= FlagClearFirst
	}
	if err := WriteHeader(w, &h, img.Endian); err != nil {
		return err
	}

	enc := &encoder{
		w:       newWriter(w, img.Endian),
		img:     img,
		elide:   mode != BGSaveAll && img.Header.HasBackground(),
		width:   int(img.Header.XLen),
		height:  int(img.Header.YLen),
		opCap:   MaxOpsPerRowFactor * int(img.Header.XLen),
	}
	return enc.run()
}

type encoder struct {
	w      *writer
	img    *Image
	elide  bool
	width  int
	height int
	opCap  int

	rowOps        int
	pendingSkipLn int
}

func (e *encoder) run() error {
	for y := 0; y < e.height; y++ {
		if e.elide && e.img.RowIsBackground(y) {
			e.pendingSkipLn++
			continue
		}

		if e.pendingSkipLn > 0 {
			if err := e.flushSkipLines(); err != nil {
				return err
			}
		}

		e.rowOps = 0
		if err := e.encodeRow(y); err != nil {
			return err
		}
	}
	// Trailing background rows need no SKIP_LINES: the stream simply
	// ends, and the decoder's caller already pre-filled the buffer.
	return e.writeEOF()
}

func (e *encoder) flushSkipLines() error {
	n := e.pendingSkipLn
	e.pendingSkipLn = 0
	for n > 0 {
		chunk := n
		if chunk > longMaxBiased {
			chunk = longMaxBiased
		}
		if err := e.writeSkipLines(chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func (e *encoder) encodeRow(y int) error {
	h := &e.img.Header
	nColors := int(h.NColors)
	channels := make([]int, 0, nColors+1)
	for c := 0; c < nColors; c++ {
		channels = append(channels, c)
	}
	if h.HasAlpha() {
		channels = append(channels, e.img.Channels-1)
	}

	for _, storageIdx := range channels {
		wireColor := storageIdx
		if h.HasAlpha() && storageIdx == e.img.Channels-1 {
			wireColor = AlphaChannel
		}
		if err := e.writeSetColor(byte(wireColor)); err != nil {
			return err
		}
		if err := e.encodeChannelRow(y, storageIdx); err != nil {
			return err
		}
	}
	return nil
}

// encodeChannelRow walks scan_x left-to-right for one (row, channel)
// pair, emitting SKIP_PIXELS over background spans and RUN_DATA/
// BYTE_DATA over everything else.
func (e *encoder) encodeChannelRow(y, channel int) error {
	width := e.width
	var literal []byte
	var pendingSkip int

	flushLiteral := func() error {
		if len(literal) == 0 {
			return nil
		}
		if err := e.writeByteData(literal); err != nil {
			return err
		}
		literal = literal[:0]
		return nil
	}
	flushSkip := func() error {
		if pendingSkip == 0 {
			return nil
		}
		n := pendingSkip
		pendingSkip = 0
		for n > 0 {
			chunk := n
			if chunk > longMaxDirect {
				chunk = longMaxDirect
			}
			if err := e.writeSkipPixels(chunk); err != nil {
				return err
			}
			n -= chunk
		}
		return nil
	}

	x := 0
	for x < width {
		if e.elide && e.img.PixelIsBackground(x, y) {
			if err := flushLiteral(); err != nil {
				return err
			}
			pendingSkip++
			x++
			continue
		}

		if err := flushSkip(); err != nil {
			return err
		}

		px := e.img.Pixel(x, y)
		v := px[channel]
		run := 1
		for x+run < width {
			if e.elide && e.img.PixelIsBackground(x+run, y) {
				break
			}
			if e.img.Pixel(x+run, y)[channel] != v {
				break
			}
			run++
		}

		if run >= 2 {
			if err := flushLiteral(); err != nil {
				return err
			}
			if err := e.writeRunData(run, v); err != nil {
				return err
			}
			x += run
		} else {
			literal = append(literal, v)
			x++
		}
	}

	// A trailing background span needs no SKIP_PIXELS: scan_x is
	// reset by the next SET_COLOR or SKIP_LINES regardless.
	return flushLiteral()
}

func (e *encoder) checkOpCap() error {
	e.rowOps++
	if e.rowOps > e.opCap {
		return newError(OpCountExceeded, "per-row opcode ceiling exceeded")
	}
	return nil
}

func (e *encoder) writeSetColor(c byte) error {
	if err := e.checkOpCap(); err != nil {
		return err
	}
	if err := e.w.writeU8(tagSetColor); err != nil {
		return err
	}
	return e.w.writeU8(c)
}

func (e *encoder) writeSkipLines(n int) error {
	if err := e.checkOpCap(); err != nil {
		return err
	}
	op := n - 1
	if n <= shortMaxBiased {
		if err := e.w.writeU8(tagSkipLines); err != nil {
			return err
		}
		return e.w.writeU8(byte(op))
	}
	if err := e.w.writeU8(tagSkipLines | longFlag); err != nil {
		return err
	}
	return e.w.writeU16(uint16(op))
}

func (e *encoder) writeSkipPixels(n int) error {
	if err := e.checkOpCap(); err != nil {
		return err
	}
	if n <= shortMaxDirect {
		if err := e.w.writeU8(tagSkipPixels); err != nil {
			return err
		}
		return e.w.writeU8(byte(n))
	}
	if err := e.w.writeU8(tagSkipPixels | longFlag); err != nil {
		return err
	}
	return e.w.writeU16(uint16(n))
}

func (e *encoder) writeRunData(n int, value byte) error {
	n, rest := splitBiased(n)
	if err := e.checkOpCap(); err != nil {
		return err
	}
	op := n - 1
	if n <= shortMaxBiased {
		if err := e.w.writeU8(tagRunData); err != nil {
			return err
		}
		if err := e.w.writeU8(byte(op)); err != nil {
			return err
		}
	} else {
		if err := e.w.writeU8(tagRunData | longFlag); err != nil {
			return err
		}
		if err := e.w.writeU16(uint16(op)); err != nil {
			return err
		}
	}
	// Written endian-aware, like the operand above: the decoder always
	// reads this as a u16 and keeps the low byte (decoder.go's doRunData).
	if err := e.w.writeU16(uint16(value)); err != nil {
		return err
	}
	if rest > 0 {
		return e.writeRunData(rest, value)
	}
	return nil
}

func (e *encoder) writeByteData(data []byte) error {
	for len(data) > 0 {
		chunk := len(data)
		if chunk > longMaxBiased {
			chunk = longMaxBiased
		}
		if err := e.writeByteDataChunk(data[:chunk]); err != nil {
			return err
		}
		data = data[chunk:]
	}
	return nil
}

func (e *encoder) writeByteDataChunk(data []byte) error {
	if err := e.checkOpCap(); err != nil {
		return err
	}
	count := len(data)
	op := count - 1
	if count <= shortMaxBiased {
		if err := e.w.writeU8(tagByteData); err != nil {
			return err
		}
		if err := e.w.writeU8(byte(op)); err != nil {
			return err
		}
	} else {
		if err := e.w.writeU8(tagByteData | longFlag); err != nil {
			return err
		}
		if err := e.w.writeU16(uint16(op)); err != nil {
			return err
		}
	}
	if err := e.w.writeBytes(data); err != nil {
		return err
	}
	if count%2 != 0 {
		if err := e.w.writeU8(0); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeEOF() error {
	return e.w.writeU8(tagEOF)
}

// splitBiased splits an off-by-one-encoded count into a first chunk
// of at most longMaxBiased and a remainder to be emitted as a
// follow-up opcode of the same kind.
func splitBiased(n int) (first, rest int) {
	if n <= longMaxBiased {
		return n, 0
	}
	return longMaxBiased, n - longMaxBiased
}
