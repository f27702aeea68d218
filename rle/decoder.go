package rle

import "io"

// Read parses a Utah RLE stream from r: header, then the opcode
// stream, into a freshly allocated, background-pre-filled Image.
func Read(r io.Reader) (*Image, error) {
	r = bufferedReader(r)
	h, endian, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	img, err := NewImage(h)
	if err != nil {
		return nil, err
	}
	img.Endian = endian

	dec := &decoder{
		r:       &opcodeReader{r: r, endian: endian},
		img:     img,
		width:   int(h.XLen),
		height:  int(h.YLen),
		xpos:    int(h.XPos),
		ypos:    int(h.YPos),
		opCap:   MaxOpsPerRowFactor * int(h.XLen) * int(h.YLen),
	}
	if err := dec.run(); err != nil {
		return nil, err
	}
	return img, nil
}

// decoder is the (scan_x, scan_y, current_channel) automaton of §4.5.
type decoder struct {
	r    *opcodeReader
	img  *Image
	width, height int
	xpos, ypos    int

	scanX, scanY   int
	currentChannel int // -1 == none selected yet

	opCap int
	ops   int
}

func (d *decoder) run() error {
	d.scanX = d.xpos
	d.scanY = d.ypos
	d.currentChannel = -1

	for {
		tag, eof, err := d.r.readTag()
		if err != nil {
			return err
		}
		if eof {
			// A stream that runs out of bytes without an explicit
			// EOF opcode is truncated, not a clean termination.
			return newError(TruncatedOpcode, "stream ended without EOF opcode")
		}

		d.ops++
		if d.ops > d.opCap {
			return newError(OpCountExceeded, "per-image opcode ceiling exceeded")
		}

		long := tag&longFlag != 0
		base := tag & tagMask

		switch base {
		case tagSkipLines:
			if err := d.doSkipLines(long); err != nil {
				return err
			}
		case tagSetColor:
			if long {
				return newError(OpcodeUnknown, "SET_COLOR with long flag is not supported")
			}
			if err := d.doSetColor(); err != nil {
				return err
			}
		case tagSkipPixels:
			if err := d.doSkipPixels(long); err != nil {
				return err
			}
		case tagByteData:
			if err := d.doByteData(long); err != nil {
				return err
			}
		case tagRunData:
			if err := d.doRunData(long); err != nil {
				return err
			}
		case tagEOF:
			return nil
		default:
			return newError(OpcodeUnknown, "unrecognised opcode tag")
		}
	}
}

func (d *decoder) readOperand(long bool) (int, error) {
	if long {
		v, err := d.r.readU16()
		if err != nil {
			return 0, err
		}
		return int(v), nil
	}
	v, err := d.r.readByte()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (d *decoder) doSkipLines(long bool) error {
	op, err := d.readOperand(long)
	if err != nil {
		return err
	}
	n := op + 1
	if d.currentChannel >= 0 {
		d.scanY++
	}
	d.scanY += n
	d.currentChannel = -1
	d.scanX = d.xpos
	return nil
}

func (d *decoder) doSetColor() error {
	c, err := d.r.readByte()
	if err != nil {
		return err
	}
	ch := int(c)
	if ch == 0 && d.currentChannel >= 0 {
		d.scanY++
	}
	d.currentChannel = ch
	d.scanX = d.xpos
	return nil
}

func (d *decoder) doSkipPixels(long bool) error {
	n, err := d.readOperand(long)
	if err != nil {
		return err
	}
	d.scanX += n
	return nil
}

func (d *decoder) doByteData(long bool) error {
	op, err := d.readOperand(long)
	if err != nil {
		return err
	}
	count := op + 1

	data := make([]byte, count)
	for i := range data {
		b, err := d.r.readByte()
		if err != nil {
			return err
		}
		data[i] = b
	}
	if count%2 != 0 {
		if _, err := d.r.readByte(); err != nil {
			return err
		}
	}

	for i, b := range data {
		d.putPixel(d.scanX+i, d.scanY, b)
	}
	d.scanX += count
	return nil
}

func (d *decoder) doRunData(long bool) error {
	op, err := d.readOperand(long)
	if err != nil {
		return err
	}
	count := op + 1

	word, err := d.r.readU16()
	if err != nil {
		return err
	}
	value := byte(word & 0xFF)

	for i := 0; i < count; i++ {
		d.putPixel(d.scanX+i, d.scanY, value)
	}
	d.scanX += count
	return nil
}

// putPixel writes value at the current channel of pixel (x, y),
// silently discarding writes that fall outside the image extents or
// that address no channel (current_channel still -1): malformed or
// over-long streams must decode without undefined behaviour (§4.5
// "Bounds clamping").
func (d *decoder) putPixel(x, y int, value byte) {
	if d.currentChannel < 0 {
		return
	}
	ix := x - d.xpos
	iy := y - d.ypos
	if ix < 0 || ix >= d.width || iy < 0 || iy >= d.height {
		return
	}

	channel := d.currentChannel
	if channel == AlphaChannel {
		if !d.img.Header.HasAlpha() {
			return
		}
		channel = d.img.Channels - 1
	} else if channel >= int(d.img.Header.NColors) {
		return
	}

	d.img.Pixel(ix, iy)[channel] = value
}
