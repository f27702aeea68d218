package rle

import (
	"encoding/binary"
	"io"
)

// Endian identifies the byte order stamped into a Utah RLE file's
// magic number. All multi-byte integers after the magic follow it.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// MaxAllocBytes bounds any single buffer this package allocates on a
// caller's behalf (decoded pixel buffers, comment blocks, colour
// maps). It is a compile-time constant, not process-wide state, per
// the no-global-configuration design note.
const MaxAllocBytes = 1 << 30 // 1 GiB

// guardedAlloc returns a zeroed byte slice of length n, or
// AllocTooLarge if n exceeds MaxAllocBytes or would overflow an int.
func guardedAlloc(n int64) ([]byte, error) {
	if n < 0 || n > MaxAllocBytes {
		return nil, newError(AllocTooLarge, "requested allocation exceeds cap")
	}
	return make([]byte, n), nil
}

// reader wraps an io.Reader with the primitive reads the header codec
// needs, turning any short read into the Kind its caller names. The
// opcode stream uses opcodeReader instead, which tells a clean io.EOF
// at an opcode boundary apart from a short read.
type reader struct {
	r      io.Reader
	endian Endian
}

func newReader(r io.Reader, endian Endian) *reader {
	return &reader{r: r, endian: endian}
}

// readFull reads exactly len(p) bytes, reporting which Kind a short
// read should surface as.
func (r *reader) readFull(p []byte, onShort Kind) error {
	_, err := io.ReadFull(r.r, p)
	if err != nil {
		return wrapError(onShort, "short read", err)
	}
	return nil
}

func (r *reader) readU8(onShort Kind) (uint8, error) {
	var b [1]byte
	if err := r.readFull(b[:], onShort); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU16(onShort Kind) (uint16, error) {
	var b [2]byte
	if err := r.readFull(b[:], onShort); err != nil {
		return 0, err
	}
	return r.endian.order().Uint16(b[:]), nil
}

// readU16BE reads a big-endian u16 regardless of the stream's stamped
// endianness; only the comment-block length field uses this (§3 says
// it is "big-endian-stamp agnostic").
func (r *reader) readU16BE(onShort Kind) (uint16, error) {
	var b [2]byte
	if err := r.readFull(b[:], onShort); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// opcodeReader reads a single byte at a time at opcode boundaries so
// a clean EOF (no bytes read at all) can be told apart from a short
// read mid-opcode (TruncatedOpcode).
type opcodeReader struct {
	r      io.Reader
	endian Endian
}

func (r *opcodeReader) readTag() (byte, bool, error) {
	var b [1]byte
	n, err := io.ReadFull(r.r, b[:])
	if n == 0 && err == io.EOF {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, wrapError(TruncatedOpcode, "short read of opcode tag", err)
	}
	return b[0], false, nil
}

func (r *opcodeReader) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, wrapError(TruncatedOpcode, "short read of opcode operand", err)
	}
	return b[0], nil
}

func (r *opcodeReader) readU16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, wrapError(TruncatedOpcode, "short read of opcode operand", err)
	}
	return r.endian.order().Uint16(b[:]), nil
}

// writer wraps an io.Writer with the primitive writes the header and
// opcode codecs need. It never buffers beyond a single field: the
// host sink provides whatever buffering it wants.
type writer struct {
	w      io.Writer
	endian Endian
}

func newWriter(w io.Writer, endian Endian) *writer {
	return &writer{w: w, endian: endian}
}

func (w *writer) writeU8(v uint8) error {
	_, err := w.w.Write([]byte{v})
	return err
}

func (w *writer) writeU16(v uint16) error {
	var b [2]byte
	w.endian.order().PutUint16(b[:], v)
	_, err := w.w.Write(b[:])
	return err
}

func (w *writer) writeU16BE(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.w.Write(b[:])
	return err
}

func (w *writer) writeBytes(p []byte) error {
	_, err := w.w.Write(p)
	return err
}
