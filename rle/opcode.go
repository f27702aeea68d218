package rle

// Opcode tags (§4.4). A wire opcode byte is tag | longFlag for the
// long operand form; SET_COLOR and EOF never carry the long flag.
const (
	tagSkipLines  byte = 0x00
	tagSetColor   byte = 0x01
	tagSkipPixels byte = 0x02
	tagByteData   byte = 0x03
	tagRunData    byte = 0x05
	tagEOF        byte = 0x06

	longFlag byte = 0x40
	tagMask  byte = 0x3F
)

// MaxOpsPerRowFactor bounds the opcodes an encoder may emit per row,
// and (multiplied by image area) the opcodes a decoder may consume
// for an entire image, guaranteeing forward progress on pathological
// input (§4.4 "Safety caps", §4.5 "Failure semantics").
const MaxOpsPerRowFactor = 16

// shortMaxBiased is the largest count representable by a single unsigned
// byte operand that has already been reduced by the opcode's
// off-by-one convention (SKIP_LINES, BYTE_DATA, RUN_DATA): operand
// 0..255 represents count 1..256.
const shortMaxBiased = 256

// longMaxBiased is the off-by-one long-form equivalent: operand
// 0..65535 represents count 1..65536.
const longMaxBiased = 65536

// shortMaxDirect/longMaxDirect bound SKIP_PIXELS, whose operand is
// the literal pixel count (no off-by-one bias).
const shortMaxDirect = 255
const longMaxDirect = 65535
