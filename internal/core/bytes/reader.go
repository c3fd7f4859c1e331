package bytes

import "encoding/binary"

// Reader consumes fields from a received message. Reads past the end of the
// buffer return zero values and latch ErrShortMessage, so callers can parse a
// whole message and check Err once.
type Reader struct {
	buf []byte
	pos int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the total length of the message.
func (r *Reader) Len() int { return len(r.buf) }

// Pos returns the offset of the next byte to be read.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Err returns ErrShortMessage if any read ran past the end of the message.
func (r *Reader) Err() error { return r.err }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = ErrShortMessage
		r.pos = len(r.buf)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Peek returns the unread portion of the message without consuming it. The
// slice aliases the underlying buffer so ciphers can work on it in place.
func (r *Reader) Peek() []byte {
	return r.buf[r.pos:]
}

func (r *Reader) GetByte() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) GetUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) GetUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// GetString reads a u16 length-prefixed Latin-1 string.
func (r *Reader) GetString() string {
	n := int(r.GetUint16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return DecodeLatin1(b)
}
