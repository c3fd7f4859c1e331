package bytes

import "encoding/binary"

// Writer accumulates an outgoing message body. Framing, checksums and
// encryption are applied by the client when the message is sent.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

func (w *Writer) AddByte(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) AddBool(v bool) {
	if v {
		w.AddByte(1)
	} else {
		w.AddByte(0)
	}
}

func (w *Writer) AddUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) AddUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// AddString writes str as a u16 length-prefixed Latin-1 string, truncating
// anything longer than MaxStringLength.
func (w *Writer) AddString(str string) {
	b := EncodeLatin1(str)
	if len(b) > MaxStringLength {
		b = b[:MaxStringLength]
	}
	w.AddUint16(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) AddBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Append copies the contents of another Writer onto the end of this one.
func (w *Writer) Append(other *Writer) {
	w.buf = append(w.buf, other.buf...)
}
