package bytes

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeLatin1(t *testing.T) {
	tests := []struct {
		name string
		str  string
		want []byte
	}{
		{
			name: "empty string",
			str:  "",
			want: []byte{},
		},
		{
			name: "ascii text",
			str:  "Forgotten",
			want: []byte("Forgotten"),
		},
		{
			name: "latin-1 characters",
			str:  "Jürgen",
			want: []byte{'J', 0xFC, 'r', 'g', 'e', 'n'},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, EncodeLatin1(tt.str)); diff != "" {
				t.Errorf("EncodeLatin1() produced the wrong bytes; diff:\n%s", diff)
			}
		})
	}
}

func TestDecodeLatin1(t *testing.T) {
	if got := DecodeLatin1([]byte{'J', 0xFC, 'r', 'g', 'e', 'n'}); got != "Jürgen" {
		t.Errorf("DecodeLatin1() want = Jürgen, got = %s", got)
	}
}

func TestWriter(t *testing.T) {
	w := NewWriter()
	w.AddByte(0x64)
	w.AddUint16(0x1234)
	w.AddUint32(0xDEADBEEF)
	w.AddString("ab")
	w.AddBool(true)

	want := []byte{
		0x64,
		0x34, 0x12,
		0xEF, 0xBE, 0xAD, 0xDE,
		0x02, 0x00, 'a', 'b',
		0x01,
	}
	if diff := cmp.Diff(want, w.Bytes()); diff != "" {
		t.Errorf("Writer produced the wrong bytes; diff:\n%s", diff)
	}
	if w.Len() != len(want) {
		t.Errorf("Len() want = %d, got = %d", len(want), w.Len())
	}
}

func TestReader(t *testing.T) {
	r := NewReader([]byte{
		0x02, 0x00,
		0x98, 0x04,
		0xAA, 0xBB,
		0x78, 0x56, 0x34, 0x12,
		0x03, 0x00, 'b', 'o', 'b',
	})

	if os := r.GetUint16(); os != 2 {
		t.Errorf("GetUint16() want = 2, got = %d", os)
	}
	if version := r.GetUint16(); version != 1176 {
		t.Errorf("GetUint16() want = 1176, got = %d", version)
	}
	r.Skip(2)
	if v := r.GetUint32(); v != 0x12345678 {
		t.Errorf("GetUint32() want = 0x12345678, got = %#x", v)
	}
	if s := r.GetString(); s != "bob" {
		t.Errorf("GetString() want = bob, got = %s", s)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() want = 0, got = %d", r.Remaining())
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() want = nil, got = %v", err)
	}
}

func TestReader_ShortMessage(t *testing.T) {
	r := NewReader([]byte{0x05, 0x00, 'a', 'b'})

	if s := r.GetString(); s != "" {
		t.Errorf("GetString() on a truncated string want = \"\", got = %q", s)
	}
	if !errors.Is(r.Err(), ErrShortMessage) {
		t.Fatalf("Err() want = %v, got = %v", ErrShortMessage, r.Err())
	}
	// Reads after an error keep returning zero values.
	if b := r.GetByte(); b != 0 {
		t.Errorf("GetByte() after error want = 0, got = %d", b)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() after error want = 0, got = %d", r.Remaining())
	}
}
