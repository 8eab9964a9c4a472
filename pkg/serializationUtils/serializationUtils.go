package serializationUtils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/nm-morais/go-por/pkg/errors"
)

const caller = "BinaryCodec"

// Writer appends big-endian fields to an in-memory buffer. Writes to a
// bytes.Buffer cannot fail, so none of the methods return errors.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) PutUint8(n uint8) {
	w.buf.WriteByte(n)
}

func (w *Writer) PutBool(b bool) {
	if b {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

func (w *Writer) PutUint32(n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	w.buf.Write(b[:])
}

func (w *Writer) PutUint64(n uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	w.buf.Write(b[:])
}

func (w *Writer) PutInt64(n int64) {
	w.PutUint64(uint64(n))
}

func (w *Writer) PutBytes(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *Writer) PutString(s string) {
	w.PutUint32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) PutStrings(ss []string) {
	w.PutUint32(uint32(len(ss)))
	for _, s := range ss {
		w.PutString(s)
	}
}

// PutTime writes unix seconds followed by the nanosecond remainder.
func (w *Writer) PutTime(t time.Time) {
	w.PutInt64(t.Unix())
	w.PutUint32(uint32(t.Nanosecond()))
}

func (w *Writer) PutDuration(d time.Duration) {
	w.PutInt64(int64(d))
}

// Reader consumes big-endian fields from a byte slice. The first failure is
// sticky: later reads return zero values and Err reports the first cause.
type Reader struct {
	buf []byte
	pos int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Done fails the reader if any bytes are left unread.
func (r *Reader) Done() error {
	if r.err == nil && r.Remaining() != 0 {
		r.err = errors.NewDecodeError(errors.InvalidField, caller, "", fmt.Sprintf("%d trailing bytes", r.Remaining()))
	}
	return r.err
}

func (r *Reader) fail(kind errors.DecodeErrorKind, field, detail string) {
	if r.err == nil {
		r.err = errors.NewDecodeError(kind, caller, field, detail)
	}
}

func (r *Reader) next(field string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.fail(errors.Truncated, field, fmt.Sprintf("need %d bytes, have %d", n, r.Remaining()))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) Uint8(field string) uint8 {
	b := r.next(field, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool(field string) bool {
	v := r.Uint8(field)
	if v > 1 {
		r.fail(errors.InvalidField, field, fmt.Sprintf("invalid bool byte %d", v))
		return false
	}
	return v == 1
}

func (r *Reader) Uint32(field string) uint32 {
	b := r.next(field, 4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *Reader) Uint64(field string) uint64 {
	b := r.next(field, 8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *Reader) Int64(field string) int64 {
	return int64(r.Uint64(field))
}

func (r *Reader) length(field string) int {
	n := r.Uint32(field)
	if r.err != nil {
		return 0
	}
	if uint64(n) > uint64(r.Remaining()) || n > math.MaxInt32 {
		r.fail(errors.Truncated, field, fmt.Sprintf("length %d exceeds %d remaining bytes", n, r.Remaining()))
		return 0
	}
	return int(n)
}

// Bytes returns a copy of a length-prefixed field; empty fields decode as nil.
func (r *Reader) Bytes(field string) []byte {
	n := r.length(field)
	b := r.next(field, n)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *Reader) String(field string) string {
	n := r.length(field)
	return string(r.next(field, n))
}

// Strings reads a counted list of strings; an empty list decodes as nil.
func (r *Reader) Strings(field string) []string {
	count := r.Uint32(field)
	if r.err != nil || count == 0 {
		return nil
	}
	// every entry carries at least a 4 byte length prefix
	if uint64(count)*4 > uint64(r.Remaining()) {
		r.fail(errors.Truncated, field, fmt.Sprintf("%d entries cannot fit in %d bytes", count, r.Remaining()))
		return nil
	}
	out := make([]string, count)
	for i := range out {
		out[i] = r.String(field)
	}
	if r.err != nil {
		return nil
	}
	return out
}

func (r *Reader) Time(field string) time.Time {
	sec := r.Int64(field)
	nsec := r.Uint32(field)
	if r.err != nil {
		return time.Time{}
	}
	if nsec >= uint32(time.Second) {
		r.fail(errors.InvalidField, field, fmt.Sprintf("nanoseconds %d out of range", nsec))
		return time.Time{}
	}
	return time.Unix(sec, int64(nsec)).UTC()
}

func (r *Reader) Duration(field string) time.Duration {
	return time.Duration(r.Int64(field))
}
