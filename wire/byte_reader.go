package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// ByteReader 顺序读取小端标量。越界读取返回零值并记录 ErrOutOfBounds，
// 调用方在解码完一条消息后检查 Err 即可。
type ByteReader struct {
	src []byte
	pos int
	err error
}

func NewByteReader(src []byte) *ByteReader {
	return &ByteReader{src: src}
}

// Bytes 返回尚未读取的部分
func (r *ByteReader) Bytes() []byte { return r.src[r.pos:] }

func (r *ByteReader) Remaining() int { return len(r.src) - r.pos }

func (r *ByteReader) BytesRead() int { return r.pos }

func (r *ByteReader) HasMore(n int) bool { return r.Remaining() >= n }

func (r *ByteReader) Err() error { return r.err }

// MarkStart 把当前位置作为新的起点
func (r *ByteReader) MarkStart() {
	r.src = r.src[r.pos:]
	r.pos = 0
}

func (r *ByteReader) Reset() { r.pos = 0 }

func (r *ByteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = ErrOutOfBounds
		return nil
	}
	b := r.src[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *ByteReader) Skip(n int) { r.take(n) }

// Read 填满 dst
func (r *ByteReader) Read(dst []byte) {
	if b := r.take(len(dst)); b != nil {
		copy(dst, b)
	}
}

func (r *ByteReader) ReadU8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *ByteReader) ReadU16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *ByteReader) ReadU32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *ByteReader) ReadU64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *ByteReader) ReadI8() int8   { return int8(r.ReadU8()) }
func (r *ByteReader) ReadI16() int16 { return int16(r.ReadU16()) }
func (r *ByteReader) ReadI32() int32 { return int32(r.ReadU32()) }
func (r *ByteReader) ReadI64() int64 { return int64(r.ReadU64()) }

func (r *ByteReader) ReadF32() float32 { return math.Float32frombits(r.ReadU32()) }
func (r *ByteReader) ReadF64() float64 { return math.Float64frombits(r.ReadU64()) }

func (r *ByteReader) ReadBool() bool { return r.ReadU8() != 0 }

// ReadStr 读取 u16 长度前缀的 UTF-8 字符串，非法编码记录 ErrInvalidUTF8
func (r *ByteReader) ReadStr() string {
	n := int(r.ReadU16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.err = ErrInvalidUTF8
		return ""
	}
	return string(b)
}

func (r *ByteReader) ReadVarint15() uint16 {
	b1 := r.ReadU8()
	if b1&128 == 0 {
		return uint16(b1)
	}
	return uint16(b1&127) | uint16(r.ReadU8())<<7
}
