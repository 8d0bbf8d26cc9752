package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// MessageHeaderSize 消息长度前缀（u16 LE）
const MessageHeaderSize = 2

// MaxMessageSize 单条消息负载上限
const MaxMessageSize = math.MaxUint16

// ByteWriter 向调用方持有的定长缓冲区顺序写入小端标量。
// 越界写入不会 panic：首个错误被记录，之后的写入全部忽略，由 Err 返回。
type ByteWriter struct {
	dst []byte
	pos int
	err error
}

func NewByteWriter(dst []byte) *ByteWriter {
	return &ByteWriter{dst: dst}
}

// NewMessageWriter 预留前 2 字节给长度前缀，写完负载后调用 WriteMessageLen 回填
func NewMessageWriter(dst []byte) *ByteWriter {
	w := &ByteWriter{dst: dst, pos: MessageHeaderSize}
	if len(dst) < MessageHeaderSize {
		w.pos = 0
		w.err = ErrShortBuffer
	}
	return w
}

func (w *ByteWriter) BytesWritten() int { return w.pos }

func (w *ByteWriter) SpaceRemaining() int { return len(w.dst) - w.pos }

func (w *ByteWriter) Err() error { return w.err }

// Bytes 返回已写入部分（含预留的长度前缀）
func (w *ByteWriter) Bytes() []byte { return w.dst[:w.pos] }

// reserve 申请 n 字节，失败时记录错误并返回 nil
func (w *ByteWriter) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}
	if n > len(w.dst)-w.pos {
		w.err = ErrShortBuffer
		return nil
	}
	b := w.dst[w.pos : w.pos+n]
	w.pos += n
	return b
}

func (w *ByteWriter) Skip(n int) *ByteWriter {
	w.reserve(n)
	return w
}

func (w *ByteWriter) Write(src []byte) *ByteWriter {
	if b := w.reserve(len(src)); b != nil {
		copy(b, src)
	}
	return w
}

// WriteMessageLen 把 (已写字节数 - 2) 回填到前 2 字节
func (w *ByteWriter) WriteMessageLen() *ByteWriter {
	if w.err != nil {
		return w
	}
	n := w.pos - MessageHeaderSize
	if n < 0 {
		n = 0
	}
	if n > MaxMessageSize {
		w.err = ErrMessageTooLarge
		return w
	}
	if len(w.dst) < MessageHeaderSize {
		w.err = ErrShortBuffer
		return w
	}
	binary.LittleEndian.PutUint16(w.dst[:MessageHeaderSize], uint16(n))
	return w
}

func (w *ByteWriter) WriteU8(x uint8) *ByteWriter {
	if b := w.reserve(1); b != nil {
		b[0] = x
	}
	return w
}

func (w *ByteWriter) WriteU16(x uint16) *ByteWriter {
	if b := w.reserve(2); b != nil {
		binary.LittleEndian.PutUint16(b, x)
	}
	return w
}

func (w *ByteWriter) WriteU32(x uint32) *ByteWriter {
	if b := w.reserve(4); b != nil {
		binary.LittleEndian.PutUint32(b, x)
	}
	return w
}

func (w *ByteWriter) WriteU64(x uint64) *ByteWriter {
	if b := w.reserve(8); b != nil {
		binary.LittleEndian.PutUint64(b, x)
	}
	return w
}

func (w *ByteWriter) WriteI8(x int8) *ByteWriter   { return w.WriteU8(uint8(x)) }
func (w *ByteWriter) WriteI16(x int16) *ByteWriter { return w.WriteU16(uint16(x)) }
func (w *ByteWriter) WriteI32(x int32) *ByteWriter { return w.WriteU32(uint32(x)) }
func (w *ByteWriter) WriteI64(x int64) *ByteWriter { return w.WriteU64(uint64(x)) }

func (w *ByteWriter) WriteF32(x float32) *ByteWriter { return w.WriteU32(math.Float32bits(x)) }
func (w *ByteWriter) WriteF64(x float64) *ByteWriter { return w.WriteU64(math.Float64bits(x)) }

func (w *ByteWriter) WriteBool(x bool) *ByteWriter {
	if x {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

// WriteStr 写入 u16 字节长度 + 原始 UTF-8 字节（不计字符数，不以 0 结尾）
func (w *ByteWriter) WriteStr(s string) *ByteWriter {
	if w.err != nil {
		return w
	}
	if len(s) > math.MaxUint16 {
		w.err = ErrStringTooLong
		return w
	}
	if !utf8.ValidString(s) {
		w.err = ErrInvalidUTF8
		return w
	}
	if len(s)+2 > w.SpaceRemaining() {
		w.err = ErrShortBuffer
		return w
	}
	w.WriteU16(uint16(len(s)))
	copy(w.reserve(len(s)), s)
	return w
}

// WriteVarint15 写入 15 位右对齐变长整数：<128 占 1 字节，否则 2 字节且低字节最高位为延续标志
func (w *ByteWriter) WriteVarint15(x uint16) *ByteWriter {
	if w.err != nil {
		return w
	}
	if x >= 1<<15 {
		w.err = ErrVarintRange
		return w
	}
	if x < 128 {
		return w.WriteU8(uint8(x))
	}
	return w.WriteU16((x & 127) | (x&^127)<<1 | 128)
}
