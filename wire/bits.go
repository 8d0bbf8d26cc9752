package wire

import (
	"encoding/binary"
	"math"
)

func lowMask(n uint) uint64 { return uint64(1)<<n - 1 }

// BitWriter 把若干不足一字节宽度的整数紧凑打包进位流。
// 64 位累加器每满 32 位就以小端 u32 写出一次；结束时必须调用 FlushPartials，
// 否则最多丢失 31 位。
type BitWriter struct {
	current     uint64
	bitPos      uint
	buf         []byte
	off         int
	bitsWritten int
	err         error
}

// NewBitWriter buf 长度应为 4 的倍数，否则末尾不足一个字的空间无法使用
func NewBitWriter(buf []byte) *BitWriter {
	return &BitWriter{buf: buf}
}

func (w *BitWriter) write(v uint32) bool {
	if w.off+4 > len(w.buf) {
		if w.err == nil {
			w.err = ErrShortBuffer
		}
		return false
	}
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
	w.bitsWritten += 32
	return true
}

// Uint 写入 value 的低 numBits 位（numBits <= 32）
func (w *BitWriter) Uint(value uint32, numBits uint) uint32 {
	if numBits > 32 {
		numBits = 32
	}
	w.current |= (uint64(value) & lowMask(numBits)) << w.bitPos
	w.bitPos += numBits

	if w.bitPos >= 32 {
		w.write(uint32(w.current))
		w.current >>= 32
		w.bitPos -= 32
	}
	return value
}

// Int 以偏移二进制编码有符号数：加上 2^(numBits-1) 后取低 numBits 位
func (w *BitWriter) Int(value int32, numBits uint) int32 {
	if numBits == 0 {
		return value
	}
	biased := uint32(value) + uint32(1)<<(numBits-1)
	w.Uint(uint32(uint64(biased)&lowMask(numBits)), numBits)
	return value
}

func (w *BitWriter) Bool(b bool) bool {
	if b {
		w.Uint(1, 1)
	} else {
		w.Uint(0, 1)
	}
	return b
}

// FlushPartials 写出最后不满 32 位的字。重复调用无副作用。
func (w *BitWriter) FlushPartials() {
	if w.bitPos == 0 {
		return
	}
	if w.write(uint32(w.current & lowMask(w.bitPos))) {
		// write 按 32 位计数
		w.bitsWritten = w.bitsWritten - 32 + int(w.bitPos)
	}
	w.current = 0
	w.bitPos = 0
}

func (w *BitWriter) BitsWritten() int { return w.bitsWritten }

func (w *BitWriter) BytesWritten() int { return (w.bitsWritten + 7) / 8 }

func (w *BitWriter) Err() error { return w.err }

// BitReader 与 BitWriter 对应。读到缓冲区末尾之后得到的都是 0 位，从不报错。
type BitReader struct {
	current  uint64
	bitsLeft uint
	pos      int
	buf      []byte
}

func NewBitReader(buf []byte) *BitReader {
	r := &BitReader{buf: buf, bitsLeft: 64}
	r.current = uint64(r.read()) | uint64(r.read())<<32
	return r
}

// read 取下一个 32 位字，越过末尾部分补 0
func (r *BitReader) read() uint32 {
	var b [4]byte
	n := copy(b[:], r.buf[r.pos:])
	r.pos += n
	return binary.LittleEndian.Uint32(b[:])
}

func (r *BitReader) Uint(numBits uint) uint32 {
	if numBits > 32 {
		numBits = 32
	}
	result := r.current & lowMask(numBits)

	r.bitsLeft -= numBits
	r.current >>= numBits

	if r.bitsLeft < 32 {
		r.current |= uint64(r.read()) << r.bitsLeft
		r.bitsLeft += 32
	}
	return uint32(result)
}

func (r *BitReader) Int(numBits uint) int32 {
	if numBits == 0 {
		return 0
	}
	u := r.Uint(numBits)
	return int32(int64(u) - int64(1)<<(numBits-1))
}

func (r *BitReader) Bool() bool { return r.Uint(1) != 0 }

// F32ToFixed 把浮点数转换为带 fractionalBits 位小数的定点数
func F32ToFixed(f float32, fractionalBits uint) uint32 {
	return uint32(int32(math.Round(float64(f * float32(uint32(1)<<fractionalBits)))))
}

func FixedToF32(fp uint32, fractionalBits uint) float32 {
	return float32(int32(fp)) / float32(uint32(1)<<fractionalBits)
}

// RoundToFracBits 让浮点数与经过定点编码往返后的值一致
func RoundToFracBits(f float32, fractionalBits uint) float32 {
	return FixedToF32(F32ToFixed(f, fractionalBits), fractionalBits)
}
