package wire

import (
	"errors"
	"testing"
)

func TestBitRoundTrip(t *testing.T) {
	buf := make([]byte, 28)
	w := NewBitWriter(buf)

	w.Uint(0x123, 12)
	w.Bool(true)
	w.Uint(0x4D, 7)
	w.Uint(0xFFFF_FFFF, 32)
	w.Uint(0xAAAA, 16)
	w.Int(-12345678, 28)
	w.Int(134217727, 28)
	w.Int(0, 28)
	w.Int(-134217728, 28)
	w.Uint(0xAB, 8)
	w.Uint(0xCD, 8)
	w.FlushPartials()

	if err := w.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := w.BitsWritten(); got != 196 {
		t.Errorf("BitsWritten() = %d; want 196", got)
	}
	if got := w.BytesWritten(); got != 25 {
		t.Errorf("BytesWritten() = %d; want 25", got)
	}

	r := NewBitReader(buf[:25])
	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"uint12", int64(r.Uint(12)), 0x123},
		{"bool", b2i(r.Bool()), 1},
		{"uint7", int64(r.Uint(7)), 0x4D},
		{"uint32", int64(r.Uint(32)), 0xFFFF_FFFF},
		{"uint16", int64(r.Uint(16)), 0xAAAA},
		{"int28 negative", int64(r.Int(28)), -12345678},
		{"int28 max", int64(r.Int(28)), 134217727},
		{"int28 zero", int64(r.Int(28)), 0},
		{"int28 min", int64(r.Int(28)), -134217728},
		// 小端：0xAB, 0xCD => 0xCDAB
		{"uint16 tail", int64(r.Uint(16)), 0xCDAB},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %d; want %d", c.name, c.got, c.want)
		}
	}

	// 读过末尾全部为 0
	for i := 0; i < 5; i++ {
		if got := r.Uint(32); got != 0 {
			t.Errorf("read past end #%d = %#x; want 0", i, got)
		}
	}
}

func TestBitReaderExhaustion(t *testing.T) {
	buf := make([]byte, 4)
	w := NewBitWriter(buf)
	w.Uint(5, 3)
	w.FlushPartials()

	r := NewBitReader(buf[:w.BytesWritten()])
	if got := r.Uint(3); got != 5 {
		t.Fatalf("Uint(3) = %d; want 5", got)
	}
	for i := 0; i < 10; i++ {
		if r.Uint(17) != 0 || r.Bool() || r.Int(1) != -1 {
			t.Fatalf("read #%d past end returned non-zero bits", i)
		}
	}

	empty := NewBitReader(nil)
	if empty.Uint(32) != 0 || empty.Bool() {
		t.Error("empty reader returned non-zero bits")
	}
}

func TestBitWriterFlushIsIdempotent(t *testing.T) {
	buf := make([]byte, 8)
	w := NewBitWriter(buf)
	w.Uint(1, 1)
	w.FlushPartials()
	w.FlushPartials()
	if got := w.BitsWritten(); got != 1 {
		t.Errorf("BitsWritten() = %d; want 1", got)
	}
}

func TestBitWriterWithoutFlushDropsBits(t *testing.T) {
	w := NewBitWriter(make([]byte, 8))
	w.Uint(0x7FFF, 31)
	if got := w.BitsWritten(); got != 0 {
		t.Errorf("BitsWritten() before flush = %d; want 0", got)
	}
}

func TestBitWriterShortBuffer(t *testing.T) {
	w := NewBitWriter(make([]byte, 4))
	w.Uint(0xFFFF_FFFF, 32)
	w.Uint(1, 32)
	if !errors.Is(w.Err(), ErrShortBuffer) {
		t.Errorf("Err() = %v; want ErrShortBuffer", w.Err())
	}
	if got := w.BitsWritten(); got != 32 {
		t.Errorf("BitsWritten() = %d; want 32", got)
	}
}

func TestBitIntOffsetBinary(t *testing.T) {
	// 偏移二进制：-2^(n-1) 编码为全 0，2^(n-1)-1 编码为全 1
	buf := make([]byte, 4)
	w := NewBitWriter(buf)
	w.Int(-8, 4)
	w.Int(7, 4)
	w.FlushPartials()
	if buf[0] != 0xF0 {
		t.Errorf("encoded byte = %#x; want 0xf0", buf[0])
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
