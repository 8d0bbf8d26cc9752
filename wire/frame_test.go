package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestMessageWriterBackpatchesLength(t *testing.T) {
	buf := make([]byte, 32)
	w := NewMessageWriter(buf)
	w.WriteU16(0xB7C1).WriteU16(0).WriteStr("Alice").WriteMessageLen()
	if err := w.Err(); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := []byte{11, 0, 0xC1, 0xB7, 0, 0, 5, 0, 'A', 'l', 'i', 'c', 'e'}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x; want % x", w.Bytes(), want)
	}
}

func TestEmptyMessageLength(t *testing.T) {
	w := NewMessageWriter(make([]byte, 2))
	w.WriteMessageLen()
	if !bytes.Equal(w.Bytes(), []byte{0, 0}) {
		t.Errorf("Bytes() = % x; want 00 00", w.Bytes())
	}
}

func TestMessageTooLarge(t *testing.T) {
	w := NewMessageWriter(make([]byte, MaxMessageSize+3))
	w.Skip(MaxMessageSize + 1).WriteMessageLen()
	if !errors.Is(w.Err(), ErrMessageTooLarge) {
		t.Errorf("Err() = %v; want ErrMessageTooLarge", w.Err())
	}

	if _, err := AppendMessage(nil, make([]byte, MaxMessageSize+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("AppendMessage() err = %v; want ErrMessageTooLarge", err)
	}
}

func TestFramingRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 2, 127, 128, 255, 256, 4096, 32767, 32768, MaxMessageSize}

	var stream bytes.Buffer
	var payloads [][]byte
	for _, n := range sizes {
		p := make([]byte, n)
		for i := range p {
			p[i] = byte(i*7 + n)
		}
		payloads = append(payloads, p)
		frame, err := AppendMessage(nil, p)
		if err != nil {
			t.Fatalf("AppendMessage(%d): %v", n, err)
		}
		if len(frame) != n+MessageHeaderSize {
			t.Fatalf("frame len = %d; want %d", len(frame), n+MessageHeaderSize)
		}
		stream.Write(frame)
	}

	fr := NewFrameReader(&stream)
	for i, want := range payloads {
		r, err := fr.Next()
		if err != nil {
			t.Fatalf("Next() #%d: %v", i, err)
		}
		if r.Remaining() != len(want) {
			t.Fatalf("payload #%d length = %d; want %d", i, r.Remaining(), len(want))
		}
		if !bytes.Equal(r.Bytes(), want) {
			t.Fatalf("payload #%d mismatch", i)
		}
	}
	if _, err := fr.Next(); err != io.EOF {
		t.Errorf("Next() at end = %v; want io.EOF", err)
	}
}

func TestWriteMessage(t *testing.T) {
	var out bytes.Buffer
	scratch, err := WriteMessage(&out, []byte("hi"), nil)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if _, err := WriteMessage(&out, []byte("there"), scratch); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	fr := NewFrameReader(&out)
	for _, want := range []string{"hi", "there"} {
		r, err := fr.Next()
		if err != nil {
			t.Fatalf("Next(): %v", err)
		}
		if got := string(r.Bytes()); got != want {
			t.Errorf("payload = %q; want %q", got, want)
		}
	}
}

func TestFramingTruncated(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		section string
	}{
		{"half header", []byte{5}, "header"},
		{"short payload", []byte{5, 0, 1, 2}, "payload"},
		{"missing payload", []byte{1, 0}, "payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrameReader(bytes.NewReader(tt.input)).Next()
			if !errors.Is(err, ErrTruncated) {
				t.Fatalf("Next() err = %v; want ErrTruncated", err)
			}
			var fe *FramingError
			if !errors.As(err, &fe) || fe.Section != tt.section {
				t.Errorf("err = %#v; want section %q", err, tt.section)
			}
		})
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestFramingTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	_, err := NewFrameReader(failingReader{cause}).Next()
	if !errors.Is(err, cause) {
		t.Fatalf("Next() err = %v; want wrapped cause", err)
	}
	if errors.Is(err, ErrTruncated) {
		t.Errorf("transport error must not be reported as truncation")
	}
}
