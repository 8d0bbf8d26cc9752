package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// FrameReader 从字节流中按 u16 长度前缀逐条读出消息，内部缓冲区复用。
// 这是两端唯一的分帧约定。
type FrameReader struct {
	r   io.Reader
	hdr [MessageHeaderSize]byte
	buf []byte
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// Next 读取下一条消息，返回定位在负载起点的 ByteReader。
// 返回的 ByteReader 在下一次调用 Next 之前有效。
// 流恰好在消息边界结束时返回 io.EOF；头或负载不完整返回 *FramingError；
// 其他错误（传输层）原样包装返回。
func (f *FrameReader) Next() (*ByteReader, error) {
	n, err := io.ReadFull(f.r, f.hdr[:])
	if err != nil {
		switch {
		case err == io.EOF:
			return nil, io.EOF
		case err == io.ErrUnexpectedEOF:
			return nil, &FramingError{Section: "header", Want: MessageHeaderSize, Got: n, Err: err}
		default:
			return nil, errors.Wrap(err, "read message header")
		}
	}

	length := int(binary.LittleEndian.Uint16(f.hdr[:]))
	if cap(f.buf) < length {
		f.buf = make([]byte, length)
	}
	f.buf = f.buf[:length]

	n, err = io.ReadFull(f.r, f.buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &FramingError{Section: "payload", Want: length, Got: n, Err: err}
		}
		return nil, errors.Wrap(err, "read message payload")
	}
	return NewByteReader(f.buf), nil
}

// AppendMessage 把 payload 加上长度前缀追加到 dst
func AppendMessage(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxMessageSize {
		return dst, ErrMessageTooLarge
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	return append(dst, payload...), nil
}

// WriteMessage 分帧并一次性写出 payload，scratch 用于复用缓冲区
func WriteMessage(w io.Writer, payload, scratch []byte) ([]byte, error) {
	frame, err := AppendMessage(scratch[:0], payload)
	if err != nil {
		return scratch, err
	}
	if _, err := w.Write(frame); err != nil {
		return frame, errors.Wrap(err, "write message")
	}
	return frame, nil
}
