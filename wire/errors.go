package wire

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated 帧头或负载不足声明长度（流已失步，只能断开）
	ErrTruncated = errors.New("wire: truncated message")
	// ErrOutOfBounds 读取越过缓冲区末尾
	ErrOutOfBounds = errors.New("wire: read out of bounds")
	// ErrShortBuffer 写入越过缓冲区末尾
	ErrShortBuffer = errors.New("wire: buffer too small")

	ErrStringTooLong   = errors.New("wire: string longer than 65535 bytes")
	ErrInvalidUTF8     = errors.New("wire: string is not valid utf-8")
	ErrVarintRange     = errors.New("wire: varint15 value out of range")
	ErrMessageTooLarge = errors.New("wire: message longer than 65535 bytes")
)

// FramingError 描述一次失败的分帧读取
type FramingError struct {
	Section string // "header" 或 "payload"
	Want    int
	Got     int
	Err     error // 底层 io 错误
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("wire: truncated message %s: got %d of %d bytes", e.Section, e.Got, e.Want)
}

func (e *FramingError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrTruncated) 成立
func (e *FramingError) Is(target error) bool { return target == ErrTruncated }
