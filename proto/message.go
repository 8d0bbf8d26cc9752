package proto

import (
	"github.com/pkg/errors"

	"blocknet/wire"
)

// 会话建立后消息负载的第一个字节为类型标签
const (
	MsgChat byte = 1
)

// ChatStreamOpen 客户端打开聊天流时写入的首字节
const ChatStreamOpen byte = MsgChat

// MaxChatLen 聊天文本上限（字节）
const MaxChatLen = 256

var ErrUnknownMessage = errors.New("unknown message type")

// Message 会话阶段的已解码消息
type Message interface {
	isMessage()
}

type Chat struct {
	Text string
}

func (Chat) isMessage() {}

// EncodeChat 返回未分帧的聊天负载
func EncodeChat(text string) ([]byte, error) {
	if len(text) > MaxChatLen {
		return nil, errors.Errorf("chat message too long (%d/%d bytes)", len(text), MaxChatLen)
	}
	buf := make([]byte, 1+2+len(text))
	w := wire.NewByteWriter(buf)
	w.WriteU8(MsgChat).WriteStr(text)
	if err := w.Err(); err != nil {
		return nil, errors.Wrap(err, "encode chat")
	}
	return w.Bytes(), nil
}

func DecodeMessage(payload []byte) (Message, error) {
	r := wire.NewByteReader(payload)
	switch tag := r.ReadU8(); tag {
	case MsgChat:
		text := r.ReadStr()
		if err := r.Err(); err != nil {
			return nil, errors.Wrap(err, "decode chat")
		}
		return Chat{Text: text}, nil
	default:
		if err := r.Err(); err != nil {
			return nil, errors.Wrap(err, "decode message tag")
		}
		return nil, errors.Wrapf(ErrUnknownMessage, "tag %d", tag)
	}
}
