package server

import (
	"github.com/google/uuid"

	"blocknet/proto"
)

// Session 握手成功后的服务器端会话记录，持有该连接的发送队列
type Session struct {
	ID       proto.NetworkID
	Username string
	// TraceID 只用于日志关联
	TraceID uuid.UUID

	send chan []byte
}

// NewSession 创建会话，返回游戏循环侧句柄与网络协程侧的发送队列
func NewSession(id proto.NetworkID, username string, queueLen int) (*Session, <-chan []byte) {
	send := make(chan []byte, queueLen)
	return &Session{
		ID:       id,
		Username: username,
		TraceID:  uuid.New(),
		send:     send,
	}, send
}

// Send 将负载压入发送队列（非阻塞，满则丢弃）。会话已结束时消息被静默丢弃。
func (s *Session) Send(payload []byte) bool {
	select {
	case s.send <- payload:
		return true
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
		return false
	}
}
