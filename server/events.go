package server

import (
	"blocknet/proto"
)

// Event 网络层发给游戏循环的控制消息，游戏循环每个 Tick 用 PollEvent 排空
type Event interface {
	isEvent()
}

// LoginRequest 待分配身份的登录请求。游戏循环必须在同一 Tick 内调用
// Accept 或 Deny；连接协程最多等待 Options.LoginTimeout。
type LoginRequest struct {
	Username string
	Remote   string

	reply    chan proto.LoginResult
	answered bool
}

// NewLoginRequest 创建请求及其一次性回复通道
func NewLoginRequest(username, remote string) (*LoginRequest, <-chan proto.LoginResult) {
	reply := make(chan proto.LoginResult, 1)
	return &LoginRequest{Username: username, Remote: remote, reply: reply}, reply
}

// Accept 分配身份与出生状态。只有第一次 Accept/Deny 生效。
func (r *LoginRequest) Accept(a proto.LoginAccept) bool {
	return r.answer(proto.Accepted(a))
}

func (r *LoginRequest) Deny(reason string) bool {
	return r.answer(proto.Denied(reason))
}

func (r *LoginRequest) answer(res proto.LoginResult) bool {
	if r.answered {
		return false
	}
	r.answered = true
	r.reply <- res // 容量为 1，不会阻塞
	return true
}

func (*LoginRequest) isEvent() {}

// PlayerJoined 握手完成、响应已发出，会话开始
type PlayerJoined struct {
	Session *Session
}

func (PlayerJoined) isEvent() {}

// PlayerLeft 连接协程退出。身份一旦分配，无论成功、出错还是主动停止都恰好发出一次。
type PlayerLeft struct {
	ID proto.NetworkID
}

func (PlayerLeft) isEvent() {}

// Inbound 来自某个会话的不透明负载
type Inbound struct {
	ID      proto.NetworkID
	Payload []byte
}
