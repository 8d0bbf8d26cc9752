package proto

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrProtocolMismatch magic/version 不一致或请求格式错误，本次连接尝试终止
	ErrProtocolMismatch = errors.New("protocol mismatch")
	// ErrIdentityRejected 用户名不合法或被服务器拒绝
	ErrIdentityRejected = errors.New("identity rejected")
	// ErrUnavailable 服务器暂时无法完成登录
	ErrUnavailable = errors.New("login unavailable")
	// ErrMalformedResponse 服务器的登录响应不足 LoginAcceptSize 字节
	ErrMalformedResponse = errors.New("malformed login response")
)

// RejectError 表示以特定关闭码结束的握手。服务器用它决定关闭码，
// 客户端从对端的关闭帧还原它。
type RejectError struct {
	Code   CloseCode
	Reason string
	Remote bool
}

func Reject(code CloseCode, reason string) *RejectError {
	return &RejectError{Code: code, Reason: reason}
}

func (e *RejectError) Error() string {
	side := "local"
	if e.Remote {
		side = "server"
	}
	if e.Reason == "" {
		return fmt.Sprintf("%s rejected login: %s", side, e.Code)
	}
	return fmt.Sprintf("%s rejected login: %s (%s)", side, e.Code, e.Reason)
}

// Is 把关闭码映射到对应的哨兵错误
func (e *RejectError) Is(target error) bool {
	switch e.Code {
	case CloseProtocolMismatch:
		return target == ErrProtocolMismatch
	case CloseIdentityRejected:
		return target == ErrIdentityRejected
	case CloseUnavailable:
		return target == ErrUnavailable
	}
	return false
}

// TransportError 底层安全连接失败或被对端关闭
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
