// Package proto 定义客户端与服务器之间的协议常量、登录握手的线上格式以及错误分类。
//
// 所有多字节字段均为小端；每条消息前有 u16 长度前缀（见 wire 包）。
package proto

import (
	"fmt"
	"time"
)

const (
	// Magic 与 Version 构成兼容性标签，两端必须完全一致
	Magic   uint16 = 0xB7C1
	Version uint16 = 0

	TicksPerSecond   = 32
	MaxOnlinePlayers = 64

	// MinUsernameLen 按字节计
	MinUsernameLen = 3

	// ALPN 为 TLS 握手协商的应用层协议名
	ALPN = "blocknet/0"
)

// TickDuration 每个 Tick 的时长
const TickDuration = time.Second / TicksPerSecond

// NetworkID 在一次会话期间唯一标识一个已连接实体，由服务器在握手成功时分配
type NetworkID uint16

// InvalidNetworkID 保留为“无实体”
const InvalidNetworkID NetworkID = 0

func (id NetworkID) Valid() bool { return id != InvalidNetworkID }

func (id NetworkID) String() string { return fmt.Sprintf("NID(%d)", uint16(id)) }

type Header struct {
	Magic   uint16
	Version uint16
}

// CurrentHeader 返回本实现编译时的协议标签
func CurrentHeader() Header { return Header{Magic: Magic, Version: Version} }

type Vec3 struct{ X, Y, Z float32 }

// Vec2 用于头部朝向：X 为 yaw，Y 为 pitch
type Vec2 struct{ X, Y float32 }

// CloseCode 为关闭 QUIC 连接时携带的应用层错误码
type CloseCode uint64

const (
	CloseNormal CloseCode = iota
	// CloseProtocolMismatch 请求格式错误或 magic/version 不匹配
	CloseProtocolMismatch
	// CloseIdentityRejected 用户名过短或被服务器拒绝
	CloseIdentityRejected
	// CloseUnavailable 服务器暂时无法处理登录（分配超时、限流、连接数已满）
	CloseUnavailable
)

func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "normal"
	case CloseProtocolMismatch:
		return "protocol mismatch"
	case CloseIdentityRejected:
		return "identity rejected"
	case CloseUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("close code %d", uint64(c))
	}
}
