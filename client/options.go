package client

import (
	"time"

	"blocknet/proto"
	"blocknet/transport"
)

// Options 客户端网络层配置
type Options struct {
	Transport transport.Options

	// DialTimeout 建立 QUIC 连接的上限
	DialTimeout time.Duration
	// LoginTimeout 发出登录请求后等待响应的上限
	LoginTimeout time.Duration
	// Header 登录时发送的协议标签，默认为本实现的 magic/version
	Header proto.Header

	IncomingQueue int
	OutgoingQueue int
}

func DefaultOptions() Options {
	return Options{
		Transport:     transport.DefaultOptions(),
		DialTimeout:   10 * time.Second,
		LoginTimeout:  10 * time.Second,
		Header:        proto.CurrentHeader(),
		IncomingQueue: 128,
		OutgoingQueue: 128,
	}
}
