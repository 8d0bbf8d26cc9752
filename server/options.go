package server

import (
	"time"

	"blocknet/transport"
)

// Options 服务器网络层配置
type Options struct {
	Transport transport.Options

	// LoginTimeout 等待游戏循环分配身份的上限
	LoginTimeout time.Duration
	// MaxConnections 同时处理的连接数（含握手中的）
	MaxConnections int
	// AcceptRate 每秒允许的新连接数，AcceptBurst 为突发上限
	AcceptRate  float64
	AcceptBurst int
	// SendQueue 每个会话的发送队列容量
	SendQueue int
}

func DefaultOptions() Options {
	return Options{
		Transport:      transport.DefaultOptions(),
		LoginTimeout:   2 * time.Second,
		MaxConnections: 128,
		AcceptRate:     20,
		AcceptBurst:    40,
		SendQueue:      128,
	}
}
