package server

import (
	"sync/atomic"
)

// Metrics 记录网络层运行期的关键指标（用于监控与调试）
type Metrics struct {
	ConnectionsAccepted int64 // 完成 QUIC 握手的连接数
	RateLimited         int64 // 因限流被拒绝的连接数
	ConnectionsFull     int64 // 因连接数已满被拒绝
	LoginsAccepted      int64 // 登录成功
	LoginsRejected      int64 // 登录失败（格式、身份、拒绝）
	LoginTimeouts       int64 // 等待身份分配超时
	PayloadsIn          int64 // 收到的会话负载
	PayloadsOut         int64 // 发出的会话负载
	ActiveSessions      int64
}

func (m *Metrics) inc(p *int64) { atomic.AddInt64(p, 1) }
func (m *Metrics) dec(p *int64) { atomic.AddInt64(p, -1) }

func load(p *int64) int64 { return atomic.LoadInt64(p) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"connections_accepted": load(&m.ConnectionsAccepted),
		"rate_limited":         load(&m.RateLimited),
		"connections_full":     load(&m.ConnectionsFull),
		"logins_accepted":      load(&m.LoginsAccepted),
		"logins_rejected":      load(&m.LoginsRejected),
		"login_timeouts":       load(&m.LoginTimeouts),
		"payloads_in":          load(&m.PayloadsIn),
		"payloads_out":         load(&m.PayloadsOut),
		"active_sessions":      load(&m.ActiveSessions),
	}
}
