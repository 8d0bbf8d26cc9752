package game

import (
	"sync/atomic"
)

// Metrics 记录世界运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount      int64 // 统计的 Tick 次数
	TotalTickNs    int64 // Tick 累计耗时（纳秒）
	LoginsAccepted int64 // 分配了身份的登录请求
	LoginsDenied   int64 // 被拒绝的登录请求
	ChatMessages   int64 // 广播的聊天消息
	SendDropped    int64 // 因会话发送队列满被丢弃的负载
	DecodeErrors   int64 // 无法解码的入站负载
	PlayersOnline  int64
}

func (m *Metrics) inc(p *int64) { atomic.AddInt64(p, 1) }

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"avg_tick_ms":     avgMs,
		"logins_accepted": atomic.LoadInt64(&m.LoginsAccepted),
		"logins_denied":   atomic.LoadInt64(&m.LoginsDenied),
		"chat_messages":   atomic.LoadInt64(&m.ChatMessages),
		"send_dropped":    atomic.LoadInt64(&m.SendDropped),
		"decode_errors":   atomic.LoadInt64(&m.DecodeErrors),
		"players_online":  atomic.LoadInt64(&m.PlayersOnline),
	}
}
