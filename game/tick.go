package game

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"blocknet/proto"
)

// ErrNetworkClosed 网络层在游戏循环之前结束
var ErrNetworkClosed = errors.New("network thread stopped")

// reportInterval 输出 Tick 频率的间隔
const reportInterval = 10 * time.Second

// Run 以 TicksPerSecond 的频率推进世界，直到 ctx 取消或网络层结束。
// 网络层结束时先排空剩余事件再返回 ErrNetworkClosed。
func (w *World) Run(ctx context.Context) error {
	defer close(w.stopped)
	defer w.feed.close()

	ticker := time.NewTicker(proto.TickDuration)
	defer ticker.Stop()
	report := time.NewTicker(reportInterval)
	defer report.Stop()

	w.log.Infof("World running at %d TPS (seed %d, max %d players)", proto.TicksPerSecond, w.cfg.WorldSeed, w.cfg.MaxPlayers)
	updates := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-report.C:
			w.log.Infof("%.1f updates per second, %d online", float64(updates)/reportInterval.Seconds(), len(w.players))
			updates = 0
		case <-ticker.C:
			// 先取状态再 Tick：关闭前排队的事件都会在这一帧被处理
			open := w.net.IsOpen()
			w.Tick()
			updates++
			if !open {
				return ErrNetworkClosed
			}
		}
	}
}
