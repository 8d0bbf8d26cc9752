package game

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"blocknet/proto"
	"blocknet/server"
)

var errWorldStopped = errors.New("world stopped")

// exec 把 fn 交给 Tick 协程执行并等待完成
func (w *World) exec(ctx context.Context, fn func(*World)) error {
	done := make(chan struct{})
	select {
	case w.control <- func(w *World) { fn(w); close(done) }:
	case <-w.stopped:
		return errWorldStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-w.stopped:
		return errWorldStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleAdminConfig 提供世界规则的读取与更新（热更新，下一次登录生效）
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (w *World) HandleAdminConfig(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	type cfg struct {
		Spawn      *proto.Vec3 `json:"spawn,omitempty"`
		WorldSeed  *uint64     `json:"seed,omitempty"`
		MaxPlayers *int        `json:"maxPlayers,omitempty"`
	}

	var cur Config
	switch r.Method {
	case http.MethodGet:
		if err := w.exec(ctx, func(w *World) { cur = w.cfg }); err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(cur)
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(rw, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxPlayers != nil && (*body.MaxPlayers < 1 || *body.MaxPlayers > proto.MaxOnlinePlayers) {
			http.Error(rw, "maxPlayers out of range", http.StatusBadRequest)
			return
		}
		err := w.exec(ctx, func(w *World) {
			if body.Spawn != nil {
				w.cfg.Spawn = *body.Spawn
			}
			if body.WorldSeed != nil {
				w.cfg.WorldSeed = *body.WorldSeed
			}
			if body.MaxPlayers != nil {
				w.cfg.MaxPlayers = *body.MaxPlayers
			}
			cur = w.cfg
		})
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
		w.log.Infof("config updated: spawn=%v seed=%d maxPlayers=%d", cur.Spawn, cur.WorldSeed, cur.MaxPlayers)
		return
	default:
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出世界与网络层的运行指标
// GET /metrics
func (w *World) HandleMetrics(rw http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"tick": w.TickSeq(),
		"game": w.metrics.Snapshot(),
	}
	if n, ok := w.net.(interface{ Metrics() *server.Metrics }); ok {
		payload["net"] = n.Metrics().Snapshot()
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(payload)
}
