package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"blocknet/game"
	"blocknet/logging"
	"blocknet/server"
)

// blocknet 服务器入口：QUIC 网络层 + 游戏循环 + 管理 HTTP 接口
func main() {
	var (
		addr      string
		adminAddr string
		logFile   string
		seed      uint64
		certFile  string
		keyFile   string
		maxConns  int
	)
	flag.StringVar(&addr, "addr", ":29477", "QUIC listen address")
	flag.StringVar(&adminAddr, "admin", ":8080", "admin HTTP listen address, empty to disable")
	flag.StringVar(&logFile, "log", "server.log", "log file path")
	flag.Uint64Var(&seed, "seed", 0, "world seed, 0 for random")
	flag.StringVar(&certFile, "cert", "", "TLS certificate file (self-signed when empty)")
	flag.StringVar(&keyFile, "key", "", "TLS key file")
	flag.IntVar(&maxConns, "max-conns", server.DefaultOptions().MaxConnections, "max concurrent connections")
	flag.Parse()

	// 使用第三方 zap 日志库写入日志文件（带滚动），同时输出到终端
	if err := logging.InitLogger(logFile, true); err != nil {
		panic(err)
	}
	defer logging.SyncLogger()

	opts := server.DefaultOptions()
	opts.Transport.CertFile = certFile
	opts.Transport.KeyFile = keyFile
	opts.MaxConnections = maxConns

	srv, err := server.Start(addr, opts)
	if err != nil {
		logging.Log.Fatalf("start network: %v", err)
	}

	cfg := game.DefaultConfig()
	cfg.WorldSeed = seed
	if cfg.WorldSeed == 0 {
		cfg.WorldSeed = rand.New(rand.NewSource(time.Now().UnixNano())).Uint64()
	}
	world := game.NewWorld(srv, cfg)

	var admin *http.Server
	if adminAddr != "" {
		mux := http.NewServeMux()
		// 管理与监控接口
		mux.HandleFunc("/admin/config", world.HandleAdminConfig)
		mux.HandleFunc("/metrics", world.HandleMetrics)
		mux.HandleFunc("/feed", world.Feed().HandleFeed)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if !srv.IsOpen() {
				http.Error(w, "network stopped", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		})
		admin = &http.Server{Addr: adminAddr, Handler: mux}
		go func() {
			logging.Log.Infof("Admin listening on %s", adminAddr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Log.Errorf("admin listen: %v", err)
			}
		}()
	}

	// 优雅退出（Ctrl+C）
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := world.Run(ctx); err != nil {
		logging.Log.Errorf("World stopped: %v", err)
	}
	logging.Log.Info("Shutting down...")

	if admin != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = admin.Shutdown(sctx)
		scancel()
	}
	srv.Stop()
	<-srv.Done()
	logging.Log.Info("Network thread stopped")
}
