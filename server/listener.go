package server

import (
	"context"

	"github.com/quic-go/quic-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"blocknet/proto"
	"blocknet/transport"
)

// listener 网络侧：接受连接并为每个连接启动一个协程
type listener struct {
	ln      *quic.Listener
	opts    Options
	metrics *Metrics
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	incoming *queue[Inbound]
	events   *queue[Event]

	stop <-chan struct{}
	done chan<- struct{}
}

func (l *listener) run() {
	defer close(l.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-l.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var conns errgroup.Group
	if l.opts.MaxConnections > 0 {
		conns.SetLimit(l.opts.MaxConnections)
	}

	l.acceptLoop(ctx, &conns)

	// 先让每个连接通知对端并退出，再关闭底层端点
	_ = conns.Wait()
	if err := l.ln.Close(); err != nil {
		l.log.Debugf("Closing listener: %v", err)
	}
	l.incoming.close()
	l.events.close()
	l.log.Debug("Network thread terminating...")
}

func (l *listener) acceptLoop(ctx context.Context, conns *errgroup.Group) {
	l.log.Info("Now polling for connections!")
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.log.Warnf("Accept failed: %v", err)
			}
			return
		}
		l.metrics.inc(&l.metrics.ConnectionsAccepted)
		l.log.Debugf("Connection from %s established", conn.RemoteAddr())

		if !l.limiter.Allow() {
			l.metrics.inc(&l.metrics.RateLimited)
			transport.Close(conn, proto.CloseUnavailable, "Too many connection attempts")
			continue
		}

		c := &clientConn{
			conn: conn,
			l:    l,
			log:  l.log.With("remote", conn.RemoteAddr().String()),
		}
		if !conns.TryGo(func() error {
			c.serve(ctx)
			return nil
		}) {
			l.metrics.inc(&l.metrics.ConnectionsFull)
			transport.Close(conn, proto.CloseUnavailable, "Server full")
		}
	}
}
