// Package server 实现服务器端网络层：QUIC 监听、登录握手、会话收发，
// 并通过一组通道把结果交给同步的游戏循环。游戏循环只做非阻塞轮询。
package server

import (
	"net"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
	"golang.org/x/time/rate"

	"blocknet/logging"
)

// NetServer 游戏循环侧的服务器句柄。
// 除 Metrics 外的方法都应只在游戏循环协程中调用。
type NetServer struct {
	addr    net.Addr
	metrics *Metrics

	// 网络 → 游戏循环
	incoming *queue[Inbound]
	events   *queue[Event]

	// 游戏循环 → 网络
	stop chan struct{}
	done chan struct{}
}

// Start 绑定地址并开始接受连接。返回时服务器已可接受连接。
func Start(bindAddress string, opts Options) (*NetServer, error) {
	tlsConf, err := opts.Transport.ServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := quic.ListenAddr(bindAddress, tlsConf, opts.Transport.QUICConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", bindAddress)
	}

	s := &NetServer{
		addr:     ln.Addr(),
		metrics:  &Metrics{},
		incoming: newQueue[Inbound](),
		events:   newQueue[Event](),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	l := &listener{
		ln:       ln,
		opts:     opts,
		incoming: s.incoming,
		events:   s.events,
		stop:     s.stop,
		done:     s.done,
		metrics:  s.metrics,
		limiter:  rate.NewLimiter(rate.Limit(opts.AcceptRate), opts.AcceptBurst),
		log:      logging.Named("net"),
	}
	go l.run()

	logging.Log.Infof("Network thread listening for connections on %s", s.addr)
	return s, nil
}

// IsOpen 监听协程及所有连接协程结束前为 true
func (s *NetServer) IsOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Poll 非阻塞：最多返回一条来自会话的负载
func (s *NetServer) Poll() (Inbound, bool) {
	return s.incoming.tryRecv()
}

// PollEvent 非阻塞：最多返回一个控制事件（登录请求、加入、离开）
func (s *NetServer) PollEvent() (Event, bool) {
	return s.events.tryRecv()
}

// Stop 请求停止并立即返回：网络协程关闭监听并通知所有连接，全部结束后 Done 关闭。可重复调用。
func (s *NetServer) Stop() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Done 在网络协程全部结束后关闭。此后已排队的事件仍可被 Poll 取出。
func (s *NetServer) Done() <-chan struct{} { return s.done }

func (s *NetServer) Addr() net.Addr { return s.addr }

func (s *NetServer) Metrics() *Metrics { return s.metrics }
