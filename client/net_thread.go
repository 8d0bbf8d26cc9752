package client

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"blocknet/logging"
	"blocknet/proto"
	"blocknet/transport"
	"blocknet/wire"
)

var (
	errCancelled  = errors.New("connection attempt cancelled")
	errChatClosed = errors.New("server closed the chat stream")
)

type outcome struct {
	login proto.LoginAccept
	err   error
}

// channels 游戏循环一侧持有的端点
type channels struct {
	incoming <-chan []byte
	outgoing chan<- []byte
	stop     chan struct{}
	done     <-chan struct{}
	err      *error
}

// netChannels 网络协程一侧持有的端点
type netChannels struct {
	incoming chan<- []byte
	outgoing <-chan []byte
	stop     <-chan struct{}
	done     chan struct{}
	err      *error
}

func newChannels(opts Options) (channels, netChannels) {
	in := make(chan []byte, opts.IncomingQueue)
	out := make(chan []byte, opts.OutgoingQueue)
	stop := make(chan struct{})
	done := make(chan struct{})
	var err error
	return channels{incoming: in, outgoing: out, stop: stop, done: done, err: &err},
		netChannels{incoming: in, outgoing: out, stop: stop, done: done, err: &err}
}

// run 网络协程主体：连接、登录、会话收发，结束时写入最终错误并关闭 done
func run(address, username string, opts Options, n netChannels, onConnect chan<- outcome) {
	defer close(n.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-n.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, accept, err := connect(ctx, address, username, opts)
	if err != nil {
		if ctx.Err() != nil {
			err = errCancelled
		}
		logging.Log.Warnf("Connection to %s failed: %v", address, err)
		*n.err = err
		onConnect <- outcome{err: err}
		return
	}
	logging.Log.Infof("Logged in as %q with %s", username, accept.ID)
	onConnect <- outcome{login: accept}

	err = session(ctx, conn, n)
	transport.Close(conn, proto.CloseNormal, "client quit")
	<-conn.Context().Done()

	if ctx.Err() != nil {
		// 主动停止
		err = nil
	} else {
		err = transport.Classify(err)
		logging.Log.Warnf("Disconnected from %s: %v", address, err)
	}
	*n.err = err
}

func connect(ctx context.Context, address, username string, opts Options) (quic.Connection, proto.LoginAccept, error) {
	conn, err := dial(ctx, address, opts)
	if err != nil {
		return nil, proto.LoginAccept{}, transport.Classify(err)
	}
	// 登录期间被取消时直接关闭连接，让阻塞的读写返回
	stopWatch := context.AfterFunc(ctx, func() {
		transport.Close(conn, proto.CloseNormal, "client quit")
	})
	defer stopWatch()

	lctx, lcancel := context.WithTimeout(ctx, opts.LoginTimeout)
	defer lcancel()
	accept, err := login(lctx, conn, username, opts)
	if err != nil {
		transport.Close(conn, proto.CloseNormal, "client quit")
		return nil, proto.LoginAccept{}, transport.Classify(err)
	}
	return conn, accept, nil
}

// session 打开聊天流并并行收发，直到任一方向出错或 ctx 取消
func session(ctx context.Context, conn quic.Connection, n netChannels) error {
	// 停止时直接关闭连接，所有阻塞在该连接上的读写立即返回
	stopConn := context.AfterFunc(ctx, func() {
		transport.Close(conn, proto.CloseNormal, "client quit")
	})
	defer stopConn()

	chat, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return errors.Wrap(err, "open chat stream")
	}
	if _, err := chat.Write([]byte{proto.ChatStreamOpen}); err != nil {
		return errors.Wrap(err, "write chat stream header")
	}

	g, gctx := errgroup.WithContext(ctx)
	// 任一方向结束或停止时中断两个方向，包括因流量控制阻塞的写
	stopStream := context.AfterFunc(gctx, func() {
		chat.CancelRead(0)
		chat.CancelWrite(0)
	})
	defer stopStream()

	g.Go(func() error { return recvDriver(gctx, chat, n.incoming) })
	g.Go(func() error { return sendDriver(gctx, chat, n.outgoing) })
	return g.Wait()
}

func recvDriver(ctx context.Context, stream quic.Stream, incoming chan<- []byte) error {
	fr := wire.NewFrameReader(stream)
	for {
		r, err := fr.Next()
		if err != nil {
			if err == io.EOF {
				return errChatClosed
			}
			return err
		}
		select {
		case incoming <- bytes.Clone(r.Bytes()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sendDriver(ctx context.Context, stream quic.Stream, outgoing <-chan []byte) error {
	var (
		scratch []byte
		err     error
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-outgoing:
			scratch, err = wire.WriteMessage(stream, payload, scratch)
			if errors.Is(err, wire.ErrMessageTooLarge) {
				logging.Log.Warnf("Dropping oversized payload (%d bytes)", len(payload))
				continue
			}
			if err != nil {
				return err
			}
		}
	}
}
