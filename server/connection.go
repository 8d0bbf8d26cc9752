package server

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blocknet/proto"
	"blocknet/transport"
	"blocknet/wire"
)

var (
	errLoginTimeout = errors.New("timed out waiting for identity allocation")
	errChatClosed   = errors.New("chat stream finished by client")
)

// clientConn 单个连接的协程：握手 → 会话收发 → 离开
type clientConn struct {
	conn quic.Connection
	l    *listener
	log  *zap.SugaredLogger
}

func (c *clientConn) serve(ctx context.Context) {
	// 服务器停止时通知对端
	stopWatch := context.AfterFunc(ctx, func() {
		transport.Close(c.conn, proto.CloseNormal, "Server stopping")
	})
	defer stopWatch()
	defer transport.Close(c.conn, proto.CloseNormal, "")

	req, hello, err := c.readLogin(ctx)
	if err != nil {
		c.l.metrics.inc(&c.l.metrics.LoginsRejected)
		c.log.Warnf("Login attempt failed: %v", err)
		return
	}
	c.log.Debugf("Username: %s. Requesting network ID...", req.Username)

	res, err := c.allocate(ctx, req.Username)
	if err != nil {
		c.log.Warnf("Login attempt failed: %v", err)
		return
	}
	if !res.Accepted {
		c.l.metrics.inc(&c.l.metrics.LoginsRejected)
		transport.Close(c.conn, proto.CloseIdentityRejected, res.Reason)
		c.log.Infof("Login for %q denied: %s", req.Username, res.Reason)
		return
	}

	// 身份已分配：从这里起 PlayerLeft 一定恰好发出一次，避免泄漏 NetworkID
	id := res.Accept.ID
	defer c.l.events.push(PlayerLeft{ID: id})

	if err := writeAccept(hello, res.Accept); err != nil {
		c.log.Warnf("Writing login response: %v", err)
		return
	}
	c.l.metrics.inc(&c.l.metrics.LoginsAccepted)

	session, send := NewSession(id, req.Username, c.l.opts.SendQueue)
	c.log = c.log.With("nid", id.String(), "user", req.Username, "trace", session.TraceID.String())

	c.l.metrics.inc(&c.l.metrics.ActiveSessions)
	defer c.l.metrics.dec(&c.l.metrics.ActiveSessions)
	c.l.events.push(PlayerJoined{Session: session})

	if err := c.run(ctx, session, send); err != nil && ctx.Err() == nil {
		c.log.Debugf("Session ended: %v", transport.Classify(err))
	}
	c.log.Debugf("Client with username %q disconnected", req.Username)
}

// readLogin 在握手流上读取并校验登录请求。校验失败时按失败类别以不同关闭码关闭连接，不写任何响应。
func (c *clientConn) readLogin(ctx context.Context) (proto.LoginRequest, quic.Stream, error) {
	timeout := c.l.opts.Transport.HandshakeTimeout
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hello, err := c.conn.AcceptStream(actx)
	if err != nil {
		return proto.LoginRequest{}, nil, errors.Wrap(err, "accept login stream")
	}
	_ = hello.SetReadDeadline(time.Now().Add(timeout))

	r, err := wire.NewFrameReader(hello).Next()
	if err != nil {
		if errors.Is(err, wire.ErrTruncated) || err == io.EOF {
			transport.Close(c.conn, proto.CloseProtocolMismatch, "Invalid login request")
		}
		return proto.LoginRequest{}, nil, errors.Wrap(err, "read login request")
	}
	c.log.Debugf("Received login message! Length: %d", r.Remaining())

	req, err := proto.DecodeLoginRequest(r)
	if err != nil {
		var rej *proto.RejectError
		if errors.As(err, &rej) {
			transport.Close(c.conn, rej.Code, rej.Reason)
		}
		return req, nil, err
	}
	_ = hello.SetReadDeadline(time.Time{})
	return req, hello, nil
}

// allocate 请求游戏循环分配身份并等待回复，最多 LoginTimeout
func (c *clientConn) allocate(ctx context.Context, username string) (proto.LoginResult, error) {
	req, reply := NewLoginRequest(username, c.conn.RemoteAddr().String())
	c.l.events.push(req)

	timer := time.NewTimer(c.l.opts.LoginTimeout)
	defer timer.Stop()

	select {
	case res := <-reply:
		return res, nil
	case <-timer.C:
		c.l.metrics.inc(&c.l.metrics.LoginTimeouts)
		transport.Close(c.conn, proto.CloseUnavailable, "Login timed out")
	case <-ctx.Done():
	}

	// 游戏循环可能在超时之后才分配身份，此时立即归还
	select {
	case res := <-reply:
		if res.Accepted {
			c.l.events.push(PlayerLeft{ID: res.Accept.ID})
		}
	case <-ctx.Done():
	}
	return proto.LoginResult{}, errLoginTimeout
}

func writeAccept(hello quic.Stream, a proto.LoginAccept) error {
	frame, err := a.Frame()
	if err != nil {
		return err
	}
	if _, err := hello.Write(frame); err != nil {
		return errors.Wrap(err, "write login response")
	}
	// 结束握手流的发送方向
	return errors.Wrap(hello.Close(), "finish login stream")
}

// run 接受客户端打开的聊天流，然后并行收发直到连接结束
func (c *clientConn) run(ctx context.Context, s *Session, send <-chan []byte) error {
	chat, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return errors.Wrap(err, "accept chat stream")
	}
	var open [1]byte
	if _, err := io.ReadFull(chat, open[:]); err != nil {
		return errors.Wrap(err, "read chat stream header")
	}
	if open[0] != proto.ChatStreamOpen {
		transport.Close(c.conn, proto.CloseProtocolMismatch, "Unknown stream")
		return errors.Errorf("unexpected stream type %d", open[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	// 任一方向结束都让读写返回，包括因流量控制阻塞的写
	stopStream := context.AfterFunc(gctx, func() {
		chat.CancelRead(0)
		chat.CancelWrite(0)
	})
	defer stopStream()

	g.Go(func() error { return c.recvDriver(chat, s.ID) })
	g.Go(func() error { return c.sendDriver(gctx, chat, send) })
	return g.Wait()
}

func (c *clientConn) recvDriver(stream quic.Stream, id proto.NetworkID) error {
	fr := wire.NewFrameReader(stream)
	for {
		r, err := fr.Next()
		if err != nil {
			if err == io.EOF {
				return errChatClosed
			}
			return err
		}
		c.l.metrics.inc(&c.l.metrics.PayloadsIn)
		c.l.incoming.push(Inbound{ID: id, Payload: bytes.Clone(r.Bytes())})
	}
}

func (c *clientConn) sendDriver(ctx context.Context, stream quic.Stream, send <-chan []byte) error {
	var (
		scratch []byte
		err     error
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-send:
			scratch, err = wire.WriteMessage(stream, payload, scratch)
			if errors.Is(err, wire.ErrMessageTooLarge) {
				c.log.Warnf("Dropping oversized payload (%d bytes)", len(payload))
				continue
			}
			if err != nil {
				return err
			}
			c.l.metrics.inc(&c.l.metrics.PayloadsOut)
		}
	}
}
