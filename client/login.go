package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"blocknet/logging"
	"blocknet/proto"
	"blocknet/transport"
	"blocknet/wire"
)

// 本文件只负责连接服务器并取得登录响应。
// 登录之后的数据通过会话阶段的流收发，不在这里处理。

// dial 建立 QUIC 连接
func dial(ctx context.Context, address string, opts Options) (quic.Connection, error) {
	dctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	logging.Log.Infof("Connecting to %s...", address)
	conn, err := quic.DialAddr(dctx, address, opts.Transport.ClientTLSConfig(), opts.Transport.QUICConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", address)
	}
	return conn, nil
}

// login 在新的双向流上完成一次握手：发送请求，等待唯一一条响应
func login(ctx context.Context, conn quic.Connection, username string, opts Options) (proto.LoginAccept, error) {
	frame, err := proto.LoginRequest{Header: opts.Header, Username: username}.Frame()
	if err != nil {
		return proto.LoginAccept{}, err
	}

	hello, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return proto.LoginAccept{}, errors.Wrap(err, "open login stream")
	}
	if _, err := hello.Write(frame); err != nil {
		return proto.LoginAccept{}, errors.Wrap(err, "write login request")
	}
	// 请求只有一条，结束发送方向
	if err := hello.Close(); err != nil {
		return proto.LoginAccept{}, errors.Wrap(err, "finish login stream")
	}

	_ = hello.SetReadDeadline(time.Now().Add(opts.LoginTimeout))
	r, err := wire.NewFrameReader(hello).Next()
	if err != nil {
		return proto.LoginAccept{}, transport.Classify(errors.Wrap(err, "read login response"))
	}
	return proto.DecodeLoginAccept(r)
}
