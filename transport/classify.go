package transport

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"blocknet/proto"
	"blocknet/wire"
)

// Classify 把网络层错误归入 proto 的错误分类：
// 对端以关闭码 1/2/3 关闭 → *proto.RejectError；分帧错误原样返回；
// 其余（超时、对端正常关闭、无状态重置……）→ *proto.TransportError。
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		rej *proto.RejectError
		te  *proto.TransportError
		fe  *wire.FramingError
	)
	if errors.As(err, &rej) || errors.As(err, &te) || errors.As(err, &fe) ||
		errors.Is(err, proto.ErrMalformedResponse) {
		return err
	}

	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		switch code := proto.CloseCode(appErr.ErrorCode); code {
		case proto.CloseProtocolMismatch, proto.CloseIdentityRejected, proto.CloseUnavailable:
			return &proto.RejectError{Code: code, Reason: appErr.ErrorMessage, Remote: appErr.Remote}
		}
	}
	if errors.Is(err, io.EOF) {
		return &proto.TransportError{Err: errors.Wrap(err, "stream closed by peer")}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &proto.TransportError{Err: errors.Wrap(err, "timed out")}
	}
	return &proto.TransportError{Err: err}
}
