package transport

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/quic-go/quic-go"

	"blocknet/proto"
	"blocknet/wire"
)

func TestClassify(t *testing.T) {
	framing := &wire.FramingError{Section: "payload", Want: 4, Got: 1}

	tests := []struct {
		name      string
		err       error
		target    error
		code      proto.CloseCode
		transport bool
	}{
		{
			name:   "remote protocol mismatch",
			err:    fmt.Errorf("read: %w", &quic.ApplicationError{Remote: true, ErrorCode: 1, ErrorMessage: "Invalid login request"}),
			target: proto.ErrProtocolMismatch,
			code:   proto.CloseProtocolMismatch,
		},
		{
			name:   "remote identity rejection",
			err:    &quic.ApplicationError{Remote: true, ErrorCode: 2, ErrorMessage: "Username too short"},
			target: proto.ErrIdentityRejected,
			code:   proto.CloseIdentityRejected,
		},
		{
			name:   "remote unavailable",
			err:    &quic.ApplicationError{Remote: true, ErrorCode: 3},
			target: proto.ErrUnavailable,
			code:   proto.CloseUnavailable,
		},
		{
			name:      "normal close",
			err:       &quic.ApplicationError{Remote: true, ErrorCode: 0},
			transport: true,
		},
		{
			name:      "eof",
			err:       io.EOF,
			transport: true,
		},
		{
			name:   "framing error kept",
			err:    framing,
			target: wire.ErrTruncated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.transport {
				var te *proto.TransportError
				if !errors.As(got, &te) {
					t.Fatalf("Classify() = %T %v; want *proto.TransportError", got, got)
				}
				return
			}
			if !errors.Is(got, tt.target) {
				t.Fatalf("Classify() = %v; want match for %v", got, tt.target)
			}
			var rej *proto.RejectError
			if tt.code != 0 {
				if !errors.As(got, &rej) || rej.Code != tt.code || !rej.Remote {
					t.Errorf("Classify() = %#v; want remote code %d", got, tt.code)
				}
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) != nil")
	}
}

func TestServerTLSConfigSelfSigned(t *testing.T) {
	cfg, err := DefaultOptions().ServerTLSConfig()
	if err != nil {
		t.Fatalf("ServerTLSConfig: %v", err)
	}
	if len(cfg.Certificates) != 1 || len(cfg.NextProtos) != 1 || cfg.NextProtos[0] != proto.ALPN {
		t.Errorf("unexpected config: %d certs, protos %v", len(cfg.Certificates), cfg.NextProtos)
	}
}
