// Package transport 封装 QUIC 端点的创建：TLS 配置、自签名证书、连接参数，
// 以及把 quic-go 的错误映射到 proto 的错误分类。
package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"blocknet/proto"
)

// Options QUIC 连接参数
type Options struct {
	KeepAlivePeriod  time.Duration
	MaxIdleTimeout   time.Duration
	HandshakeTimeout time.Duration

	// 证书文件；为空时启动时生成自签名证书
	CertFile string
	KeyFile  string
	// ServerName 客户端 SNI
	ServerName string
}

func DefaultOptions() Options {
	return Options{
		KeepAlivePeriod:  6 * time.Second,
		MaxIdleTimeout:   30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ServerName:       "localhost",
	}
}

func (o Options) QUICConfig() *quic.Config {
	return &quic.Config{
		KeepAlivePeriod:      o.KeepAlivePeriod,
		MaxIdleTimeout:       o.MaxIdleTimeout,
		HandshakeIdleTimeout: o.HandshakeTimeout,
	}
}

// ServerTLSConfig 加载证书，未配置时生成自签名证书
func (o Options) ServerTLSConfig() (*tls.Config, error) {
	var (
		cert tls.Certificate
		err  error
	)
	if o.CertFile != "" || o.KeyFile != "" {
		cert, err = tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "load certificate")
		}
	} else {
		cert, err = selfSigned(o.ServerName)
		if err != nil {
			return nil, errors.Wrap(err, "generate self-signed certificate")
		}
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{proto.ALPN},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientTLSConfig 不校验服务器证书（服务器默认使用自签名证书）
func (o Options) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		ServerName:         o.ServerName,
		InsecureSkipVerify: true,
		NextProtos:         []string{proto.ALPN},
		MinVersion:         tls.VersionTLS13,
	}
}

func selfSigned(host string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: host},
		DNSNames:     []string{host},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

// Close 以应用层关闭码关闭连接
func Close(conn quic.Connection, code proto.CloseCode, reason string) {
	_ = conn.CloseWithError(quic.ApplicationErrorCode(code), reason)
}
