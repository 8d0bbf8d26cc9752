package proto

import (
	"github.com/pkg/errors"

	"blocknet/wire"
)

// LoginAcceptSize 接受响应的最小负载长度：id(2) + 位置(12) + 朝向(8) + 种子(8)
const LoginAcceptSize = 30

// loginRequestMin magic + version + 用户名长度
const loginRequestMin = 6

// LoginRequest 客户端在握手流上发送的唯一一条消息
type LoginRequest struct {
	Header   Header
	Username string
}

// Frame 编码为带长度前缀的消息
func (r LoginRequest) Frame() ([]byte, error) {
	buf := make([]byte, wire.MessageHeaderSize+loginRequestMin+len(r.Username))
	w := wire.NewMessageWriter(buf)
	w.WriteU16(r.Header.Magic).
		WriteU16(r.Header.Version).
		WriteStr(r.Username).
		WriteMessageLen()
	if err := w.Err(); err != nil {
		return nil, errors.Wrap(err, "encode login request")
	}
	return w.Bytes(), nil
}

// DecodeLoginRequest 校验并解码登录请求负载。
// 协议标签不匹配时立即拒绝，不再解释后续字节。
func DecodeLoginRequest(r *wire.ByteReader) (LoginRequest, error) {
	invalid := Reject(CloseProtocolMismatch, "Invalid login request")

	if !r.HasMore(loginRequestMin) {
		return LoginRequest{}, invalid
	}
	var req LoginRequest
	if req.Header.Magic = r.ReadU16(); req.Header.Magic != Magic {
		return req, invalid
	}
	if req.Header.Version = r.ReadU16(); req.Header.Version != Version {
		return req, invalid
	}

	req.Username = r.ReadStr()
	if r.Err() != nil {
		return req, invalid
	}
	if len(req.Username) < MinUsernameLen {
		return req, Reject(CloseIdentityRejected, "Username too short")
	}
	return req, nil
}

// LoginAccept 服务器接受登录后下发的身份与出生状态
type LoginAccept struct {
	ID           NetworkID
	Position     Vec3
	HeadRotation Vec2
	WorldSeed    uint64
}

func (a LoginAccept) Frame() ([]byte, error) {
	buf := make([]byte, wire.MessageHeaderSize+LoginAcceptSize)
	w := wire.NewMessageWriter(buf)
	w.WriteU16(uint16(a.ID)).
		WriteF32(a.Position.X).
		WriteF32(a.Position.Y).
		WriteF32(a.Position.Z).
		WriteF32(a.HeadRotation.X).
		WriteF32(a.HeadRotation.Y).
		WriteU64(a.WorldSeed).
		WriteMessageLen()
	if err := w.Err(); err != nil {
		return nil, errors.Wrap(err, "encode login accept")
	}
	return w.Bytes(), nil
}

// DecodeLoginAccept 响应不足 30 字节视为硬失败
func DecodeLoginAccept(r *wire.ByteReader) (LoginAccept, error) {
	if !r.HasMore(LoginAcceptSize) {
		return LoginAccept{}, errors.Wrapf(ErrMalformedResponse, "got only %d bytes", r.Remaining())
	}
	a := LoginAccept{
		ID: NetworkID(r.ReadU16()),
		Position: Vec3{
			X: r.ReadF32(),
			Y: r.ReadF32(),
			Z: r.ReadF32(),
		},
		HeadRotation: Vec2{
			X: r.ReadF32(), // yaw
			Y: r.ReadF32(), // pitch
		},
		WorldSeed: r.ReadU64(),
	}
	return a, r.Err()
}

// LoginResult 游戏循环对一次登录请求的裁决，只产生一次、只消费一次
type LoginResult struct {
	Accepted bool
	Accept   LoginAccept
	Reason   string
}

func Accepted(a LoginAccept) LoginResult { return LoginResult{Accepted: true, Accept: a} }

func Denied(reason string) LoginResult { return LoginResult{Reason: reason} }
