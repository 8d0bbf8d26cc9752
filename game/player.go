package game

import (
	"time"

	"blocknet/proto"
	"blocknet/server"
)

// MaxUsernameLen 用户名上限（字节），保证广播的聊天行不会被用户名占满
const MaxUsernameLen = 32

// Player 世界中的玩家实体（服务端权威状态）
type Player struct {
	ID           proto.NetworkID
	Username     string
	Position     proto.Vec3
	HeadRotation proto.Vec2
	JoinedAt     time.Time

	session *server.Session // 网络连接的发送端
}

// PlayerState 为推送给观察者的轻量状态
type PlayerState struct {
	ID   uint16  `json:"id"`
	User string  `json:"user"`
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	Z    float32 `json:"z"`
}

func (p *Player) State() PlayerState {
	return PlayerState{
		ID:   uint16(p.ID),
		User: p.Username,
		X:    p.Position.X,
		Y:    p.Position.Y,
		Z:    p.Position.Z,
	}
}
