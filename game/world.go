// Package game 实现服务器端的同步游戏循环：以固定频率轮询网络层，
// 为登录请求分配身份，维护在线玩家并转发聊天。世界状态只在 Tick 协程中修改。
package game

import (
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"blocknet/logging"
	"blocknet/proto"
	"blocknet/server"
)

// Network 游戏循环所需的网络层接口，由 *server.NetServer 实现
type Network interface {
	IsOpen() bool
	Poll() (server.Inbound, bool)
	PollEvent() (server.Event, bool)
}

// Config 可在运行期通过 /admin/config 修改的规则
type Config struct {
	Spawn      proto.Vec3 `json:"spawn"`
	WorldSeed  uint64     `json:"seed"`
	MaxPlayers int        `json:"maxPlayers"`
}

func DefaultConfig() Config {
	return Config{
		Spawn:      proto.Vec3{X: 0, Y: 64, Z: 0},
		MaxPlayers: proto.MaxOnlinePlayers,
	}
}

// World 世界：权威状态维护在内存，单协程 Tick 推进
type World struct {
	net     Network
	cfg     Config
	ids     *IDAllocator
	metrics *Metrics
	feed    *Feed
	log     *zap.SugaredLogger

	players map[proto.NetworkID]*Player
	// pending 已分配身份但尚未收到 PlayerJoined 的登录
	pending map[proto.NetworkID]string
	// names 小写用户名 → ID，覆盖 players 与 pending
	names map[string]proto.NetworkID

	// control 其他协程（HTTP 管理接口）提交的操作，在 Tick 中执行
	control chan func(*World)
	stopped chan struct{}

	tickSeq int64
}

// NewWorld 创建世界。Run 之前不会轮询网络。
func NewWorld(net Network, cfg Config) *World {
	if cfg.MaxPlayers <= 0 || cfg.MaxPlayers > proto.MaxOnlinePlayers {
		cfg.MaxPlayers = proto.MaxOnlinePlayers
	}
	return &World{
		net:     net,
		cfg:     cfg,
		ids:     NewIDAllocator(proto.MaxOnlinePlayers),
		metrics: &Metrics{},
		feed:    newFeed(),
		log:     logging.Named("game"),
		players: make(map[proto.NetworkID]*Player),
		pending: make(map[proto.NetworkID]string),
		names:   make(map[string]proto.NetworkID),
		control: make(chan func(*World), 16),
		stopped: make(chan struct{}),
	}
}

func (w *World) Metrics() *Metrics { return w.metrics }

func (w *World) Feed() *Feed { return w.feed }

// TickSeq 已执行的 Tick 数，可在任意协程读取
func (w *World) TickSeq() int64 { return atomic.LoadInt64(&w.tickSeq) }

// Player 按 ID 查找在线玩家。只应在 Tick 协程（或 Tick 未运行时）调用。
func (w *World) Player(id proto.NetworkID) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// Online 在线玩家数
func (w *World) Online() int { return len(w.players) }

// Tick 执行一帧：管理操作 → 观察者注册 → 网络事件 → 入站负载 → 状态推送
func (w *World) Tick() {
	start := time.Now()
	seq := atomic.AddInt64(&w.tickSeq, 1)

	w.runControl()
	w.feed.drain()

	for {
		ev, ok := w.net.PollEvent()
		if !ok {
			break
		}
		w.handleEvent(ev)
	}
	for {
		in, ok := w.net.Poll()
		if !ok {
			break
		}
		w.handleInbound(in)
	}

	// 每秒推送一次完整状态
	if seq%proto.TicksPerSecond == 0 && w.feed.active() {
		states := make([]PlayerState, 0, len(w.players))
		for _, p := range w.players {
			states = append(states, p.State())
		}
		w.feed.publish(FeedEvent{Type: "state", Tick: seq, Players: states})
	}

	w.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (w *World) runControl() {
	for {
		select {
		case fn := <-w.control:
			fn(w)
		default:
			return
		}
	}
}

func (w *World) handleEvent(ev server.Event) {
	switch e := ev.(type) {
	case *server.LoginRequest:
		w.answerLogin(e)
	case server.PlayerJoined:
		w.join(e.Session)
	case server.PlayerLeft:
		w.leave(e.ID)
	default:
		w.log.Warnf("Unhandled network event %T", ev)
	}
}

// answerLogin 同一 Tick 内必须给出答复
func (w *World) answerLogin(req *server.LoginRequest) {
	name := req.Username
	key := strings.ToLower(name)

	deny := func(reason string) {
		w.metrics.inc(&w.metrics.LoginsDenied)
		w.log.Infof("Denied login for %q from %s: %s", name, req.Remote, reason)
		req.Deny(reason)
	}
	if len(name) > MaxUsernameLen {
		deny("Username too long")
		return
	}
	if _, taken := w.names[key]; taken {
		deny("Username already taken")
		return
	}
	if len(w.players)+len(w.pending) >= w.cfg.MaxPlayers {
		deny("Server full")
		return
	}
	id, ok := w.ids.Allocate()
	if !ok {
		deny("Server full")
		return
	}

	w.pending[id] = name
	w.names[key] = id
	w.metrics.inc(&w.metrics.LoginsAccepted)
	req.Accept(proto.LoginAccept{
		ID:        id,
		Position:  w.cfg.Spawn,
		WorldSeed: w.cfg.WorldSeed,
	})
	w.log.Debugf("Allocated %s for %q", id, name)
}

func (w *World) join(s *server.Session) {
	name, ok := w.pending[s.ID]
	if !ok {
		// 身份必定先经 answerLogin 分配
		w.log.Warnf("Join for unallocated %s (%q)", s.ID, s.Username)
		return
	}
	delete(w.pending, s.ID)

	p := &Player{
		ID:       s.ID,
		Username: name,
		Position: w.cfg.Spawn,
		JoinedAt: time.Now(),
		session:  s,
	}
	w.players[s.ID] = p
	atomic.StoreInt64(&w.metrics.PlayersOnline, int64(len(w.players)))

	w.log.Infof("%s joined as %s", name, s.ID)
	w.feed.publish(FeedEvent{Type: "join", Tick: w.tickSeq, Player: ptr(p.State())})
}

func (w *World) leave(id proto.NetworkID) {
	if p, ok := w.players[id]; ok {
		delete(w.players, id)
		delete(w.names, strings.ToLower(p.Username))
		atomic.StoreInt64(&w.metrics.PlayersOnline, int64(len(w.players)))
		w.log.Infof("%s (%s) left after %s", p.Username, id, time.Since(p.JoinedAt).Round(time.Second))
		w.feed.publish(FeedEvent{Type: "leave", Tick: w.tickSeq, Player: ptr(p.State())})
	} else if name, ok := w.pending[id]; ok {
		delete(w.pending, id)
		delete(w.names, strings.ToLower(name))
	}
	w.ids.Release(id)
}

func (w *World) handleInbound(in server.Inbound) {
	p, ok := w.players[in.ID]
	if !ok {
		w.log.Debugf("Dropping payload from unknown %s", in.ID)
		return
	}
	msg, err := proto.DecodeMessage(in.Payload)
	if err != nil {
		w.metrics.inc(&w.metrics.DecodeErrors)
		w.log.Debugf("Bad payload from %s: %v", in.ID, err)
		return
	}
	switch m := msg.(type) {
	case proto.Chat:
		w.broadcastChat(p, m.Text)
	}
}

// broadcastChat 以 "用户名: 内容" 转发给所有在线玩家（包括发送者）
func (w *World) broadcastChat(from *Player, text string) {
	line := truncate(from.Username+": "+text, proto.MaxChatLen)
	payload, err := proto.EncodeChat(line)
	if err != nil {
		w.log.Warnf("Encoding chat from %s: %v", from.ID, err)
		return
	}
	w.metrics.inc(&w.metrics.ChatMessages)
	w.log.Infof("[chat] %s", line)

	for _, p := range w.players {
		if !p.session.Send(payload) {
			w.metrics.inc(&w.metrics.SendDropped)
		}
	}
	w.feed.publish(FeedEvent{Type: "chat", Tick: w.tickSeq, Player: ptr(from.State()), Text: line})
}

// truncate 截断到 n 字节以内，不拆分 UTF-8 字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func ptr[T any](v T) *T { return &v }
