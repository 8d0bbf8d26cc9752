package game

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blocknet/logging"
)

// FeedEvent 推送给观察者的 JSON 事件
type FeedEvent struct {
	Type    string        `json:"type"` // join | leave | chat | state
	Tick    int64         `json:"tick"`
	Player  *PlayerState  `json:"player,omitempty"`
	Text    string        `json:"text,omitempty"`
	Players []PlayerState `json:"players,omitempty"`
}

// spectator 一个只读的 WebSocket 观察者
type spectator struct {
	ws   *websocket.Conn
	send chan []byte
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (s *spectator) Enqueue(b []byte) {
	select {
	case s.send <- b:
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (s *spectator) writePump() {
	defer s.ws.Close()
	for msg := range s.send {
		_ = s.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := s.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
		time.Now().Add(time.Second))
}

// readPump 观察者不发送数据，只用于感知断开
func (s *spectator) readPump(f *Feed) {
	defer f.leave(s)
	s.ws.SetReadLimit(512)
	_ = s.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		if _, _, err := s.ws.NextReader(); err != nil {
			return
		}
	}
}

// Feed 观察者集合。集合本身只在 Tick 协程中修改；
// HTTP 协程把新观察者放入 pending，注销通过通道。
type Feed struct {
	mu      sync.Mutex
	pending []*spectator
	stopped bool

	unregister chan *spectator
	closed     chan struct{}

	spectators map[*spectator]struct{}
}

func newFeed() *Feed {
	return &Feed{
		unregister: make(chan *spectator, 16),
		closed:     make(chan struct{}),
		spectators: make(map[*spectator]struct{}),
	}
}

// add 登记观察者；Feed 已关闭时返回 false，调用方负责断开
func (f *Feed) add(s *spectator) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return false
	}
	f.pending = append(f.pending, s)
	return true
}

func (f *Feed) takePending() []*spectator {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending
	f.pending = nil
	return p
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源
		return true
	},
}

// HandleFeed WebSocket 接入：/feed
func (f *Feed) HandleFeed(w http.ResponseWriter, r *http.Request) {
	select {
	case <-f.closed:
		http.Error(w, "world stopped", http.StatusServiceUnavailable)
		return
	default:
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Log.Warnf("feed upgrade error: %v", err)
		return
	}
	s := &spectator{ws: ws, send: make(chan []byte, 64)}
	if !f.add(s) {
		_ = ws.Close()
		return
	}
	go s.writePump()
	go s.readPump(f)
}

func (f *Feed) leave(s *spectator) {
	select {
	case f.unregister <- s:
	case <-f.closed:
	}
}

// drain 处理登记与注销，在每个 Tick 开始时调用
func (f *Feed) drain() {
	for _, s := range f.takePending() {
		f.spectators[s] = struct{}{}
	}
	for {
		select {
		case s := <-f.unregister:
			if _, ok := f.spectators[s]; ok {
				delete(f.spectators, s)
				close(s.send)
			}
		default:
			return
		}
	}
}

func (f *Feed) active() bool { return len(f.spectators) > 0 }

func (f *Feed) publish(ev FeedEvent) {
	if len(f.spectators) == 0 {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		logging.Log.Warnf("feed marshal: %v", err)
		return
	}
	for s := range f.spectators {
		s.Enqueue(b)
	}
}

// close 世界停止时断开所有观察者。之后到达的观察者由 add 拒绝。
func (f *Feed) close() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	close(f.closed)
	f.drain()
	for s := range f.spectators {
		delete(f.spectators, s)
		close(s.send)
	}
}
