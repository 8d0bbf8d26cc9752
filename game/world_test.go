package game

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blocknet/proto"
	"blocknet/server"
)

// fakeNet 用切片模拟网络层的两个队列
type fakeNet struct {
	events  []server.Event
	inbound []server.Inbound
	closed  bool
}

func (n *fakeNet) IsOpen() bool { return !n.closed }

func (n *fakeNet) Poll() (server.Inbound, bool) {
	if len(n.inbound) == 0 {
		return server.Inbound{}, false
	}
	in := n.inbound[0]
	n.inbound = n.inbound[1:]
	return in, true
}

func (n *fakeNet) PollEvent() (server.Event, bool) {
	if len(n.events) == 0 {
		return nil, false
	}
	ev := n.events[0]
	n.events = n.events[1:]
	return ev, true
}

func (n *fakeNet) login(name string) <-chan proto.LoginResult {
	req, reply := server.NewLoginRequest(name, "127.0.0.1:1")
	n.events = append(n.events, req)
	return reply
}

func answer(t *testing.T, reply <-chan proto.LoginResult) proto.LoginResult {
	t.Helper()
	select {
	case res := <-reply:
		return res
	default:
		t.Fatalf("login request not answered within the tick")
		return proto.LoginResult{}
	}
}

// joinPlayer 完成登录与加入，返回会话的发送队列
func joinPlayer(t *testing.T, w *World, n *fakeNet, name string) (proto.NetworkID, <-chan []byte) {
	t.Helper()
	reply := n.login(name)
	w.Tick()
	res := answer(t, reply)
	if !res.Accepted {
		t.Fatalf("%s denied: %s", name, res.Reason)
	}
	s, send := server.NewSession(res.Accept.ID, name, 8)
	n.events = append(n.events, server.PlayerJoined{Session: s})
	w.Tick()
	return res.Accept.ID, send
}

func TestLoginAccepted(t *testing.T) {
	n := &fakeNet{}
	cfg := DefaultConfig()
	cfg.WorldSeed = 42
	w := NewWorld(n, cfg)

	reply := n.login("Alice")
	w.Tick()
	res := answer(t, reply)
	if !res.Accepted {
		t.Fatalf("denied: %s", res.Reason)
	}
	want := proto.LoginAccept{ID: 1, Position: proto.Vec3{Y: 64}, WorldSeed: 42}
	if res.Accept != want {
		t.Fatalf("got %+v, want %+v", res.Accept, want)
	}
}

func TestLoginDenied(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(n *fakeNet, w *World)
		user   string
		reason string
	}{
		{
			name:   "too long",
			user:   strings.Repeat("x", MaxUsernameLen+1),
			reason: "Username too long",
		},
		{
			name: "taken",
			setup: func(n *fakeNet, w *World) {
				n.login("alice")
				w.Tick()
			},
			user:   "ALICE",
			reason: "Username already taken",
		},
		{
			name: "full",
			setup: func(n *fakeNet, w *World) {
				w.cfg.MaxPlayers = 1
				n.login("alice")
				w.Tick()
			},
			user:   "bob",
			reason: "Server full",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n := &fakeNet{}
			w := NewWorld(n, DefaultConfig())
			if c.setup != nil {
				c.setup(n, w)
			}
			reply := n.login(c.user)
			w.Tick()
			res := answer(t, reply)
			if res.Accepted {
				t.Fatalf("accepted %q", c.user)
			}
			if res.Reason != c.reason {
				t.Fatalf("reason %q, want %q", res.Reason, c.reason)
			}
		})
	}
}

func TestJoinLeave(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())

	id, _ := joinPlayer(t, w, n, "alice")
	if w.Online() != 1 {
		t.Fatalf("online %d, want 1", w.Online())
	}
	p, ok := w.Player(id)
	if !ok || p.Username != "alice" || p.Position != (proto.Vec3{Y: 64}) {
		t.Fatalf("player %+v %v", p, ok)
	}

	n.events = append(n.events, server.PlayerLeft{ID: id})
	w.Tick()
	if w.Online() != 0 || w.ids.InUse() != 0 {
		t.Fatalf("online %d, ids in use %d", w.Online(), w.ids.InUse())
	}

	// 名字在离开后可再次使用
	reply := n.login("alice")
	w.Tick()
	if res := answer(t, reply); !res.Accepted {
		t.Fatalf("rejoin denied: %s", res.Reason)
	}
}

func TestLeaveBeforeJoinReleasesIdentity(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())

	reply := n.login("alice")
	w.Tick()
	res := answer(t, reply)

	n.events = append(n.events, server.PlayerLeft{ID: res.Accept.ID})
	w.Tick()
	if w.ids.InUse() != 0 || len(w.pending) != 0 || len(w.names) != 0 {
		t.Fatalf("identity leaked: ids=%d pending=%d names=%d", w.ids.InUse(), len(w.pending), len(w.names))
	}
}

func TestChatBroadcast(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())

	alice, aliceSend := joinPlayer(t, w, n, "alice")
	_, bobSend := joinPlayer(t, w, n, "bob")

	payload, err := proto.EncodeChat("hello")
	if err != nil {
		t.Fatal(err)
	}
	n.inbound = append(n.inbound, server.Inbound{ID: alice, Payload: payload})
	w.Tick()

	for name, ch := range map[string]<-chan []byte{"alice": aliceSend, "bob": bobSend} {
		select {
		case got := <-ch:
			msg, err := proto.DecodeMessage(got)
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if msg != (proto.Chat{Text: "alice: hello"}) {
				t.Fatalf("%s got %+v", name, msg)
			}
		default:
			t.Fatalf("%s received nothing", name)
		}
	}
	if got := w.metrics.Snapshot()["chat_messages"]; got != int64(1) {
		t.Fatalf("chat_messages %v", got)
	}
}

func TestChatLineTruncated(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())
	id, send := joinPlayer(t, w, n, "alice")

	payload, _ := proto.EncodeChat(strings.Repeat("é", proto.MaxChatLen/2))
	n.inbound = append(n.inbound, server.Inbound{ID: id, Payload: payload})
	w.Tick()

	msg, err := proto.DecodeMessage(<-send)
	if err != nil {
		t.Fatal(err)
	}
	text := msg.(proto.Chat).Text
	if len(text) > proto.MaxChatLen {
		t.Fatalf("line is %d bytes", len(text))
	}
	if !strings.HasPrefix(text, "alice: é") {
		t.Fatalf("unexpected line %q", text)
	}
}

func TestBadPayloadCounted(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())
	id, _ := joinPlayer(t, w, n, "alice")

	n.inbound = append(n.inbound,
		server.Inbound{ID: id, Payload: []byte{99}},
		server.Inbound{ID: 55, Payload: []byte{1, 0, 0}},
	)
	w.Tick()
	if got := w.metrics.Snapshot()["decode_errors"]; got != int64(1) {
		t.Fatalf("decode_errors %v", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"aé", 2, "a"},
		{"日本", 4, "日"},
	}
	for _, c := range cases {
		if got := truncate(c.in, c.n); got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestRunStopsWhenNetworkCloses(t *testing.T) {
	n := &fakeNet{closed: true}
	w := NewWorld(n, DefaultConfig())
	reply := n.login("alice")

	if err := w.Run(context.Background()); err != ErrNetworkClosed {
		t.Fatalf("got %v, want ErrNetworkClosed", err)
	}
	// 关闭前排队的登录也得到答复
	answer(t, reply)
}

func TestAdminConfig(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	body := bytes.NewBufferString(`{"maxPlayers": 8, "seed": 7}`)
	rec := httptest.NewRecorder()
	w.HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	w.HandleAdminConfig(rec, httptest.NewRequest(http.MethodGet, "/admin/config", nil))
	var got Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.MaxPlayers != 8 || got.WorldSeed != 7 || got.Spawn != (proto.Vec3{Y: 64}) {
		t.Fatalf("config %+v", got)
	}

	rec = httptest.NewRecorder()
	w.HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(`{"maxPlayers": 1000}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range status %d", rec.Code)
	}
}

func TestAdminConfigAfterStop(t *testing.T) {
	n := &fakeNet{closed: true}
	w := NewWorld(n, DefaultConfig())
	_ = w.Run(context.Background())

	rec := httptest.NewRecorder()
	w.HandleAdminConfig(rec, httptest.NewRequest(http.MethodGet, "/admin/config", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())
	w.Tick()

	rec := httptest.NewRecorder()
	w.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var got struct {
		Tick int64          `json:"tick"`
		Game map[string]any `json:"game"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Tick != 1 || got.Game["tick_count"] != float64(1) {
		t.Fatalf("metrics %+v", got)
	}
}
