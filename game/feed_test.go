package game

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFeedJoinEvent(t *testing.T) {
	n := &fakeNet{}
	w := NewWorld(n, DefaultConfig())

	hs := httptest.NewServer(http.HandlerFunc(w.Feed().HandleFeed))
	defer hs.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	// 等待 Tick 协程登记观察者
	deadline := time.Now().Add(2 * time.Second)
	for !w.feed.active() {
		if time.Now().After(deadline) {
			t.Fatal("spectator never registered")
		}
		w.Tick()
		time.Sleep(5 * time.Millisecond)
	}

	joinPlayer(t, w, n, "alice")

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev FeedEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "join" || ev.Player == nil || ev.Player.User != "alice" || ev.Player.ID != 1 {
		t.Fatalf("event %+v", ev)
	}

	w.feed.close()
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Fatal("feed still open after close")
	}
}

func TestFeedCloseReleasesSpectators(t *testing.T) {
	f := newFeed()
	// 已登记但尚未被 Tick 处理的观察者
	early := &spectator{send: make(chan []byte, 1)}
	if !f.add(early) {
		t.Fatal("add before close rejected")
	}

	f.close()

	if _, ok := <-early.send; ok {
		t.Fatal("pending spectator not closed")
	}
	late := &spectator{send: make(chan []byte, 1)}
	if f.add(late) {
		t.Fatal("add after close accepted")
	}
	if f.active() {
		t.Fatal("spectators left after close")
	}
}
