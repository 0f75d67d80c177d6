package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ReplayDesk/internal/config"
	"ReplayDesk/internal/recorder"
	"ReplayDesk/internal/series"
	"ReplayDesk/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	content := "Date,Open,High,Low,Close,Volume\n"
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		c := 1.1000 + float64(i)*0.0001
		content += fmt.Sprintf("%s,%.4f,%.4f,%.4f,%.4f,100\n",
			ts.Format("2006-01-02 15:04:05"), c, c+0.0001, c-0.0001, c)
	}
	if err := os.WriteFile(filepath.Join(dir, "EURUSD_1M.csv"), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg := &config.Config{DataDir: dir}
	cfg.Session.Symbol = "EURUSD"
	cfg.Session.Timeframe = "1M"
	cfg.Session.Cursor = 10
	cfg.Session.Zoom = 5
	cfg.Session.Balance = 10000
	cfg.Session.OrderSize = 100000
	cfg.Session.MaxOverlays = 4
	cfg.Playback.SpeedMS = 1000
	cfg.Playback.MinSpeedMS = 50
	cfg.Playback.MaxSpeedMS = 1000
	cfg.Playback.SubstepsPerCandle = 6

	sess, err := session.New(cfg, series.NewLoader(dir), recorder.NewNoopRecorder())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return New(":0", sess)
}

type message struct {
	Type    string           `json:"type"`
	Message string           `json:"message"`
	Data    session.Snapshot `json:"data"`
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func TestServer_BroadcastReachesAllClients(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(s.handleWS))
	defer srv.Close()

	first := dialWS(t, srv)
	second := dialWS(t, srv)

	// Every client gets a snapshot on connect.
	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != "snapshot" {
			t.Fatalf("greeting type = %s, want snapshot", msg.Type)
		}
		if msg.Data.Cursor != 10 {
			t.Fatalf("greeting cursor = %d, want 10", msg.Data.Cursor)
		}
	}

	if err := first.WriteJSON(Command{Action: "step_forward"}); err != nil {
		t.Fatalf("send command: %v", err)
	}

	// The resulting state reaches both clients, not just the sender.
	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != "snapshot" {
			t.Fatalf("broadcast type = %s, want snapshot", msg.Type)
		}
		if msg.Data.Cursor != 11 {
			t.Fatalf("broadcast cursor = %d, want 11", msg.Data.Cursor)
		}
	}
}

func TestServer_UnknownActionReturnsError(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(s.handleWS))
	defer srv.Close()

	conn := dialWS(t, srv)
	readMessage(t, conn) // greeting

	if err := conn.WriteJSON(Command{Action: "self_destruct"}); err != nil {
		t.Fatalf("send command: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "error" {
		t.Fatalf("reply type = %s, want error", msg.Type)
	}
	if !strings.Contains(msg.Message, "self_destruct") {
		t.Fatalf("error does not name the action: %q", msg.Message)
	}
}

func TestServer_FailedCommandKeepsSessionState(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(s.handleWS))
	defer srv.Close()

	conn := dialWS(t, srv)
	readMessage(t, conn) // greeting

	if err := conn.WriteJSON(Command{Action: "set_symbol", Symbol: "USDJPY"}); err != nil {
		t.Fatalf("send command: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "error" {
		t.Fatalf("reply type = %s, want error", msg.Type)
	}
	if got := s.sess.Snapshot().Symbol; got != "EURUSD" {
		t.Fatalf("failed switch leaked: symbol = %s", got)
	}
}
