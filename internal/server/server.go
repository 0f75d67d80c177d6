package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ReplayDesk/internal/session"
)

// Server exposes the replay session over a websocket: JSON commands in, full
// state snapshots out. Every connected client observes the same session.
type Server struct {
	addr string
	sess *session.Session

	mu      sync.Mutex
	clients map[*client]bool
}

// client wraps a connection with its own write mutex, so a slow receiver
// stalls only its own writes, never the hub.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local single-user tool
	},
}

// New creates a server bound to the session and hooks playback updates into
// the broadcast path.
func New(addr string, sess *session.Session) *Server {
	s := &Server{
		addr:    addr,
		sess:    sess,
		clients: make(map[*client]bool),
	}
	sess.SetNotify(s.Broadcast)
	return s
}

// Start blocks serving the websocket endpoint.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	log.Printf("[INFO] listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] websocket upgrade: %v", err)
		return
	}

	cl := &client{conn: conn}
	s.mu.Lock()
	s.clients[cl] = true
	n := len(s.clients)
	s.mu.Unlock()
	log.Printf("[INFO] client connected (%d total)", n)

	cl.write(snapshotMessage(s.sess.Snapshot()))

	defer func() {
		s.mu.Lock()
		delete(s.clients, cl)
		n := len(s.clients)
		s.mu.Unlock()
		conn.Close()
		log.Printf("[INFO] client disconnected (%d total)", n)
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WARN] read command: %v", err)
			}
			return
		}
		if err := s.apply(&cmd); err != nil {
			cl.write(errorMessage(err))
			continue
		}
		s.Broadcast()
	}
}

// Broadcast pushes the current snapshot to every connected client. Clients
// that fail to accept the write are dropped.
func (s *Server) Broadcast() {
	msg := snapshotMessage(s.sess.Snapshot())

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			log.Printf("[WARN] drop client: %v", err)
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			c.conn.Close()
		}
	}
}

func snapshotMessage(snap session.Snapshot) []byte {
	msg, err := json.Marshal(map[string]interface{}{
		"type": "snapshot",
		"data": snap,
	})
	if err != nil {
		log.Printf("[ERROR] marshal snapshot: %v", err)
		return []byte(`{"type":"error","message":"internal error"}`)
	}
	return msg
}

func errorMessage(err error) []byte {
	msg, _ := json.Marshal(map[string]string{
		"type":    "error",
		"message": err.Error(),
	})
	return msg
}

// Command is one presentation-layer action against the session.
type Command struct {
	Action    string   `json:"action"`
	Symbol    string   `json:"symbol,omitempty"`
	Timeframe string   `json:"timeframe,omitempty"`
	Symbols   []string `json:"symbols,omitempty"`
	Price     float64  `json:"price,omitempty"`
	Size      float64  `json:"size,omitempty"`
	SpeedMS   int      `json:"speed_ms,omitempty"`
	Zoom      int      `json:"zoom,omitempty"`
	Date      string   `json:"date,omitempty"`
}

func (s *Server) apply(cmd *Command) error {
	switch cmd.Action {
	case "set_symbol":
		return s.sess.SetSymbol(cmd.Symbol)
	case "set_timeframe":
		return s.sess.SetTimeframe(cmd.Timeframe)
	case "set_overlays":
		s.sess.SetOverlays(cmd.Symbols)
	case "jump_start":
		s.sess.JumpStart()
	case "step_back":
		s.sess.StepBack()
	case "step_forward":
		s.sess.StepForward()
	case "jump_end":
		s.sess.JumpEnd()
	case "goto_date":
		t, err := time.Parse("2006-01-02", cmd.Date)
		if err != nil {
			return fmt.Errorf("bad date %q: want YYYY-MM-DD", cmd.Date)
		}
		s.sess.GotoDate(t)
	case "toggle_play":
		s.sess.TogglePlay()
	case "set_speed":
		s.sess.SetSpeed(cmd.SpeedMS)
	case "set_zoom":
		s.sess.SetZoom(cmd.Zoom)
	case "set_stop_loss":
		s.sess.SetStopLoss(cmd.Price)
	case "set_take_profit":
		s.sess.SetTakeProfit(cmd.Price)
	case "buy":
		s.sess.Buy(cmd.Size)
	case "sell":
		s.sess.Sell(cmd.Size)
	case "close":
		s.sess.ClosePosition()
	case "reset":
		s.sess.Reset()
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}
