package wsbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/internal/bridge"
	"pkt.systems/tabherd/internal/eventbus"
	"pkt.systems/tabherd/schema"
)

// Config defines the WebSocket listener.
type Config struct {
	Addr            string
	AllowedOrigins  []string
	MaxMessageBytes int64
}

// SessionFunc serves one extension connection until it closes.
type SessionFunc func(ctx context.Context, conn bridge.Conn) error

// Server exposes the bridge and the action event stream over WebSocket.
type Server struct {
	cfg      Config
	session  SessionFunc
	bus      *eventbus.Bus
	upgrader websocket.Upgrader
	baseCtx  context.Context
}

// NewServer constructs a WebSocket server. bus may be nil, which disables
// the event stream.
func NewServer(cfg Config, session SessionFunc, bus *eventbus.Bus) *Server {
	s := &Server{cfg: cfg, session: session, bus: bus, baseCtx: context.Background()}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetBaseContext sets the parent context for connection lifetimes.
func (s *Server) SetBaseContext(ctx context.Context) {
	if s == nil || ctx == nil {
		return
	}
	s.baseCtx = ctx
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", s.handleBridge)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return withRequestLogging(mux)
}

// checkOrigin admits clients without an Origin header (CLI tools) and
// extension origins on the allow list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) connContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	return pslog.ContextWithLogger(ctx, pslog.Ctx(r.Context()).With("remote", clientIP(r))), cancel
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		http.Error(w, "bridge unavailable", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		pslog.Ctx(r.Context()).Debug("bridge upgrade failed", "err", err)
		return
	}
	ctx, cancel := s.connContext(r)
	defer cancel()
	log := pslog.Ctx(ctx)
	log.Info("extension connected")
	conn := NewConn(ws, s.cfg.MaxMessageBytes)
	if err := s.session(ctx, conn); err != nil {
		log.Warn("extension session ended", "err", err)
	} else {
		log.Info("extension disconnected")
	}
	_ = conn.Close()
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	windowID := eventbus.AllWindows
	if raw := r.URL.Query().Get("window"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid window", http.StatusBadRequest)
			return
		}
		windowID = schema.WindowID(value)
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		pslog.Ctx(r.Context()).Debug("events upgrade failed", "err", err)
		return
	}
	ctx, cancel := s.connContext(r)
	defer cancel()
	conn := NewConn(ws, 1024)
	defer func() { _ = conn.Close() }()

	events, unsubscribe := s.bus.Subscribe(windowID)
	defer unsubscribe()

	// Observers never send anything meaningful; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, err := conn.Read(); err != nil {
				return
			}
		}
	}()

	log := pslog.Ctx(ctx)
	log.Debug("event stream opened", "window", int(windowID))
	for {
		select {
		case <-ctx.Done():
			log.Debug("event stream closed")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := conn.Write(data); err != nil {
				log.Debug("event stream write failed", "err", err)
				return
			}
		}
	}
}
