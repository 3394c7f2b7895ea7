package tabherd

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/core"
	"pkt.systems/tabherd/internal/bridge"
	"pkt.systems/tabherd/internal/eventbus"
	"pkt.systems/tabherd/internal/nativemsg"
	"pkt.systems/tabherd/internal/settings"
	"pkt.systems/tabherd/internal/wsbridge"
	"pkt.systems/tabherd/schema"
)

// Server composes the native messaging host and the WebSocket daemon.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service         schema.ServiceConfig
	SettingsFile    string
	CallTimeout     time.Duration
	MaxMessageBytes int
	WebSocket       wsbridge.Config
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	// Native carries the native messaging pipe (stdin/stdout in host mode).
	// NativeCloser, when set, unblocks a pending read on Stop.
	NativeIn     io.Reader
	NativeOut    io.Writer
	NativeCloser io.Closer
	// EventSink receives actions in addition to the internal event bus.
	EventSink core.EventSink
	Logger    pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableNative    bool
	enableWebSocket bool
}

// WithNativeHost serves one extension over the native messaging pipe. The
// server stops when the browser closes the pipe.
func WithNativeHost() ServerOption {
	return func(o *serverOptions) { o.enableNative = true }
}

// WithWebSocket enables the WebSocket bridge and event stream.
func WithWebSocket() ServerOption {
	return func(o *serverOptions) { o.enableWebSocket = true }
}

// New constructs a composable tabherd server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableNative && !options.enableWebSocket {
		return nil, errors.New("no services enabled")
	}
	if options.enableNative && (deps.NativeIn == nil || deps.NativeOut == nil) {
		return nil, errors.New("native messaging pipe is required")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = bridge.DefaultCallTimeout
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = nativemsg.DefaultMaxIncoming
	}
	if cfg.WebSocket.MaxMessageBytes <= 0 {
		cfg.WebSocket.MaxMessageBytes = int64(cfg.MaxMessageBytes)
	}

	store, err := settings.NewStoreWithLogger(cfg.SettingsFile, deps.Logger)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New(deps.Logger)
	sink := core.EventSink(bus)
	if deps.EventSink != nil {
		sink = eventFanout{sinks: []core.EventSink{deps.EventSink, bus}}
	}

	srv := &compositeServer{
		cfg:      cfg,
		options:  options,
		deps:     deps,
		store:    store,
		bus:      bus,
		sink:     sink,
		sessions: make(map[*bridge.Peer]struct{}),
	}
	if options.enableWebSocket {
		srv.ws = wsbridge.NewServer(cfg.WebSocket, srv.serveSession, bus)
	}
	return srv, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	deps    ServerDeps
	store   *settings.Store
	bus     *eventbus.Bus
	sink    core.EventSink
	ws      *wsbridge.Server
	logger  pslog.Logger

	sessionsMu sync.Mutex
	sessions   map[*bridge.Peer]struct{}

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(s.ctx)
	s.group = group
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"native", s.options.enableNative,
		"websocket", s.options.enableWebSocket,
		"websocket_addr", s.cfg.WebSocket.Addr,
		"settings_file", s.store.Path(),
	)
	group.Go(func() error {
		if err := s.store.Watch(gctx, s.broadcastSettings); err != nil {
			log.Warn("settings watch unavailable", "err", err)
		}
		return nil
	})
	if s.options.enableNative {
		conn := nativemsg.NewConn(s.deps.NativeIn, s.deps.NativeOut,
			nativemsg.WithMaxIncoming(s.cfg.MaxMessageBytes),
			nativemsg.WithCloser(s.deps.NativeCloser),
		)
		group.Go(func() error {
			err := s.serveSession(gctx, conn)
			if err != nil {
				log.Error("native host failed", "err", err)
				return err
			}
			log.Info("native host pipe closed")
			s.cancel()
			return nil
		})
	}
	if s.options.enableWebSocket {
		s.ws.SetBaseContext(gctx)
		group.Go(func() error {
			if err := wsbridge.ListenAndServe(gctx, s.cfg.WebSocket.Addr, s.ws.Handler()); err != nil {
				log.Error("websocket server failed", "err", err)
				return err
			}
			return nil
		})
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	group := s.group
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}
	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		pslog.Ctx(s.ctx).Error("server stopped", "err", err)
		return err
	}
	return nil
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	group := s.group
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		log.Info("server stopped")
		return nil
	}
}
