package tabherd

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/core"
	"pkt.systems/tabherd/internal/bridge"
	"pkt.systems/tabherd/schema"
)

// serveSession runs one extension connection: a bridge peer, a service bound
// to that browser and the dispatcher feeding browser events into it.
func (s *compositeServer) serveSession(ctx context.Context, conn bridge.Conn) error {
	peer := bridge.NewPeer(conn, bridge.WithCallTimeout(s.cfg.CallTimeout))
	logger := pslog.Ctx(ctx)
	svc, err := core.NewService(s.cfg.Service, core.ServiceDeps{
		Browser:   bridge.NewBrowser(peer),
		Settings:  s.store,
		EventSink: s.sink,
		Logger:    logger,
	})
	if err != nil {
		_ = conn.Close()
		return err
	}
	s.track(peer)
	defer s.untrack(peer)
	logger.Info("extension session started")
	return peer.Run(ctx, bridge.NewDispatcher(svc))
}

func (s *compositeServer) track(peer *bridge.Peer) {
	s.sessionsMu.Lock()
	s.sessions[peer] = struct{}{}
	s.sessionsMu.Unlock()
}

func (s *compositeServer) untrack(peer *bridge.Peer) {
	s.sessionsMu.Lock()
	delete(s.sessions, peer)
	s.sessionsMu.Unlock()
}

func (s *compositeServer) peers() []*bridge.Peer {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	out := make([]*bridge.Peer, 0, len(s.sessions))
	for peer := range s.sessions {
		out = append(out, peer)
	}
	return out
}

// broadcastSettings pushes settings edited outside the extension (CLI, manual
// edits) to every connected extension and event stream observer.
func (s *compositeServer) broadcastSettings(updated schema.Settings) {
	s.bus.OnSettings(updated)
	for _, peer := range s.peers() {
		if err := peer.Notify(schema.EventSettingsChanged, updated); err != nil && s.logger != nil {
			s.logger.Debug("settings notify failed", "err", err)
		}
	}
}
