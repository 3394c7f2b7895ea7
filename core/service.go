package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/internal/logx"
	"pkt.systems/tabherd/schema"
)

// service implements the core service behavior.
type service struct {
	cfg      schema.ServiceConfig
	browser  Browser
	settings SettingsStore
	sink     EventSink
	logger   pslog.Logger
	limiter  *rate.Limiter

	mu       sync.Mutex
	trackers map[schema.WindowID]*mruTracker
	// defaultLocks serialize the default group find-or-create per window.
	defaultLocks map[schema.WindowID]*sync.Mutex

	// settingsMu serializes read-modify-write cycles on the settings store.
	settingsMu sync.Mutex

	// placing counts in-flight placements. Activations observed while it is
	// non-zero are side effects of our own moves and are not recorded.
	placing atomic.Int32
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Browser == nil {
		return nil, errors.New("browser dependency is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	var limiter *rate.Limiter
	if cfg.CommandRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.CommandRate), cfg.CommandBurst)
	}
	return &service{
		cfg:          cfg,
		browser:      deps.Browser,
		settings:     deps.Settings,
		sink:         deps.EventSink,
		logger:       logger,
		limiter:      limiter,
		trackers:     make(map[schema.WindowID]*mruTracker),
		defaultLocks: make(map[schema.WindowID]*sync.Mutex),
	}, nil
}

func (s *service) HandleTabActivated(ctx context.Context, event schema.TabActivatedEvent) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	log := logx.WithWindowTab(ctx, event.WindowID, event.TabID)
	trail := s.trail(ctx, log)
	trail.Log("tab activated")

	if tab, ok := safeGetTab(ctx, s.browser, event.TabID); ok {
		if s.placing.Load() > 0 {
			trail.Log("activation not recorded during placement")
		} else if s.tracker(event.WindowID).record(tab) {
			index, _ := tab.Position()
			trail.Log("activation recorded", "index", index, "pinned", tab.Pinned)
		}
	} else {
		trail.Log("activated tab vanished")
	}
	return s.CollapseUnfocused(ctx, event.WindowID)
}

func (s *service) HandleTabRemoved(ctx context.Context, event schema.TabRemovedEvent) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	log := logx.WithWindowTab(ctx, event.WindowID, event.TabID)
	if event.WindowClosing {
		s.mu.Lock()
		delete(s.trackers, event.WindowID)
		s.mu.Unlock()
		s.trail(ctx, log).Log("window closing, tracker dropped")
		return nil
	}
	s.mu.Lock()
	tracker := s.trackers[event.WindowID]
	s.mu.Unlock()
	if tracker != nil && tracker.forget(event.TabID) {
		s.trail(ctx, log).Log("removed tab forgotten")
	}
	return nil
}

func (s *service) HandleCommand(ctx context.Context, event schema.CommandEvent) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	cmd, err := schema.ParseCommand(event.Command)
	if err != nil {
		return fmt.Errorf("%w: %q", err, event.Command)
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	s.trail(ctx, pslog.Ctx(ctx)).Log("command", "command", string(cmd))
	switch cmd {
	case schema.CommandNextTab:
		return s.FocusTab(ctx, schema.Forward)
	case schema.CommandPreviousTab:
		return s.FocusTab(ctx, schema.Backward)
	case schema.CommandMoveTabRight:
		return s.MoveTab(ctx, schema.Forward)
	case schema.CommandMoveTabLeft:
		return s.MoveTab(ctx, schema.Backward)
	case schema.CommandMoveTabGroupRight:
		return s.MoveTabGroup(ctx, schema.Forward)
	case schema.CommandMoveTabGroupLeft:
		return s.MoveTabGroup(ctx, schema.Backward)
	case schema.CommandOpenInCurrentGroup:
		return s.OpenInCurrentGroup(ctx)
	default:
		return schema.ErrUnknownCommand
	}
}

// tracker returns the window's tracker, creating it on first use.
func (s *service) tracker(windowID schema.WindowID) *mruTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracker := s.trackers[windowID]
	if tracker == nil {
		tracker = newMRUTracker(windowID, s.cfg.MRUCapacity, s.browser)
		s.trackers[windowID] = tracker
	}
	return tracker
}

// defaultGroupLock returns the window's default group mutex.
func (s *service) defaultGroupLock(windowID schema.WindowID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock := s.defaultLocks[windowID]
	if lock == nil {
		lock = &sync.Mutex{}
		s.defaultLocks[windowID] = lock
	}
	return lock
}

// loadSettings reads settings on demand, falling back to defaults.
func (s *service) loadSettings(ctx context.Context) schema.Settings {
	if s.settings == nil {
		return schema.DefaultSettings()
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		pslog.Ctx(ctx).Debug("settings load failed, using defaults", "err", err)
		return schema.DefaultSettings()
	}
	return schema.NormalizeSettings(settings)
}

func (s *service) emit(event schema.ActionEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnAction(event)
}

// breadcrumbs emits control-flow traces when the debug setting is on.
type breadcrumbs struct {
	log     pslog.Logger
	enabled bool
}

func (s *service) trail(ctx context.Context, log pslog.Logger) breadcrumbs {
	if log == nil {
		log = s.logger
	}
	return breadcrumbs{log: log, enabled: s.loadSettings(ctx).Debug}
}

func (t breadcrumbs) Log(msg string, keyvals ...any) {
	if !t.enabled {
		return
	}
	t.log.Debug(msg, keyvals...)
}
