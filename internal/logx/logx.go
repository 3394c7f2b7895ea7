package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/schema"
)

type contextKey int

const (
	windowKey contextKey = iota
	tabKey
)

// WithWindow annotates the logger with the window id unless the context
// already carries it.
func WithWindow(ctx context.Context, windowID schema.WindowID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if windowID == schema.WindowNone {
		return log
	}
	if current, ok := ctx.Value(windowKey).(schema.WindowID); ok && current == windowID {
		return log
	}
	return log.With("window", int(windowID))
}

// WithWindowTab annotates the logger with window and tab identifiers.
func WithWindowTab(ctx context.Context, windowID schema.WindowID, tabID schema.TabID) pslog.Logger {
	log := WithWindow(ctx, windowID)
	if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
		return log
	}
	return log.With("tab", int(tabID))
}

// WithGroup annotates the logger with a group id when the tab is grouped.
func WithGroup(log pslog.Logger, groupID schema.GroupID) pslog.Logger {
	if groupID != schema.GroupNone {
		log = log.With("group", int(groupID))
	}
	return log
}

// ContextWithWindow stores the window marker on the context for log de-duplication.
func ContextWithWindow(ctx context.Context, windowID schema.WindowID) context.Context {
	if ctx == nil || windowID == schema.WindowNone {
		return ctx
	}
	return context.WithValue(ctx, windowKey, windowID)
}

// ContextWithTab stores the tab marker on the context for log de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.TabID) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// ContextWithWindowTabLogger attaches the logger and window/tab markers to the context.
func ContextWithWindowTabLogger(ctx context.Context, log pslog.Logger, windowID schema.WindowID, tabID schema.TabID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTab(ContextWithWindow(ctx, windowID), tabID)
}
