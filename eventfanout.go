package tabherd

import (
	"pkt.systems/pslog"
	"pkt.systems/tabherd/core"
	"pkt.systems/tabherd/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnAction(event schema.ActionEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnAction(event)
	}
}

// ActionLog writes every browser action to a logger at debug level.
type ActionLog struct {
	logger pslog.Logger
}

// NewActionLog returns an action sink backed by logger.
func NewActionLog(logger pslog.Logger) *ActionLog {
	return &ActionLog{logger: logger}
}

func (a *ActionLog) OnAction(event schema.ActionEvent) {
	if a == nil || a.logger == nil {
		return
	}
	tabs := make([]int, 0, len(event.TabIDs))
	for _, id := range event.TabIDs {
		tabs = append(tabs, int(id))
	}
	a.logger.With("window", int(event.WindowID)).Debug("browser action",
		"action", string(event.Type),
		"tabs", tabs,
		"group", int(event.GroupID),
		"index", event.Index,
		"reason", event.Reason,
	)
}
