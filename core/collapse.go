package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/tabherd/internal/logx"
	"pkt.systems/tabherd/schema"
)

// CollapseUnfocused collapses every expanded group of the window except the
// one holding the active tab. An ungrouped active tab leaves groups alone.
func (s *service) CollapseUnfocused(ctx context.Context, windowID schema.WindowID) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	active, ok := firstTab(ctx, s.browser, schema.ActiveInWindow(windowID))
	if !ok {
		return nil
	}
	if !active.Grouped() {
		return nil
	}
	log := logx.WithGroup(logx.WithWindow(ctx, windowID), active.GroupID)
	groups, err := s.browser.QueryGroups(ctx, schema.GroupsInWindow(windowID))
	if err != nil {
		return fmt.Errorf("query groups: %w", err)
	}
	settings := s.loadSettings(ctx)
	trail := breadcrumbs{log: log, enabled: settings.Debug}
	collapsed := true
	for _, group := range groups {
		if group.ID == active.GroupID || group.Collapsed {
			continue
		}
		if settings.AutoHideDisabled(group.ID) {
			trail.Log("collapse skipped, auto-hide disabled", "target", int(group.ID))
			continue
		}
		if err := s.browser.UpdateGroup(ctx, group.ID, schema.GroupUpdate{Collapsed: &collapsed}); err != nil {
			trail.Log("collapse failed", "target", int(group.ID), "err", err)
			continue
		}
		s.emit(schema.ActionEvent{Type: schema.ActionCollapse, WindowID: windowID, GroupID: group.ID, Reason: "unfocused"})
	}
	return nil
}
