package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/tabherd/internal/logx"
	"pkt.systems/tabherd/schema"
)

// EnsureInDefaultGroup adds the tab to the window's default group. When no
// group or more than one group carries the default name, a fresh group is
// created and appended to the end of the tab strip.
func (s *service) EnsureInDefaultGroup(ctx context.Context, tab schema.Tab) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	settings := s.loadSettings(ctx)
	log := logx.WithWindowTab(ctx, tab.WindowID, tab.ID)
	trail := breadcrumbs{log: log, enabled: settings.Debug}
	name := settings.DefaultTabGroupName

	// Overlapping creations in one window must not both see zero matches.
	lock := s.defaultGroupLock(tab.WindowID)
	lock.Lock()
	defer lock.Unlock()

	candidates, err := s.browser.QueryGroups(ctx, schema.GroupsTitled(tab.WindowID, name))
	if err != nil {
		return fmt.Errorf("query default group: %w", err)
	}
	var matches []schema.Group
	for _, group := range candidates {
		if group.Title == name && group.WindowID == tab.WindowID {
			matches = append(matches, group)
		}
	}

	if len(matches) == 1 {
		target := matches[0].ID
		if _, err := s.browser.GroupTabs(ctx, []schema.TabID{tab.ID}, &target); err != nil {
			return fmt.Errorf("join default group: %w", err)
		}
		trail.Log("joined default group", "target", int(target), "name", name)
		s.emit(schema.ActionEvent{Type: schema.ActionGroupTabs, WindowID: tab.WindowID, TabIDs: []schema.TabID{tab.ID}, GroupID: target, Reason: "default group"})
		return nil
	}

	trail.Log("creating default group", "name", name, "matches", len(matches))
	groupID, err := s.browser.GroupTabs(ctx, []schema.TabID{tab.ID}, nil)
	if err != nil {
		return fmt.Errorf("create default group: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionGroupTabs, WindowID: tab.WindowID, TabIDs: []schema.TabID{tab.ID}, GroupID: groupID, Reason: "default group created"})
	if err := s.browser.UpdateGroup(ctx, groupID, schema.GroupUpdate{Title: &name}); err != nil {
		return fmt.Errorf("name default group: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionRenameGroup, WindowID: tab.WindowID, GroupID: groupID, Reason: name})
	if err := s.browser.MoveGroup(ctx, groupID, schema.IndexLast); err != nil {
		return fmt.Errorf("move default group: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionMoveGroup, WindowID: tab.WindowID, GroupID: groupID, Index: schema.IndexLast, Reason: "default group created"})
	return nil
}
