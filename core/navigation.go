package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"pkt.systems/tabherd/internal/logx"
	"pkt.systems/tabherd/schema"
)

// currentTab resolves the active tab of the last focused window and the
// ordered tabs of that window.
func (s *service) currentTab(ctx context.Context) (schema.Tab, []schema.Tab, int, bool) {
	current, ok := firstTab(ctx, s.browser, schema.ActiveInLastFocused())
	if !ok {
		return schema.Tab{}, nil, 0, false
	}
	tabs, err := s.browser.QueryTabs(ctx, schema.InWindow(current.WindowID))
	if err != nil || len(tabs) == 0 {
		return schema.Tab{}, nil, 0, false
	}
	index := slices.IndexFunc(tabs, func(t schema.Tab) bool { return t.ID == current.ID })
	if index < 0 {
		return schema.Tab{}, nil, 0, false
	}
	return current, tabs, index, true
}

// FocusTab activates the neighbor of the active tab, wrapping at both ends.
func (s *service) FocusTab(ctx context.Context, direction schema.Direction) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	current, tabs, index, ok := s.currentTab(ctx)
	if !ok {
		s.trail(ctx, nil).Log("focus skipped, no active tab")
		return nil
	}
	next := wrapIndex(len(tabs), index+int(direction))
	target := tabs[next]
	if err := s.browser.ActivateTab(ctx, target.ID); err != nil {
		return fmt.Errorf("activate tab: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionActivate, WindowID: current.WindowID, TabIDs: []schema.TabID{target.ID}, GroupID: target.GroupID, Index: next, Reason: "focus"})
	return nil
}

// MoveTab moves the active tab one step past its next unpinned neighbor.
// Entering a different group stops at the group boundary and joins it.
func (s *service) MoveTab(ctx context.Context, direction schema.Direction) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	current, tabs, index, ok := s.currentTab(ctx)
	if !ok {
		s.trail(ctx, nil).Log("move skipped, no active tab")
		return nil
	}
	log := logx.WithWindowTab(ctx, current.WindowID, current.ID)
	trail := s.trail(ctx, log)

	target, neighborGroup, ok := moveTarget(tabs, index, current.GroupID, direction)
	if !ok {
		trail.Log("move skipped, only pinned neighbors")
		return nil
	}
	if err := s.browser.MoveTab(ctx, current.ID, target); err != nil {
		return fmt.Errorf("move tab: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionMoveTab, WindowID: current.WindowID, TabIDs: []schema.TabID{current.ID}, GroupID: neighborGroup, Index: target, Reason: "move"})
	if neighborGroup != schema.GroupNone {
		if _, err := s.browser.GroupTabs(ctx, []schema.TabID{current.ID}, &neighborGroup); err != nil {
			return fmt.Errorf("join neighbor group: %w", err)
		}
		s.emit(schema.ActionEvent{Type: schema.ActionGroupTabs, WindowID: current.WindowID, TabIDs: []schema.TabID{current.ID}, GroupID: neighborGroup, Reason: "move"})
	}
	trail.Log("tab moved", "index", target, "joined", int(neighborGroup))
	return s.CollapseUnfocused(ctx, current.WindowID)
}

// moveTarget scans from index in direction, wrapping and skipping pinned tabs.
// It reports false when every other tab is pinned.
func moveTarget(tabs []schema.Tab, index int, group schema.GroupID, direction schema.Direction) (int, schema.GroupID, bool) {
	step := int(direction)
	neighbor := wrapIndex(len(tabs), index+step)
	for neighbor != index && tabs[neighbor].Pinned {
		neighbor = wrapIndex(len(tabs), neighbor+step)
	}
	if neighbor == index {
		return 0, schema.GroupNone, false
	}
	neighborGroup := tabs[neighbor].GroupID
	if neighborGroup != group && neighborGroup != schema.GroupNone {
		// Clamped on purpose: after a wrap, -1 means the strip start here,
		// not the browser's "move to end".
		neighbor = min(max(neighbor-step, 0), len(tabs)-1)
	}
	return neighbor, neighborGroup, true
}

// MoveTabGroup moves the active tab's whole group past the adjacent run of
// tabs. An ungrouped active tab moves alone.
func (s *service) MoveTabGroup(ctx context.Context, direction schema.Direction) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	current, tabs, index, ok := s.currentTab(ctx)
	if !ok {
		s.trail(ctx, nil).Log("group move skipped, no active tab")
		return nil
	}
	if !current.Grouped() {
		return s.MoveTab(ctx, direction)
	}
	log := logx.WithGroup(logx.WithWindowTab(ctx, current.WindowID, current.ID), current.GroupID)
	trail := s.trail(ctx, log)

	step := int(direction)
	near := findBoundary(tabs, index, direction)
	far := findBoundary(tabs, near, direction) - step

	members, err := s.browser.QueryTabs(ctx, schema.InGroup(current.GroupID))
	if err != nil {
		return fmt.Errorf("query group members: %w", err)
	}
	if direction < 0 {
		slices.Reverse(members)
	}
	ids := make([]schema.TabID, 0, len(members))
	for _, member := range members {
		if err := s.browser.MoveTab(ctx, member.ID, far); err != nil {
			return fmt.Errorf("move group member: %w", err)
		}
		ids = append(ids, member.ID)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionMoveTab, WindowID: current.WindowID, TabIDs: ids, GroupID: current.GroupID, Index: far, Reason: "move group"})

	// Moving members one by one can detach them from the group.
	groupID := current.GroupID
	if _, err := s.browser.GroupTabs(ctx, ids, &groupID); err != nil {
		return fmt.Errorf("regroup members: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionGroupTabs, WindowID: current.WindowID, TabIDs: ids, GroupID: groupID, Reason: "move group"})
	trail.Log("group moved", "index", far, "members", len(ids))
	return nil
}

// findBoundary walks from start in direction while tabs share the group of
// the tab at start, returning the first index outside that run. The result
// may be out of bounds.
func findBoundary(tabs []schema.Tab, start int, direction schema.Direction) int {
	if start < 0 || start >= len(tabs) {
		return start
	}
	group := tabs[start].GroupID
	i := start
	for i >= 0 && i < len(tabs) && tabs[i].GroupID == group {
		i += int(direction)
	}
	return i
}

// OpenInCurrentGroup opens a new tab next to the active tab inside its group.
func (s *service) OpenInCurrentGroup(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	current, _, index, ok := s.currentTab(ctx)
	if !ok {
		s.trail(ctx, nil).Log("open skipped, no active tab")
		return nil
	}
	target := index + 1
	created, err := s.browser.CreateTab(ctx, schema.CreateTabRequest{
		WindowID: current.WindowID,
		Index:    &target,
		Active:   true,
	})
	if err != nil {
		return fmt.Errorf("create tab: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionCreateTab, WindowID: current.WindowID, TabIDs: []schema.TabID{created.ID}, GroupID: current.GroupID, Index: target, Reason: "open in current group"})
	if !current.Grouped() {
		return s.EnsureInDefaultGroup(ctx, created)
	}
	groupID := current.GroupID
	if _, err := s.browser.GroupTabs(ctx, []schema.TabID{created.ID}, &groupID); err != nil {
		return fmt.Errorf("join current group: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionGroupTabs, WindowID: current.WindowID, TabIDs: []schema.TabID{created.ID}, GroupID: groupID, Reason: "open in current group"})
	return nil
}

func wrapIndex(length, index int) int {
	return ((index % length) + length) % length
}
