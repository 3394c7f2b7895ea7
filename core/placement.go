package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/tabherd/internal/logx"
	"pkt.systems/tabherd/schema"
)

// HandleTabCreated places a new tab right after the most recently used tab of
// its window and joins that tab's group, then collapses unfocused groups.
func (s *service) HandleTabCreated(ctx context.Context, event schema.TabCreatedEvent) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	tab := event.Tab
	log := logx.WithWindowTab(ctx, tab.WindowID, tab.ID)
	ctx = logx.ContextWithWindowTabLogger(ctx, log, tab.WindowID, tab.ID)
	trail := s.trail(ctx, log)
	trail.Log("tab created", "group", int(tab.GroupID), "pinned", tab.Pinned)

	err := s.place(ctx, tab, trail)
	if err != nil {
		trail.Log("placement abandoned", "err", err)
	}
	if cerr := s.CollapseUnfocused(ctx, tab.WindowID); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// place holds the reentrancy guard for the whole placement so activations
// caused by our own moves do not reorder the tracker.
func (s *service) place(ctx context.Context, tab schema.Tab, trail breadcrumbs) error {
	s.placing.Add(1)
	defer s.placing.Add(-1)

	active, ok := firstTab(ctx, s.browser, schema.ActiveInWindow(tab.WindowID))
	if !ok {
		trail.Log("no active tab, using default group")
		return s.EnsureInDefaultGroup(ctx, tab)
	}
	trail.Log("active tab resolved", "active", int(active.ID))

	ref, ok := s.tracker(tab.WindowID).lookup(ctx, func(candidate schema.Tab) bool {
		return candidate.ID == tab.ID || candidate.Pinned
	})
	if !ok {
		trail.Log("no reference tab, using default group")
		return s.EnsureInDefaultGroup(ctx, tab)
	}
	refIndex, _ := ref.Position()
	trail.Log("reference tab found", "reference", int(ref.ID), "index", refIndex, "ref_group", int(ref.GroupID))

	target := placementIndex(tab, refIndex)
	if err := s.browser.MoveTab(ctx, tab.ID, target); err != nil {
		return fmt.Errorf("move new tab: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionMoveTab, WindowID: tab.WindowID, TabIDs: []schema.TabID{tab.ID}, GroupID: ref.GroupID, Index: target, Reason: "placement"})

	if !ref.Grouped() {
		return s.EnsureInDefaultGroup(ctx, tab)
	}
	groupID := ref.GroupID
	if _, err := s.browser.GroupTabs(ctx, []schema.TabID{tab.ID}, &groupID); err != nil {
		return fmt.Errorf("join reference group: %w", err)
	}
	s.emit(schema.ActionEvent{Type: schema.ActionGroupTabs, WindowID: tab.WindowID, TabIDs: []schema.TabID{tab.ID}, GroupID: groupID, Reason: "placement"})
	return nil
}

// placementIndex is the final index that puts the new tab directly after the
// reference tab. Move targets are final positions, so a tab that currently
// sits before the reference lands on the reference's old index.
func placementIndex(tab schema.Tab, refIndex int) int {
	if current, ok := tab.Position(); ok && current < refIndex {
		return refIndex
	}
	return refIndex + 1
}
