package core

import (
	"context"
	"slices"
	"testing"

	"pkt.systems/tabherd/schema"
)

// activateTab simulates a user activation: the browser flips the active tab,
// then delivers tabs.onActivated.
func activateTab(t *testing.T, svc *service, browser *fakeBrowser, windowID schema.WindowID, id schema.TabID) {
	t.Helper()
	browser.activate(id)
	if err := svc.HandleTabActivated(context.Background(), schema.TabActivatedEvent{TabID: id, WindowID: windowID}); err != nil {
		t.Fatalf("activate %d: %v", id, err)
	}
}

// openTab simulates a tab appended at the end of the strip.
func openTab(t *testing.T, svc *service, browser *fakeBrowser, windowID schema.WindowID, id schema.TabID) error {
	t.Helper()
	browser.addTab(windowID, id, schema.GroupNone, false)
	return svc.HandleTabCreated(context.Background(), schema.TabCreatedEvent{Tab: browser.snapshot(id)})
}

func TestPlacementJoinsReferenceGroup(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, 1, false)
	browser.addTab(1, 2, schema.GroupNone, false)
	browser.addTab(1, 3, 2, false)
	svc, sink := newTestService(t, browser, nil)

	activateTab(t, svc, browser, 1, 3)
	activateTab(t, svc, browser, 1, 1)
	if err := openTab(t, svc, browser, 1, 4); err != nil {
		t.Fatalf("create: %v", err)
	}

	assertOrder(t, browser, 1, 1, 4, 2, 3)
	if got := browser.snapshot(4).GroupID; got != 1 {
		t.Fatalf("expected new tab in reference group 1, got %d", got)
	}
	if !browser.group(2).Collapsed {
		t.Fatalf("expected unfocused group collapsed after placement")
	}
	if sink.count(schema.ActionMoveTab) != 1 || sink.count(schema.ActionGroupTabs) != 1 {
		t.Fatalf("unexpected action events: %+v", sink.events)
	}
}

func TestPlacementAfterLaterReference(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, schema.GroupNone, false)
	browser.addTab(1, 2, 1, false)
	browser.addTab(1, 3, schema.GroupNone, false)
	svc, _ := newTestService(t, browser, nil)

	activateTab(t, svc, browser, 1, 2)
	// A tab opened at the front must land right after the reference.
	browser.mu.Lock()
	browser.windows[1] = slices.Insert(browser.windows[1], 0, &fakeTab{id: 4, group: schema.GroupNone})
	browser.mu.Unlock()
	if err := svc.HandleTabCreated(context.Background(), schema.TabCreatedEvent{Tab: browser.snapshot(4)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	assertOrder(t, browser, 1, 1, 2, 4, 3)
}

func TestPlacementSkipsPinnedReference(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, 1, false)
	browser.addTab(1, 2, schema.GroupNone, true)
	browser.addTab(1, 3, schema.GroupNone, false)
	svc, _ := newTestService(t, browser, nil)

	activateTab(t, svc, browser, 1, 1)
	activateTab(t, svc, browser, 1, 2)
	if err := openTab(t, svc, browser, 1, 4); err != nil {
		t.Fatalf("create: %v", err)
	}
	assertOrder(t, browser, 1, 1, 4, 2, 3)
	if got := browser.snapshot(4).GroupID; got != 1 {
		t.Fatalf("expected group of unpinned reference, got %d", got)
	}
}

func TestPlacementUngroupedReferenceUsesDefaultGroup(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, schema.GroupNone, false)
	browser.addTab(1, 2, schema.GroupNone, false)
	svc, _ := newTestService(t, browser, nil)

	activateTab(t, svc, browser, 1, 1)
	if err := openTab(t, svc, browser, 1, 3); err != nil {
		t.Fatalf("create: %v", err)
	}
	group := browser.snapshot(3).GroupID
	if group == schema.GroupNone {
		t.Fatalf("expected new tab in the default group")
	}
	if got := browser.group(group).Title; got != schema.DefaultTabGroupName {
		t.Fatalf("expected default group title, got %q", got)
	}
}

func TestPlacementWithoutHistoryUsesDefaultGroup(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, schema.GroupNone, false)
	browser.activate(1)
	svc, _ := newTestService(t, browser, nil)

	if err := openTab(t, svc, browser, 1, 2); err != nil {
		t.Fatalf("create: %v", err)
	}
	if browser.countCalls("move ") != 0 {
		t.Fatalf("expected no tab move without a reference, got %v", browser.callLog())
	}
	if browser.snapshot(2).GroupID == schema.GroupNone {
		t.Fatalf("expected default group fallback")
	}
}

func TestPlacementGuardSuppressesActivationRecording(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, 1, false)
	browser.addTab(1, 2, schema.GroupNone, false)
	svc, _ := newTestService(t, browser, nil)

	activateTab(t, svc, browser, 1, 2)
	activateTab(t, svc, browser, 1, 1)
	browser.onMove = func(id schema.TabID) {
		// The browser activates the new tab while we are still placing it.
		browser.activate(id)
		if err := svc.HandleTabActivated(context.Background(), schema.TabActivatedEvent{TabID: id, WindowID: 1}); err != nil {
			t.Errorf("activation during placement: %v", err)
		}
	}
	if err := openTab(t, svc, browser, 1, 3); err != nil {
		t.Fatalf("create: %v", err)
	}
	browser.onMove = nil

	if keys := svc.tracker(1).keys(); slices.Contains(keys, 3) {
		t.Fatalf("expected activation during placement not recorded, got %v", keys)
	}
	if svc.placing.Load() != 0 {
		t.Fatalf("expected guard released")
	}

	activateTab(t, svc, browser, 1, 3)
	if keys := svc.tracker(1).keys(); keys[0] != 3 {
		t.Fatalf("expected activation recorded after placement, got %v", keys)
	}
}

func TestPlacementReleasesGuardOnFailure(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, 1, false)
	svc, _ := newTestService(t, browser, nil)
	activateTab(t, svc, browser, 1, 1)

	browser.failMove = true
	if err := openTab(t, svc, browser, 1, 2); err == nil {
		t.Fatalf("expected move failure")
	}
	if svc.placing.Load() != 0 {
		t.Fatalf("expected guard released after failure")
	}
}

func TestTabRemovedForgetsTrackerEntries(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, schema.GroupNone, false)
	browser.addTab(1, 2, schema.GroupNone, false)
	svc, _ := newTestService(t, browser, nil)
	ctx := context.Background()
	activateTab(t, svc, browser, 1, 1)
	activateTab(t, svc, browser, 1, 2)

	browser.remove(2)
	if err := svc.HandleTabRemoved(ctx, schema.TabRemovedEvent{TabID: 2, WindowID: 1}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if keys := svc.tracker(1).keys(); !slices.Equal(keys, []schema.TabID{1}) {
		t.Fatalf("expected removed tab forgotten, got %v", keys)
	}

	if err := svc.HandleTabRemoved(ctx, schema.TabRemovedEvent{TabID: 1, WindowID: 1, WindowClosing: true}); err != nil {
		t.Fatalf("remove window: %v", err)
	}
	svc.mu.Lock()
	_, ok := svc.trackers[1]
	svc.mu.Unlock()
	if ok {
		t.Fatalf("expected tracker dropped when the window closes")
	}
}

func TestDebugBreadcrumbsFollowSetting(t *testing.T) {
	browser := newFakeBrowser()
	browser.addTab(1, 1, schema.GroupNone, false)
	settings := newMemorySettings(schema.DefaultSettings())
	svc, _ := newTestService(t, browser, settings)

	quiet := &logCapture{}
	browser.activate(1)
	if err := svc.HandleTabActivated(newCaptureContext(quiet), schema.TabActivatedEvent{TabID: 1, WindowID: 1}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if quiet.has("activation recorded") {
		t.Fatalf("expected no breadcrumbs with debug off")
	}

	if _, err := svc.SetDebug(context.Background(), true); err != nil {
		t.Fatalf("set debug: %v", err)
	}
	loud := &logCapture{}
	if err := svc.HandleTabActivated(newCaptureContext(loud), schema.TabActivatedEvent{TabID: 1, WindowID: 1}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !loud.has("activation recorded") {
		t.Fatalf("expected breadcrumb with debug on, got %+v", loud.Entries())
	}
}
