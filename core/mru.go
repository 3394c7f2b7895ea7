package core

import (
	"context"
	"slices"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"pkt.systems/tabherd/schema"
)

// mruTracker remembers the most recently used tabs of one window.
type mruTracker struct {
	windowID schema.WindowID
	browser  Browser

	mu    sync.Mutex
	cache *simplelru.LRU[schema.TabID, schema.Tab]
}

func newMRUTracker(windowID schema.WindowID, capacity int, browser Browser) *mruTracker {
	if capacity < 1 {
		capacity = schema.DefaultMRUCapacity
	}
	cache, err := simplelru.NewLRU[schema.TabID, schema.Tab](capacity, nil)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &mruTracker{windowID: windowID, browser: browser, cache: cache}
}

// record upserts the tab as most recent. Tabs without an index are still
// being created and tabs from other windows do not belong here.
func (t *mruTracker) record(tab schema.Tab) bool {
	if _, ok := tab.Position(); !ok {
		return false
	}
	if tab.WindowID != t.windowID {
		return false
	}
	t.mu.Lock()
	t.cache.Add(tab.ID, tab)
	t.mu.Unlock()
	return true
}

// lookup returns the live state of the most recent tab that still exists in
// this window and is not skipped. Stale entries are dropped as they are found.
func (t *mruTracker) lookup(ctx context.Context, skip func(schema.Tab) bool) (schema.Tab, bool) {
	for _, id := range t.keys() {
		live, ok := safeGetTab(ctx, t.browser, id)
		if !ok || live.WindowID != t.windowID {
			t.forget(id)
			continue
		}
		if skip != nil && skip(live) {
			continue
		}
		t.mu.Lock()
		if t.cache.Contains(id) {
			t.cache.Add(id, live)
		}
		t.mu.Unlock()
		return live, true
	}
	return schema.Tab{}, false
}

// forget drops a tab id.
func (t *mruTracker) forget(id schema.TabID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Remove(id)
}

// keys returns tracked ids, most recent first.
func (t *mruTracker) keys() []schema.TabID {
	t.mu.Lock()
	keys := t.cache.Keys()
	t.mu.Unlock()
	slices.Reverse(keys)
	return keys
}

func (t *mruTracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}
