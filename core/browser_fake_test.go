package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"testing"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/schema"
)

// fakeBrowser keeps tab strips per window and applies moves the way the
// browser does: the index passed to a move is the final position.
type fakeBrowser struct {
	mu        sync.Mutex
	windows   map[schema.WindowID][]*fakeTab
	groups    map[schema.GroupID]*schema.Group
	focused   schema.WindowID
	nextTab   schema.TabID
	nextGroup schema.GroupID
	calls     []string

	failGet   map[schema.TabID]bool
	failMove  bool
	failGroup bool
	onMove    func(id schema.TabID)

	// onQueryGroups runs before QueryGroups takes the lock.
	onQueryGroups func()
}

type fakeTab struct {
	id     schema.TabID
	pinned bool
	active bool
	group  schema.GroupID
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		windows:   make(map[schema.WindowID][]*fakeTab),
		groups:    make(map[schema.GroupID]*schema.Group),
		focused:   1,
		nextTab:   100,
		nextGroup: 10,
		failGet:   make(map[schema.TabID]bool),
	}
}

// addTab appends a tab to the window strip.
func (b *fakeBrowser) addTab(windowID schema.WindowID, id schema.TabID, groupID schema.GroupID, pinned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows[windowID] = append(b.windows[windowID], &fakeTab{id: id, pinned: pinned, group: groupID})
	if groupID != schema.GroupNone && b.groups[groupID] == nil {
		b.groups[groupID] = &schema.Group{ID: groupID, WindowID: windowID}
	}
}

func (b *fakeBrowser) addGroup(group schema.Group) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := group
	b.groups[group.ID] = &g
}

// activate marks a tab active without recording a call.
func (b *fakeBrowser) activate(id schema.TabID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	windowID, _, ok := b.locate(id)
	if !ok {
		return
	}
	for _, tab := range b.windows[windowID] {
		tab.active = tab.id == id
	}
}

func (b *fakeBrowser) remove(id schema.TabID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	windowID, index, ok := b.locate(id)
	if !ok {
		return
	}
	b.windows[windowID] = slices.Delete(b.windows[windowID], index, index+1)
}

func (b *fakeBrowser) snapshot(id schema.TabID) schema.Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	windowID, index, ok := b.locate(id)
	if !ok {
		return schema.Tab{}
	}
	return b.tabLocked(windowID, index)
}

// order returns the tab ids of a window in strip order.
func (b *fakeBrowser) order(windowID schema.WindowID) []schema.TabID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]schema.TabID, 0, len(b.windows[windowID]))
	for _, tab := range b.windows[windowID] {
		ids = append(ids, tab.id)
	}
	return ids
}

func (b *fakeBrowser) group(id schema.GroupID) schema.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g := b.groups[id]; g != nil {
		return *g
	}
	return schema.Group{}
}

func (b *fakeBrowser) groupCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.groups)
}

func (b *fakeBrowser) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

func (b *fakeBrowser) countCalls(prefix string) int {
	count := 0
	for _, call := range b.callLog() {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			count++
		}
	}
	return count
}

func (b *fakeBrowser) locate(id schema.TabID) (schema.WindowID, int, bool) {
	for windowID, tabs := range b.windows {
		for i, tab := range tabs {
			if tab.id == id {
				return windowID, i, true
			}
		}
	}
	return 0, 0, false
}

func (b *fakeBrowser) tabLocked(windowID schema.WindowID, index int) schema.Tab {
	tab := b.windows[windowID][index]
	return schema.Tab{
		ID:       tab.id,
		WindowID: windowID,
		Index:    schema.IndexPtr(index),
		Pinned:   tab.pinned,
		Active:   tab.active,
		GroupID:  tab.group,
	}
}

func (b *fakeBrowser) GetTab(_ context.Context, id schema.TabID) (schema.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGet[id] {
		return schema.Tab{}, fmt.Errorf("transport failure for %d", id)
	}
	windowID, index, ok := b.locate(id)
	if !ok {
		return schema.Tab{}, schema.ErrTabNotFound
	}
	return b.tabLocked(windowID, index), nil
}

func (b *fakeBrowser) QueryTabs(_ context.Context, query schema.TabQuery) ([]schema.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	windows := make([]schema.WindowID, 0, len(b.windows))
	for windowID := range b.windows {
		windows = append(windows, windowID)
	}
	slices.Sort(windows)
	var out []schema.Tab
	for _, windowID := range windows {
		if query.WindowID != nil && *query.WindowID != windowID {
			continue
		}
		if query.LastFocusedWindow && windowID != b.focused {
			continue
		}
		for i := range b.windows[windowID] {
			tab := b.tabLocked(windowID, i)
			if query.Active != nil && tab.Active != *query.Active {
				continue
			}
			if query.GroupID != nil && tab.GroupID != *query.GroupID {
				continue
			}
			out = append(out, tab)
		}
	}
	return out, nil
}

func (b *fakeBrowser) MoveTab(_ context.Context, id schema.TabID, index int) error {
	b.mu.Lock()
	b.calls = append(b.calls, fmt.Sprintf("move %d->%d", id, index))
	if b.failMove {
		b.mu.Unlock()
		return fmt.Errorf("move rejected")
	}
	windowID, current, ok := b.locate(id)
	if !ok {
		b.mu.Unlock()
		return schema.ErrTabNotFound
	}
	tabs := b.windows[windowID]
	tab := tabs[current]
	tabs = slices.Delete(tabs, current, current+1)
	if index < 0 || index > len(tabs) {
		index = len(tabs)
	}
	b.windows[windowID] = slices.Insert(tabs, index, tab)
	hook := b.onMove
	b.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return nil
}

func (b *fakeBrowser) ActivateTab(_ context.Context, id schema.TabID) error {
	b.mu.Lock()
	b.calls = append(b.calls, fmt.Sprintf("activate %d", id))
	b.mu.Unlock()
	b.activate(id)
	return nil
}

func (b *fakeBrowser) CreateTab(_ context.Context, req schema.CreateTabRequest) (schema.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextTab++
	id := b.nextTab
	b.calls = append(b.calls, fmt.Sprintf("create %d", id))
	tabs := b.windows[req.WindowID]
	index := len(tabs)
	if req.Index != nil && *req.Index >= 0 && *req.Index <= len(tabs) {
		index = *req.Index
	}
	if req.Active {
		for _, tab := range tabs {
			tab.active = false
		}
	}
	b.windows[req.WindowID] = slices.Insert(tabs, index, &fakeTab{id: id, active: req.Active, group: schema.GroupNone})
	return b.tabLocked(req.WindowID, index), nil
}

func (b *fakeBrowser) GroupTabs(_ context.Context, ids []schema.TabID, groupID *schema.GroupID) (schema.GroupID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGroup {
		return schema.GroupNone, fmt.Errorf("group rejected")
	}
	var target schema.GroupID
	if groupID != nil {
		if b.groups[*groupID] == nil {
			return schema.GroupNone, schema.ErrGroupNotFound
		}
		target = *groupID
	} else {
		b.nextGroup++
		target = b.nextGroup
		windowID, _, _ := b.locate(ids[0])
		b.groups[target] = &schema.Group{ID: target, WindowID: windowID}
	}
	b.calls = append(b.calls, fmt.Sprintf("group %v->%d", ids, target))
	for _, id := range ids {
		windowID, index, ok := b.locate(id)
		if !ok {
			return schema.GroupNone, schema.ErrTabNotFound
		}
		b.windows[windowID][index].group = target
	}
	return target, nil
}

func (b *fakeBrowser) UpdateGroup(_ context.Context, id schema.GroupID, update schema.GroupUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	group := b.groups[id]
	if group == nil {
		return schema.ErrGroupNotFound
	}
	if update.Collapsed != nil {
		b.calls = append(b.calls, fmt.Sprintf("collapse %d=%t", id, *update.Collapsed))
		group.Collapsed = *update.Collapsed
	}
	if update.Title != nil {
		b.calls = append(b.calls, fmt.Sprintf("title %d=%s", id, *update.Title))
		group.Title = *update.Title
	}
	return nil
}

func (b *fakeBrowser) MoveGroup(_ context.Context, id schema.GroupID, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	group := b.groups[id]
	if group == nil {
		return schema.ErrGroupNotFound
	}
	b.calls = append(b.calls, fmt.Sprintf("move-group %d->%d", id, index))
	tabs := b.windows[group.WindowID]
	var members, rest []*fakeTab
	for _, tab := range tabs {
		if tab.group == id {
			members = append(members, tab)
		} else {
			rest = append(rest, tab)
		}
	}
	if index < 0 || index > len(rest) {
		index = len(rest)
	}
	b.windows[group.WindowID] = slices.Insert(rest, index, members...)
	return nil
}

func (b *fakeBrowser) QueryGroups(_ context.Context, query schema.GroupQuery) ([]schema.Group, error) {
	if b.onQueryGroups != nil {
		b.onQueryGroups()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []schema.Group
	for _, group := range b.groups {
		if query.WindowID != nil && group.WindowID != *query.WindowID {
			continue
		}
		if query.Title != nil && group.Title != *query.Title {
			continue
		}
		out = append(out, *group)
	}
	slices.SortFunc(out, func(a, b schema.Group) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

type memorySettings struct {
	mu       sync.Mutex
	settings schema.Settings
	saves    int
}

func newMemorySettings(settings schema.Settings) *memorySettings {
	return &memorySettings{settings: settings}
}

func (m *memorySettings) Load(context.Context) (schema.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *memorySettings) Save(_ context.Context, settings schema.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.saves++
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.ActionEvent
}

func (s *recordingSink) OnAction(event schema.ActionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) count(kind schema.ActionType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, event := range s.events {
		if event.Type == kind {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, browser *fakeBrowser, settings SettingsStore) (*service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	svc, err := NewService(schema.ServiceConfig{}, ServiceDeps{
		Browser:   browser,
		Settings:  settings,
		EventSink: sink,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.(*service), sink
}

func assertOrder(t *testing.T, browser *fakeBrowser, windowID schema.WindowID, want ...schema.TabID) {
	t.Helper()
	got := browser.order(windowID)
	if !slices.Equal(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

type logEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

type logCapture struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	lines []string
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.buf.Write(p)
	for {
		data := c.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		c.lines = append(c.lines, string(data[:idx]))
		c.buf.Next(idx + 1)
	}
	return len(p), nil
}

func (c *logCapture) Entries() []logEntry {
	c.mu.Lock()
	lines := slices.Clone(c.lines)
	c.mu.Unlock()
	entries := make([]logEntry, 0, len(lines))
	for _, line := range lines {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			continue
		}
		level, _ := payload["lvl"].(string)
		if value, ok := payload["level"].(string); ok {
			level = value
		}
		message, _ := payload["msg"].(string)
		if value, ok := payload["message"].(string); ok {
			message = value
		}
		entries = append(entries, logEntry{Level: level, Message: message, Fields: payload})
	}
	return entries
}

func (c *logCapture) has(message string) bool {
	for _, entry := range c.Entries() {
		if entry.Message == message {
			return true
		}
	}
	return false
}

func newCaptureContext(capture *logCapture) context.Context {
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		VerboseFields: true,
		MinLevel:      pslog.DebugLevel,
	})
	return pslog.ContextWithLogger(context.Background(), logger)
}
