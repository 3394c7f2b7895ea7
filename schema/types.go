package schema

import "encoding/json"

// TabID identifies a browser tab. Stable for the lifetime of the tab.
type TabID int

// WindowID identifies a browser window.
type WindowID int

// GroupID identifies a tab group.
type GroupID int

// GroupNone is the group id of a tab that belongs to no group.
const GroupNone GroupID = -1

// WindowNone marks an unset window id.
const WindowNone WindowID = -1

// IndexLast moves a tab or group to the end of the tab strip.
const IndexLast = -1

// DefaultMRUCapacity is the default number of tabs tracked per window.
const DefaultMRUCapacity = 10

// DefaultTabGroupName is used when no default group name has been configured.
const DefaultTabGroupName = "Default"

// Direction is a signed step along the tab strip.
type Direction int

const (
	// Forward steps to the right.
	Forward Direction = 1
	// Backward steps to the left.
	Backward Direction = -1
)

// Tab is a point-in-time snapshot of a browser tab. A later snapshot for the
// same ID supersedes an earlier one.
type Tab struct {
	ID       TabID    `json:"id"`
	WindowID WindowID `json:"windowId"`
	// Index is nil while the browser is still creating the tab.
	Index   *int    `json:"index,omitempty"`
	Pinned  bool    `json:"pinned"`
	Active  bool    `json:"active"`
	GroupID GroupID `json:"groupId"`
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
}

// UnmarshalJSON decodes a tab snapshot. A missing groupId means the tab is
// ungrouped, as reported by browsers without tab group support.
func (t *Tab) UnmarshalJSON(data []byte) error {
	type plain Tab
	decoded := plain{GroupID: GroupNone}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*t = Tab(decoded)
	return nil
}

// Position returns the tab index and whether it is known.
func (t Tab) Position() (int, bool) {
	if t.Index == nil {
		return 0, false
	}
	return *t.Index, true
}

// Grouped reports whether the tab belongs to a tab group.
func (t Tab) Grouped() bool {
	return t.GroupID != GroupNone
}

// IndexPtr returns a pointer to the given index, for building snapshots.
func IndexPtr(index int) *int {
	return &index
}

// Group is a browser tab group.
type Group struct {
	ID        GroupID  `json:"id"`
	WindowID  WindowID `json:"windowId"`
	Title     string   `json:"title"`
	Collapsed bool     `json:"collapsed"`
	Color     string   `json:"color,omitempty"`
}
