package schema

// Host queries.

// TabQuery filters tabs. Zero-valued fields do not filter.
type TabQuery struct {
	WindowID          *WindowID `json:"windowId,omitempty"`
	Active            *bool     `json:"active,omitempty"`
	GroupID           *GroupID  `json:"groupId,omitempty"`
	LastFocusedWindow bool      `json:"lastFocusedWindow,omitempty"`
}

// InWindow returns a query for all tabs of a window.
func InWindow(windowID WindowID) TabQuery {
	return TabQuery{WindowID: &windowID}
}

// ActiveInWindow returns a query for the active tab of a window.
func ActiveInWindow(windowID WindowID) TabQuery {
	active := true
	return TabQuery{WindowID: &windowID, Active: &active}
}

// ActiveInLastFocused returns a query for the active tab of the last focused window.
func ActiveInLastFocused() TabQuery {
	active := true
	return TabQuery{Active: &active, LastFocusedWindow: true}
}

// InGroup returns a query for the member tabs of a group.
func InGroup(groupID GroupID) TabQuery {
	return TabQuery{GroupID: &groupID}
}

// GroupQuery filters tab groups. Zero-valued fields do not filter.
type GroupQuery struct {
	WindowID *WindowID `json:"windowId,omitempty"`
	Title    *string   `json:"title,omitempty"`
}

// GroupsInWindow returns a query for all groups of a window.
func GroupsInWindow(windowID WindowID) GroupQuery {
	return GroupQuery{WindowID: &windowID}
}

// GroupsTitled returns a query for groups with the given title in a window.
func GroupsTitled(windowID WindowID, title string) GroupQuery {
	return GroupQuery{WindowID: &windowID, Title: &title}
}

// GroupUpdate changes group properties. Nil fields are left untouched.
type GroupUpdate struct {
	Collapsed *bool   `json:"collapsed,omitempty"`
	Title     *string `json:"title,omitempty"`
}

// CreateTabRequest describes a tab to open.
type CreateTabRequest struct {
	WindowID WindowID `json:"windowId"`
	Index    *int     `json:"index,omitempty"`
	Active   bool     `json:"active"`
	URL      string   `json:"url,omitempty"`
}

// Popup surface.

// ListGroupsResponse reports groups with their auto-hide state.
type ListGroupsResponse struct {
	Groups []GroupStatus `json:"groups"`
}

// GroupStatus is a group as presented by the popup.
type GroupStatus struct {
	Group
	AutoHideDisabled bool `json:"autoHideDisabled"`
}

// ToggleAutoHideRequest flips the auto-hide exemption of a group.
type ToggleAutoHideRequest struct {
	GroupID GroupID `json:"groupId"`
}

// ToggleAutoHideResponse reports the new exemption state.
type ToggleAutoHideResponse struct {
	GroupID          GroupID `json:"groupId"`
	AutoHideDisabled bool    `json:"autoHideDisabled"`
}
