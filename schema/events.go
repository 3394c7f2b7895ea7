package schema

// Browser event names delivered by the extension.
const (
	EventTabActivated = "tabs.onActivated"
	EventTabCreated   = "tabs.onCreated"
	EventTabRemoved   = "tabs.onRemoved"
	EventCommand      = "commands.onCommand"
	// EventSettingsChanged is sent to the extension when settings change on disk.
	EventSettingsChanged = "settings.changed"
)

// TabActivatedEvent mirrors tabs.onActivated.
type TabActivatedEvent struct {
	TabID    TabID    `json:"tabId"`
	WindowID WindowID `json:"windowId"`
}

// TabCreatedEvent mirrors tabs.onCreated.
type TabCreatedEvent struct {
	Tab Tab `json:"tab"`
}

// TabRemovedEvent mirrors tabs.onRemoved.
type TabRemovedEvent struct {
	TabID         TabID    `json:"tabId"`
	WindowID      WindowID `json:"windowId"`
	WindowClosing bool     `json:"isWindowClosing"`
}

// CommandEvent mirrors commands.onCommand.
type CommandEvent struct {
	Command string `json:"command"`
}

// ActionType names a mutation performed on the browser.
type ActionType string

const (
	ActionMoveTab     ActionType = "move_tab"
	ActionGroupTabs   ActionType = "group_tabs"
	ActionCollapse    ActionType = "collapse_group"
	ActionRenameGroup ActionType = "rename_group"
	ActionMoveGroup   ActionType = "move_group"
	ActionActivate    ActionType = "activate_tab"
	ActionCreateTab   ActionType = "create_tab"
)

// ActionEvent records a mutation issued to the browser.
type ActionEvent struct {
	Type     ActionType `json:"type"`
	WindowID WindowID   `json:"windowId"`
	TabIDs   []TabID    `json:"tabIds,omitempty"`
	GroupID  GroupID    `json:"groupId"`
	Index    int        `json:"index"`
	Reason   string     `json:"reason,omitempty"`
}
