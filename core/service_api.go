package core

import (
	"context"

	"pkt.systems/tabherd/schema"
)

// Service is the transport-agnostic tab organization API.
type Service interface {
	// Browser events.
	HandleTabActivated(ctx context.Context, event schema.TabActivatedEvent) error
	HandleTabCreated(ctx context.Context, event schema.TabCreatedEvent) error
	HandleTabRemoved(ctx context.Context, event schema.TabRemovedEvent) error
	HandleCommand(ctx context.Context, event schema.CommandEvent) error

	// Policies.
	CollapseUnfocused(ctx context.Context, windowID schema.WindowID) error
	EnsureInDefaultGroup(ctx context.Context, tab schema.Tab) error

	// Navigation.
	FocusTab(ctx context.Context, direction schema.Direction) error
	MoveTab(ctx context.Context, direction schema.Direction) error
	MoveTabGroup(ctx context.Context, direction schema.Direction) error
	OpenInCurrentGroup(ctx context.Context) error

	// Popup surface.
	GetSettings(ctx context.Context) (schema.Settings, error)
	SetDebug(ctx context.Context, enabled bool) (schema.Settings, error)
	SetDefaultGroupName(ctx context.Context, name string) (schema.Settings, error)
	ToggleAutoHide(ctx context.Context, req schema.ToggleAutoHideRequest) (schema.ToggleAutoHideResponse, error)
	ListGroups(ctx context.Context) (schema.ListGroupsResponse, error)
}
