package core

import (
	"context"

	"pkt.systems/tabherd/schema"
)

// Browser is the host tab/window/group API. Calls are atomic on the host side
// but the state they observe may already be stale when they return.
type Browser interface {
	GetTab(ctx context.Context, id schema.TabID) (schema.Tab, error)
	QueryTabs(ctx context.Context, query schema.TabQuery) ([]schema.Tab, error)
	MoveTab(ctx context.Context, id schema.TabID, index int) error
	ActivateTab(ctx context.Context, id schema.TabID) error
	CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.Tab, error)
	// GroupTabs adds tabs to groupID, or to a new group when groupID is nil.
	GroupTabs(ctx context.Context, ids []schema.TabID, groupID *schema.GroupID) (schema.GroupID, error)
	UpdateGroup(ctx context.Context, id schema.GroupID, update schema.GroupUpdate) error
	MoveGroup(ctx context.Context, id schema.GroupID, index int) error
	QueryGroups(ctx context.Context, query schema.GroupQuery) ([]schema.Group, error)
}

// SettingsStore persists user settings.
type SettingsStore interface {
	Load(ctx context.Context) (schema.Settings, error)
	Save(ctx context.Context, settings schema.Settings) error
}

// safeGetTab fetches a tab and folds every failure into "absent".
func safeGetTab(ctx context.Context, browser Browser, id schema.TabID) (schema.Tab, bool) {
	tab, err := browser.GetTab(ctx, id)
	if err != nil {
		return schema.Tab{}, false
	}
	return tab, true
}

func firstTab(ctx context.Context, browser Browser, query schema.TabQuery) (schema.Tab, bool) {
	tabs, err := browser.QueryTabs(ctx, query)
	if err != nil || len(tabs) == 0 {
		return schema.Tab{}, false
	}
	return tabs[0], true
}
