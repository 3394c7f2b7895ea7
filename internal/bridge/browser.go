package bridge

import (
	"context"

	"pkt.systems/tabherd/schema"
)

// Browser implements the core browser API by calling into the extension.
type Browser struct {
	peer *Peer
}

// NewBrowser returns a Browser backed by the peer.
func NewBrowser(peer *Peer) *Browser {
	return &Browser{peer: peer}
}

func (b *Browser) GetTab(ctx context.Context, id schema.TabID) (schema.Tab, error) {
	var tab schema.Tab
	if err := b.peer.Call(ctx, MethodTabsGet, tabParams{TabID: id}, &tab); err != nil {
		return schema.Tab{}, err
	}
	return tab, nil
}

func (b *Browser) QueryTabs(ctx context.Context, query schema.TabQuery) ([]schema.Tab, error) {
	var tabs []schema.Tab
	if err := b.peer.Call(ctx, MethodTabsQuery, query, &tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}

func (b *Browser) MoveTab(ctx context.Context, id schema.TabID, index int) error {
	return b.peer.Call(ctx, MethodTabsMove, moveTabParams{TabID: id, Index: index}, nil)
}

func (b *Browser) ActivateTab(ctx context.Context, id schema.TabID) error {
	return b.peer.Call(ctx, MethodTabsUpdate, updateTabParams{TabID: id, Active: true}, nil)
}

func (b *Browser) CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.Tab, error) {
	var tab schema.Tab
	if err := b.peer.Call(ctx, MethodTabsCreate, req, &tab); err != nil {
		return schema.Tab{}, err
	}
	return tab, nil
}

func (b *Browser) GroupTabs(ctx context.Context, ids []schema.TabID, groupID *schema.GroupID) (schema.GroupID, error) {
	var result groupTabsResult
	if err := b.peer.Call(ctx, MethodTabsGroup, groupTabsParams{TabIDs: ids, GroupID: groupID}, &result); err != nil {
		return schema.GroupNone, err
	}
	return result.GroupID, nil
}

func (b *Browser) UpdateGroup(ctx context.Context, id schema.GroupID, update schema.GroupUpdate) error {
	return b.peer.Call(ctx, MethodTabGroupsUpdate, updateGroupParams{GroupID: id, GroupUpdate: update}, nil)
}

func (b *Browser) MoveGroup(ctx context.Context, id schema.GroupID, index int) error {
	return b.peer.Call(ctx, MethodTabGroupsMove, moveGroupParams{GroupID: id, Index: index}, nil)
}

func (b *Browser) QueryGroups(ctx context.Context, query schema.GroupQuery) ([]schema.Group, error) {
	var groups []schema.Group
	if err := b.peer.Call(ctx, MethodTabGroupsQuery, query, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
