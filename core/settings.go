package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/schema"
)

var errNoSettingsStore = errors.New("settings store not configured")

func (s *service) GetSettings(ctx context.Context) (schema.Settings, error) {
	if ctx == nil {
		return schema.Settings{}, errors.New("missing context")
	}
	if s.settings == nil {
		return schema.DefaultSettings(), nil
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return schema.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return schema.NormalizeSettings(settings), nil
}

func (s *service) SetDebug(ctx context.Context, enabled bool) (schema.Settings, error) {
	return s.updateSettings(ctx, func(settings *schema.Settings) error {
		settings.Debug = enabled
		return nil
	})
}

func (s *service) SetDefaultGroupName(ctx context.Context, name string) (schema.Settings, error) {
	normalized, err := schema.NormalizeGroupName(name)
	if err != nil {
		return schema.Settings{}, err
	}
	return s.updateSettings(ctx, func(settings *schema.Settings) error {
		settings.DefaultTabGroupName = normalized
		return nil
	})
}

func (s *service) ToggleAutoHide(ctx context.Context, req schema.ToggleAutoHideRequest) (schema.ToggleAutoHideResponse, error) {
	if req.GroupID == schema.GroupNone {
		return schema.ToggleAutoHideResponse{}, fmt.Errorf("%w: group id is required", schema.ErrInvalidRequest)
	}
	var disabled bool
	_, err := s.updateSettings(ctx, func(settings *schema.Settings) error {
		disabled = settings.ToggleAutoHide(req.GroupID)
		return nil
	})
	if err != nil {
		return schema.ToggleAutoHideResponse{}, err
	}
	pslog.Ctx(ctx).Info("auto-hide toggled", "group", int(req.GroupID), "auto_hide_disabled", disabled)
	return schema.ToggleAutoHideResponse{GroupID: req.GroupID, AutoHideDisabled: disabled}, nil
}

// ListGroups lists the groups of the last focused window together with their
// auto-hide state.
func (s *service) ListGroups(ctx context.Context) (schema.ListGroupsResponse, error) {
	if ctx == nil {
		return schema.ListGroupsResponse{}, errors.New("missing context")
	}
	query := schema.GroupQuery{}
	if active, ok := firstTab(ctx, s.browser, schema.ActiveInLastFocused()); ok {
		query = schema.GroupsInWindow(active.WindowID)
	}
	groups, err := s.browser.QueryGroups(ctx, query)
	if err != nil {
		return schema.ListGroupsResponse{}, fmt.Errorf("query groups: %w", err)
	}
	settings := s.loadSettings(ctx)
	resp := schema.ListGroupsResponse{Groups: make([]schema.GroupStatus, 0, len(groups))}
	for _, group := range groups {
		resp.Groups = append(resp.Groups, schema.GroupStatus{
			Group:            group,
			AutoHideDisabled: settings.AutoHideDisabled(group.ID),
		})
	}
	return resp, nil
}

func (s *service) updateSettings(ctx context.Context, mutate func(*schema.Settings) error) (schema.Settings, error) {
	if ctx == nil {
		return schema.Settings{}, errors.New("missing context")
	}
	if s.settings == nil {
		return schema.Settings{}, errNoSettingsStore
	}
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return schema.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = schema.NormalizeSettings(settings)
	if err := mutate(&settings); err != nil {
		return schema.Settings{}, err
	}
	settings = schema.NormalizeSettings(settings)
	if err := s.settings.Save(ctx, settings); err != nil {
		return schema.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}
