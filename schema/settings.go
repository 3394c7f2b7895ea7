package schema

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxGroupNameLength bounds the default tab group name.
const MaxGroupNameLength = 64

// Settings is the persistent user-facing configuration.
type Settings struct {
	Debug                    bool      `json:"debug"`
	DefaultTabGroupName      string    `json:"defaultTabGroupName"`
	AutoHideDisabledGroupIDs []GroupID `json:"autoHideDisabledGroupIds"`
}

// DefaultSettings returns settings for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Debug:                    false,
		DefaultTabGroupName:      DefaultTabGroupName,
		AutoHideDisabledGroupIDs: []GroupID{},
	}
}

// AutoHideDisabled reports whether the group is exempt from auto-collapse.
func (s Settings) AutoHideDisabled(groupID GroupID) bool {
	return slices.Contains(s.AutoHideDisabledGroupIDs, groupID)
}

// ToggleAutoHide flips the exemption for a group and reports the new state.
func (s *Settings) ToggleAutoHide(groupID GroupID) bool {
	if idx := slices.Index(s.AutoHideDisabledGroupIDs, groupID); idx >= 0 {
		s.AutoHideDisabledGroupIDs = slices.Delete(s.AutoHideDisabledGroupIDs, idx, idx+1)
		return false
	}
	s.AutoHideDisabledGroupIDs = append(s.AutoHideDisabledGroupIDs, groupID)
	return true
}

// NormalizeSettings applies defaults and canonicalizes the exemption set.
func NormalizeSettings(s Settings) Settings {
	s.DefaultTabGroupName = strings.TrimSpace(s.DefaultTabGroupName)
	if s.DefaultTabGroupName == "" {
		s.DefaultTabGroupName = DefaultTabGroupName
	}
	ids := make([]GroupID, 0, len(s.AutoHideDisabledGroupIDs))
	for _, id := range s.AutoHideDisabledGroupIDs {
		if id == GroupNone {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	s.AutoHideDisabledGroupIDs = slices.Compact(ids)
	return s
}

// NormalizeGroupName validates a default group name.
func NormalizeGroupName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxGroupNameLength {
		return "", ErrInvalidGroupName
	}
	return trimmed, nil
}
