package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/tabherd/schema"
)

// Host to extension methods.
const (
	MethodTabsGet         = "tabs.get"
	MethodTabsQuery       = "tabs.query"
	MethodTabsMove        = "tabs.move"
	MethodTabsUpdate      = "tabs.update"
	MethodTabsCreate      = "tabs.create"
	MethodTabsGroup       = "tabs.group"
	MethodTabGroupsUpdate = "tabGroups.update"
	MethodTabGroupsMove   = "tabGroups.move"
	MethodTabGroupsQuery  = "tabGroups.query"
)

// Extension to host methods, issued by the popup.
const (
	MethodSettingsGet            = "settings.get"
	MethodSettingsSet            = "settings.set"
	MethodSettingsToggleAutoHide = "settings.toggleAutoHide"
	MethodGroupsList             = "groups.list"
)

// Error codes carried in error responses.
const (
	CodeNotFound      = "not_found"
	CodeGroupNotFound = "group_not_found"
	CodeInvalid       = "invalid_request"
	CodeUnknownMethod = "unknown_method"
	CodeInternal      = "internal"
)

// message is the single envelope used in both directions. Requests carry
// id+method, responses id+result or id+error, events event+params.
type message struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Event  string          `json:"event,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

func (m message) isResponse() bool {
	return m.ID != "" && m.Method == "" && m.Event == ""
}

// RemoteError is an error reported by the other side of the bridge.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is maps well-known codes onto the schema sentinels.
func (e *RemoteError) Is(target error) bool {
	switch e.Code {
	case CodeNotFound:
		return target == schema.ErrTabNotFound
	case CodeGroupNotFound:
		return target == schema.ErrGroupNotFound
	case CodeInvalid:
		return target == schema.ErrInvalidRequest
	case CodeUnknownMethod:
		return target == schema.ErrUnknownMethod
	}
	return false
}

func remoteErrorFor(err error) *RemoteError {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}
	code := CodeInternal
	switch {
	case errors.Is(err, schema.ErrTabNotFound):
		code = CodeNotFound
	case errors.Is(err, schema.ErrGroupNotFound):
		code = CodeGroupNotFound
	case errors.Is(err, schema.ErrInvalidRequest), errors.Is(err, schema.ErrInvalidGroupName):
		code = CodeInvalid
	case errors.Is(err, schema.ErrUnknownMethod), errors.Is(err, schema.ErrUnknownCommand):
		code = CodeUnknownMethod
	}
	return &RemoteError{Code: code, Message: err.Error()}
}

// Request parameters for host to extension calls.

type tabParams struct {
	TabID schema.TabID `json:"tabId"`
}

type moveTabParams struct {
	TabID schema.TabID `json:"tabId"`
	Index int          `json:"index"`
}

type updateTabParams struct {
	TabID  schema.TabID `json:"tabId"`
	Active bool         `json:"active"`
}

type groupTabsParams struct {
	TabIDs  []schema.TabID  `json:"tabIds"`
	GroupID *schema.GroupID `json:"groupId,omitempty"`
}

type groupTabsResult struct {
	GroupID schema.GroupID `json:"groupId"`
}

type updateGroupParams struct {
	GroupID schema.GroupID `json:"groupId"`
	schema.GroupUpdate
}

type moveGroupParams struct {
	GroupID schema.GroupID `json:"groupId"`
	Index   int            `json:"index"`
}

// SetSettingsParams changes individual settings. Nil fields are left alone.
type SetSettingsParams struct {
	Debug               *bool   `json:"debug,omitempty"`
	DefaultTabGroupName *string `json:"defaultTabGroupName,omitempty"`
}
