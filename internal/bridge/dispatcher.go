package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"pkt.systems/tabherd/core"
	"pkt.systems/tabherd/internal/logx"
	"pkt.systems/tabherd/schema"
)

// Dispatcher routes extension traffic to the core service.
type Dispatcher struct {
	svc core.Service
}

// NewDispatcher returns a Handler for the service.
func NewDispatcher(svc core.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// HandleEvent decodes a browser event and runs the matching handler.
func (d *Dispatcher) HandleEvent(ctx context.Context, name string, params json.RawMessage) error {
	switch name {
	case schema.EventTabActivated:
		var event schema.TabActivatedEvent
		if err := decodeParams(params, &event); err != nil {
			return err
		}
		return d.svc.HandleTabActivated(eventContext(ctx, event.WindowID, event.TabID), event)
	case schema.EventTabCreated:
		var event schema.TabCreatedEvent
		if err := decodeParams(params, &event); err != nil {
			return err
		}
		return d.svc.HandleTabCreated(eventContext(ctx, event.Tab.WindowID, event.Tab.ID), event)
	case schema.EventTabRemoved:
		var event schema.TabRemovedEvent
		if err := decodeParams(params, &event); err != nil {
			return err
		}
		return d.svc.HandleTabRemoved(eventContext(ctx, event.WindowID, event.TabID), event)
	case schema.EventCommand:
		var event schema.CommandEvent
		if err := decodeParams(params, &event); err != nil {
			return err
		}
		return d.svc.HandleCommand(ctx, event)
	default:
		return fmt.Errorf("%w: %s", schema.ErrUnknownMethod, name)
	}
}

// HandleRequest serves popup requests.
func (d *Dispatcher) HandleRequest(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case MethodSettingsGet:
		return d.svc.GetSettings(ctx)
	case MethodSettingsSet:
		var req SetSettingsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return d.setSettings(ctx, req)
	case MethodSettingsToggleAutoHide:
		var req schema.ToggleAutoHideRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return d.svc.ToggleAutoHide(ctx, req)
	case MethodGroupsList:
		return d.svc.ListGroups(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownMethod, method)
	}
}

func (d *Dispatcher) setSettings(ctx context.Context, req SetSettingsParams) (schema.Settings, error) {
	if req.Debug == nil && req.DefaultTabGroupName == nil {
		return schema.Settings{}, fmt.Errorf("%w: no settings given", schema.ErrInvalidRequest)
	}
	var (
		settings schema.Settings
		err      error
	)
	if req.DefaultTabGroupName != nil {
		if settings, err = d.svc.SetDefaultGroupName(ctx, *req.DefaultTabGroupName); err != nil {
			return schema.Settings{}, err
		}
	}
	if req.Debug != nil {
		if settings, err = d.svc.SetDebug(ctx, *req.Debug); err != nil {
			return schema.Settings{}, err
		}
	}
	return settings, nil
}

// eventContext binds window and tab fields to the handler's logger.
func eventContext(ctx context.Context, windowID schema.WindowID, tabID schema.TabID) context.Context {
	return logx.ContextWithWindowTabLogger(ctx, logx.WithWindowTab(ctx, windowID, tabID), windowID, tabID)
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return fmt.Errorf("%w: missing params", schema.ErrInvalidRequest)
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	return nil
}
