package core

import "pkt.systems/pslog"

// ServiceDeps captures dependencies for the core service. Browser is required.
type ServiceDeps struct {
	Browser   Browser
	Settings  SettingsStore
	EventSink EventSink
	Logger    pslog.Logger
}
