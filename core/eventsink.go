package core

import "pkt.systems/tabherd/schema"

// EventSink receives the mutations the service issues to the browser.
type EventSink interface {
	OnAction(event schema.ActionEvent)
}
