// Package ingest receives browser activity events over websocket and HTTP.
package ingest

import (
	"fmt"
	"time"

	"github.com/ashureev/sitetime/internal/tracker"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Message is the wire form of a browser event.
type Message struct {
	Type     string `json:"type" validate:"required,oneof=tab_activated url_changed focus_lost focus_gained shutdown ping"`
	TabID    int64  `json:"tabId" validate:"gte=0"`
	WindowID int64  `json:"windowId" validate:"gte=0"`
	URL      string `json:"url" validate:"max=8192"`
	// At is an optional client timestamp in Unix milliseconds.
	At int64 `json:"at,omitempty" validate:"gte=0"`
}

// Reply is sent back for every websocket message.
type Reply struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

var (
	ackReply  = Reply{Type: "ack"}
	pongReply = Reply{Type: "pong"}
)

func errorReply(err error) Reply {
	return Reply{Type: "error", Error: err.Error()}
}

// Validate checks the message fields.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	if m.Type == string(tracker.URLChanged) && m.TabID == 0 {
		return fmt.Errorf("invalid event: url_changed requires tabId")
	}
	if m.Type == string(tracker.TabActivated) && m.TabID == 0 {
		return fmt.Errorf("invalid event: tab_activated requires tabId")
	}
	return nil
}

// Event converts a validated message into a tracker event.
func (m Message) Event() (tracker.Event, error) {
	kind, err := tracker.ParseKind(m.Type)
	if err != nil {
		return tracker.Event{}, err
	}
	ev := tracker.Event{
		Kind:     kind,
		TabID:    m.TabID,
		WindowID: m.WindowID,
		URL:      m.URL,
	}
	if m.At > 0 {
		ev.At = time.UnixMilli(m.At)
	}
	return ev, nil
}
