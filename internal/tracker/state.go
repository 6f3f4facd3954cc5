// Package tracker attributes elapsed browsing time to the active URL.
package tracker

import (
	"fmt"
	"time"

	"github.com/ashureev/sitetime/internal/classify"
)

// Kind identifies a browser activity event.
type Kind string

const (
	TabActivated Kind = "tab_activated"
	URLChanged   Kind = "url_changed"
	FocusLost    Kind = "focus_lost"
	FocusGained  Kind = "focus_gained"
	Shutdown     Kind = "shutdown"
	Checkpoint   Kind = "checkpoint"
)

// ParseKind validates an event kind received from a client. Checkpoint is
// internal and cannot be sent as an event.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case TabActivated, URLChanged, FocusLost, FocusGained, Shutdown:
		return k, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Event is one browser activity transition. TabID zero means "no tab".
type Event struct {
	Kind     Kind
	TabID    int64
	WindowID int64
	URL      string
	At       time.Time
}

// State is the single open tracking session. The zero value is idle.
type State struct {
	TabID     int64     `json:"tabId"`
	URL       string    `json:"url"`
	StartedAt time.Time `json:"startedAt"`
	Armed     bool      `json:"armed"`
}

// Visit is a closed-out interval to attribute to URL.
type Visit struct {
	URL     string
	Elapsed time.Duration
	EndedAt time.Time
}

func trackableURL(rawURL string) string {
	if classify.IsTrackable(rawURL) {
		return rawURL
	}
	return ""
}

// Transition applies ev to s. It returns the next state and the visit that
// was closed out, if any. Transition is pure; the caller owns persistence.
func Transition(s State, ev Event) (State, *Visit) {
	if ev.Kind == URLChanged && (!s.Armed || ev.TabID != s.TabID) {
		return s, nil
	}

	visit := closeOut(s, ev.At)

	switch ev.Kind {
	case TabActivated:
		return arm(ev.TabID, ev.URL, ev.At), visit
	case URLChanged:
		return arm(s.TabID, ev.URL, ev.At), visit
	case FocusGained:
		if ev.TabID == 0 {
			return State{}, visit
		}
		return arm(ev.TabID, ev.URL, ev.At), visit
	case Checkpoint:
		if !s.Armed {
			return s, nil
		}
		return arm(s.TabID, s.URL, ev.At), visit
	case FocusLost, Shutdown:
		return State{}, visit
	default:
		return s, nil
	}
}

func arm(tabID int64, rawURL string, at time.Time) State {
	return State{TabID: tabID, URL: trackableURL(rawURL), StartedAt: at, Armed: true}
}

func closeOut(s State, at time.Time) *Visit {
	if !s.Armed || s.URL == "" {
		return nil
	}
	elapsed := at.Sub(s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return &Visit{URL: s.URL, Elapsed: elapsed, EndedAt: at}
}
