// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package watch

import "time"

// EventKind distinguishes the presence transitions a watcher can see.
type EventKind int

const (
	// EventOnline fires when a watched nickname appears on the network.
	EventOnline EventKind = iota
	// EventOffline fires when a watched nickname leaves the network.
	EventOffline
	// EventAway fires when a watched user marks themselves away.
	EventAway
	// EventBack fires when a watched user returns from away.
	EventBack
	// EventAwayChanged fires when an away user changes their away text.
	EventAwayChanged
)

// awayKind reports whether k is an away-state transition. Those go out
// as the compact variant, and only to subscribers who asked for them.
func (k EventKind) awayKind() bool {
	return k == EventAway || k == EventBack || k == EventAwayChanged
}

func (k EventKind) String() string {
	switch k {
	case EventOnline:
		return "online"
	case EventOffline:
		return "offline"
	case EventAway:
		return "away"
	case EventBack:
		return "back"
	case EventAwayChanged:
		return "away-changed"
	default:
		return "unknown"
	}
}

// Event describes one presence transition for fan-out. Seen carries the
// away-change timestamp for away kinds; for general kinds the registry
// overwrites it with the header's last-change time.
type Event struct {
	Kind        EventKind
	Nick        string
	Username    string
	Host        string
	Seen        time.Time
	AwayMessage string // set for EventAway and EventAwayChanged
}

// Notifier delivers one notification to one subscriber. Protocol
// formatting and transmission happen behind this interface; the
// registry only decides whether and to whom.
type Notifier interface {
	Notify(sub Subscriber, ev Event)
}
