// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

// Package ident implements the identity-resolution tables of the
// server: fixed-bucket keyed hash tables mapping client names, client
// identifiers, and channel names to live entities. Tables hold entities
// by reference only; callers own entity lifetime and must remove an
// entity from every table before dropping it.
package ident

import "github.com/relaymesh/relaycore/internal/watch"

// Kind classifies a client entity.
type Kind int

const (
	// KindUser is a regular user connection.
	KindUser Kind = iota
	// KindServer is a linked server peer.
	KindServer
	// KindSelf is the local server's own entity.
	KindSelf
)

// Client is a live client entity. Name and ID are indexed by the
// registry through the embedded link nodes; each node belongs to at
// most one bucket chain at a time.
type Client struct {
	Name     string // nickname or server name
	ID       string // unique identifier, see NewClientID
	Server   string // name of the server the client is attached to
	Username string
	Host     string
	Kind     Kind

	// Watch holds the client's personal watch-subscription list.
	Watch watch.SubscriberState

	nameLink link
	idLink   link
}

// NewClient returns a client ready for table insertion.
func NewClient(name string, kind Kind) *Client {
	c := &Client{Name: name, Kind: kind}
	c.nameLink.owner = c
	c.idLink.owner = c
	return c
}

// WatchState implements watch.Subscriber.
func (c *Client) WatchState() *watch.SubscriberState {
	return &c.Watch
}

// IsServer reports whether c speaks for a server, local or remote.
func (c *Client) IsServer() bool {
	return c.Kind == KindServer || c.Kind == KindSelf
}

// Channel is a live channel entity. Chained singly within its bucket;
// channel removals are rare enough that unlinking rescans the chain.
type Channel struct {
	Name string

	hashNext *Channel
	linked   bool
}

// NewChannel returns a channel ready for table insertion.
func NewChannel(name string) *Channel {
	return &Channel{Name: name}
}
