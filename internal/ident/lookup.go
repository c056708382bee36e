// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package ident

import (
	"strings"

	"github.com/relaymesh/relaycore/internal/siphash"
)

// FindClient resolves a name to a client. The id table is consulted
// first only when the requester is nil or a server peer: identifiers
// circulate between servers, never to ordinary users, so a user-issued
// lookup must not resolve them.
func (r *Registry) FindClient(name string, requester *Client) *Client {
	if requester == nil || requester.Kind == KindServer {
		if c := r.FindClientByID(name); c != nil {
			return c
		}
	}
	return r.FindClientByName(name)
}

// FindPerson resolves a name to a user client. Servers and the local
// entity never match.
func (r *Registry) FindPerson(name string, requester *Client) *Client {
	c := r.FindClient(name, requester)
	if c != nil && c.Kind == KindUser {
		return c
	}
	return nil
}

// FindServer resolves a name to a server entity, local or remote.
func (r *Registry) FindServer(name string) *Client {
	if name == "" {
		return nil
	}
	c := r.FindClient(name, nil)
	if c != nil && c.IsServer() {
		return c
	}
	return nil
}

// FindNickAtServer resolves "nick" or "nick@server" forms. The nick
// portion resolves through the trusted-context path; when a server
// portion is present it must match the client's server field
// case-insensitively, otherwise fallback is returned. An unknown nick
// returns nil regardless of fallback.
func (r *Registry) FindNickAtServer(name string, fallback *Client) *Client {
	nick, server, hasServer := strings.Cut(name, "@")

	c := r.FindClient(nick, nil)
	if c == nil {
		return nil
	}
	if !hasServer {
		return c
	}
	if siphash.EqualFold(server, c.Server) {
		return c
	}
	return fallback
}
