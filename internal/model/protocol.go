// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"sort"
	"sync"
)

// Protocol is the forwarding protocol of a route. The set is open: new
// values are admitted through RegisterProtocol.
type Protocol string

const ProtocolHTTP Protocol = "http"

var (
	protocolsMu sync.RWMutex
	protocols   = map[Protocol]struct{}{ProtocolHTTP: {}}
)

// RegisterProtocol adds p to the set of protocols accepted by validation.
func RegisterProtocol(p Protocol) {
	protocolsMu.Lock()
	defer protocolsMu.Unlock()
	protocols[p] = struct{}{}
}

// IsRegistered reports whether p may be submitted.
func (p Protocol) IsRegistered() bool {
	protocolsMu.RLock()
	defer protocolsMu.RUnlock()
	_, ok := protocols[p]
	return ok
}

// Protocols returns the registered protocols in sorted order.
func Protocols() []Protocol {
	protocolsMu.RLock()
	defer protocolsMu.RUnlock()
	out := make([]Protocol, 0, len(protocols))
	for p := range protocols {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
