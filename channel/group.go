// File: channel/group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Group is a thread-safe registry of channels supporting fan-out writes,
// supplementing the original implementation's channel-group broadcast
// convenience (not present in spec.md's core module table).
package channel

import (
	"sync"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/promise"
)

// Group tracks a set of live channels, pruning any that close.
type Group struct {
	mu   sync.RWMutex
	set  map[api.ChannelID]api.Channel
}

func NewGroup() *Group {
	return &Group{set: make(map[api.ChannelID]api.Channel)}
}

// Add registers ch and removes it automatically once it closes.
func (g *Group) Add(ch api.Channel) {
	g.mu.Lock()
	g.set[ch.ID()] = ch
	g.mu.Unlock()
	ch.Close().AddListener(func(api.Future) { g.Remove(ch) })
}

func (g *Group) Remove(ch api.Channel) {
	g.mu.Lock()
	delete(g.set, ch.ID())
	g.mu.Unlock()
}

func (g *Group) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.set)
}

// WriteAndFlush fans msg out to every member, returning a future that
// completes once all of them have (successfully or not).
func (g *Group) WriteAndFlush(msg any) api.Future {
	g.mu.RLock()
	members := make([]api.Channel, 0, len(g.set))
	for _, ch := range g.set {
		members = append(members, ch)
	}
	g.mu.RUnlock()

	agg := promise.NewCombined(len(members))
	for _, ch := range members {
		agg.Add(ch.WriteAndFlush(msg))
	}
	return agg.Future()
}

// Close closes every member and returns a future completing once all
// have finished closing.
func (g *Group) Close() api.Future {
	g.mu.RLock()
	members := make([]api.Channel, 0, len(g.set))
	for _, ch := range g.set {
		members = append(members, ch)
	}
	g.mu.RUnlock()

	agg := promise.NewCombined(len(members))
	for _, ch := range members {
		agg.Add(ch.Close())
	}
	return agg.Future()
}
