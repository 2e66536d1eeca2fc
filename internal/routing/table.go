package routing

import (
	"maps"
	"sync/atomic"

	"tfsrelay/internal/config"
)

type snapshot struct {
	channels       map[string]string
	defaultChannel string
}

// Table resolves channel keys ("channel_" + area path) to Slack channels.
// It is safe for concurrent use.
type Table struct {
	current atomic.Pointer[snapshot]
}

// NewTable builds a table from the given routing configuration.
func NewTable(routing config.Routing) *Table {
	t := &Table{}
	t.Replace(routing)
	return t
}

// Replace installs a new routing snapshot.
func (t *Table) Replace(routing config.Routing) {
	t.current.Store(&snapshot{
		channels:       maps.Clone(routing.Channels),
		defaultChannel: routing.DefaultChannel,
	})
}

// Channel returns the channel configured for key, falling back to the default
// channel. An empty result means the webhook's own channel is used.
func (t *Table) Channel(key string) string {
	snap := t.current.Load()
	if snap == nil {
		return ""
	}
	if channel, ok := snap.channels[key]; ok && channel != "" {
		return channel
	}
	return snap.defaultChannel
}

// Len reports how many explicit routes are configured.
func (t *Table) Len() int {
	snap := t.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.channels)
}
