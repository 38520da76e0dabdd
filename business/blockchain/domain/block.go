// Package domain contains the core domain types for the blockchain context.
package domain

import "time"

// Head is the most recent block number observed over RPC.
type Head struct {
	Number     uint64
	ObservedAt time.Time
}

// Age reports how long ago the head was observed.
func (h Head) Age(now time.Time) time.Duration {
	if h.ObservedAt.IsZero() {
		return 0
	}
	return now.Sub(h.ObservedAt)
}
