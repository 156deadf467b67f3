// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package propagation

import "github.com/luxfi/pqconsensus/wire"

// Topic names the three logical channels vertex and query traffic is
// separated onto (§4.7). Keeping them distinct lets a slow consensus
// query queue drain independently of bulk vertex exchange, and keeps the
// out-of-scope MCP surface (§1) off the consensus wire entirely.
type Topic string

const (
	// TopicConsensus carries ProposeVertex/QueryVertex/VoteAccept/
	// VoteReject traffic — every consensus/v1 message (§6).
	TopicConsensus Topic = "consensus/v1"
	// TopicExchange is reserved for bulk vertex exchange outside the
	// consensus/v1 message set (e.g. parent backfill transports that
	// move raw vertex bytes rather than typed envelopes).
	TopicExchange Topic = "exchange/v1"
	// TopicMCP is reserved for the out-of-scope MCP surface (§1) and is
	// modeled only as a stub; nothing in this module publishes to it.
	TopicMCP Topic = "mcp/v1"
)

// DefaultChannelBuffer bounds each topic channel so a stalled consumer
// exerts backpressure rather than growing memory without bound.
const DefaultChannelBuffer = 256

// Channels holds the topic-separated message channels a transport
// implementation reads from and writes to. MCP is a typed stub: it is
// wired here only so future MCP collaborators (§6) have a slot to plug
// into, per the Non-goals boundary.
type Channels struct {
	Consensus chan wire.Envelope
	Exchange  chan wire.Envelope
	MCP       chan wire.Envelope
}

// NewChannels returns Channels with each topic buffered to capacity. A
// non-positive capacity falls back to DefaultChannelBuffer.
func NewChannels(capacity int) *Channels {
	if capacity <= 0 {
		capacity = DefaultChannelBuffer
	}
	return &Channels{
		Consensus: make(chan wire.Envelope, capacity),
		Exchange:  make(chan wire.Envelope, capacity),
		MCP:       make(chan wire.Envelope, capacity),
	}
}

// Publish routes env onto the channel for topic. It returns false without
// blocking if that channel's buffer is full.
func (c *Channels) Publish(topic Topic, env wire.Envelope) bool {
	var ch chan wire.Envelope
	switch topic {
	case TopicConsensus:
		ch = c.Consensus
	case TopicExchange:
		ch = c.Exchange
	case TopicMCP:
		ch = c.MCP
	default:
		return false
	}

	select {
	case ch <- env:
		return true
	default:
		return false
	}
}

// Close closes all three topic channels. Callers must ensure no further
// Publish calls are in flight.
func (c *Channels) Close() {
	close(c.Consensus)
	close(c.Exchange)
	close(c.MCP)
}
