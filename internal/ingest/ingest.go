// Package ingest defines the boundary between the out-of-scope upstream
// packet-capture/TCP-reassembly/IP-demux layer and the flow-processing
// core: the wire-level types a reassembler hands over, and the Source
// interface it implements.
package ingest

import (
	"context"

	"imapflow/internal/flow"
)

// Packet is one reassembled, direction-tagged payload slice ready to be
// handed to a flow.Table's Process method.
type Packet struct {
	Direction flow.Direction
	Tuple     flow.FourTuple
	Payload   []byte
	// TimestampMS is the packet's epoch-millisecond arrival time, used
	// as the flow's last-activity clock.
	TimestampMS int64
}

// Source yields successive Packets until ctx is cancelled or the
// underlying stream is exhausted. Next returns io.EOF once the stream is
// exhausted and ctx.Err() once ctx is cancelled (callers should treat
// any non-nil error as terminal: no "retry Next" contract is implied).
type Source interface {
	Next(ctx context.Context) (Packet, error)
}
