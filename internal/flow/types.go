// Package flow implements the hash-indexed, time-bucketed registry of
// active bidirectional IMAP flows: FlowKey normalization, the Flow
// itself (owning the two per-direction CircularBuffers and parser
// output), and the Table that owns all Flows and reclaims idle ones.
package flow

import "fmt"

// Direction identifies which side of a flow a payload belongs to.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

func (d Direction) String() string {
	if d == ClientToServer {
		return "C2S"
	}
	return "S2C"
}

// IPVersion tags an IP as v4 or v6.
type IPVersion int

const (
	IPv4 IPVersion = iota
	IPv6
)

// IP is a tagged union over a v4 or v6 address, replacing a
// version-byte-plus-union representation. Equality and hashing follow
// the tag: a v4 and a v6 address are never equal even if their byte
// patterns overlap.
type IP struct {
	Version IPVersion
	V4      [4]byte
	V6      [16]byte
}

// NewIPv4 builds an IP from four octets.
func NewIPv4(a, b, c, d byte) IP {
	return IP{Version: IPv4, V4: [4]byte{a, b, c, d}}
}

// NewIPv6 builds an IP from sixteen octets.
func NewIPv6(addr [16]byte) IP {
	return IP{Version: IPv6, V6: addr}
}

func (ip IP) String() string {
	if ip.Version == IPv4 {
		return fmt.Sprintf("%d.%d.%d.%d", ip.V4[0], ip.V4[1], ip.V4[2], ip.V4[3])
	}
	return fmt.Sprintf("%x", ip.V6)
}

// FourTuple is an ordered (src, srcPort, dst, dstPort) pair as observed
// on the wire, before any client/server normalization.
type FourTuple struct {
	SrcIP   IP
	SrcPort uint16
	DstIP   IP
	DstPort uint16
}

// reversed swaps src and dst, used when normalizing a S2C tuple (whose
// wire source is the server) to the C2S form a FlowKey is keyed on.
func (t FourTuple) reversed() FourTuple {
	return FourTuple{SrcIP: t.DstIP, SrcPort: t.DstPort, DstIP: t.SrcIP, DstPort: t.SrcPort}
}

// FlowKey is the normalized client-side 4-tuple a Table indexes Flows
// by. Both directions of a connection resolve to the same FlowKey.
type FlowKey struct {
	ClientIP   IP
	ClientPort uint16
	ServerIP   IP
	ServerPort uint16
}

func keyFromTuple(t FourTuple) FlowKey {
	return FlowKey{ClientIP: t.SrcIP, ClientPort: t.SrcPort, ServerIP: t.DstIP, ServerPort: t.DstPort}
}

// normalize derives the FlowKey that both directions of a connection
// share: a C2S tuple is used as-is; a S2C tuple (wire source is the
// server) is reversed first so its client side becomes the key's src.
func normalize(dir Direction, t FourTuple) FlowKey {
	if dir == ServerToClient {
		t = t.reversed()
	}
	return keyFromTuple(t)
}
