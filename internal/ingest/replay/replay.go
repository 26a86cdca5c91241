// Package replay implements an ingest.Source that replays a
// newline-delimited JSON fixture of packets, for demonstration and
// integration testing of cmd/analyzer without a live TCP reassembler.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"

	"github.com/rotisserie/eris"

	"imapflow/internal/flow"
	"imapflow/internal/ingest"
)

// record is the on-disk JSON shape of one fixture line.
type record struct {
	Direction   string `json:"direction"` // "C2S" or "S2C"
	SrcIP       string `json:"src_ip"`
	SrcPort     uint16 `json:"src_port"`
	DstIP       string `json:"dst_ip"`
	DstPort     uint16 `json:"dst_port"`
	Payload     string `json:"payload"` // raw text, IMAP traffic is printable
	TimestampMS int64  `json:"timestamp_ms"`
}

// Source reads Packets from a newline-delimited JSON stream.
type Source struct {
	scanner *bufio.Scanner
}

// New wraps r as a replay Source.
func New(r io.Reader) *Source {
	return &Source{scanner: bufio.NewScanner(r)}
}

// Next decodes and returns the next fixture line as a Packet. It
// returns io.EOF once the underlying stream is exhausted.
func (s *Source) Next(ctx context.Context) (ingest.Packet, error) {
	select {
	case <-ctx.Done():
		return ingest.Packet{}, ctx.Err()
	default:
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return ingest.Packet{}, eris.Wrap(err, "replay: reading fixture")
		}
		return ingest.Packet{}, io.EOF
	}

	var rec record
	if err := json.Unmarshal(s.scanner.Bytes(), &rec); err != nil {
		return ingest.Packet{}, eris.Wrap(err, "replay: decoding fixture line")
	}

	dir := flow.ClientToServer
	if rec.Direction == "S2C" {
		dir = flow.ServerToClient
	}

	srcIP, err := parseIP(rec.SrcIP)
	if err != nil {
		return ingest.Packet{}, eris.Wrapf(err, "replay: src_ip %q", rec.SrcIP)
	}
	dstIP, err := parseIP(rec.DstIP)
	if err != nil {
		return ingest.Packet{}, eris.Wrapf(err, "replay: dst_ip %q", rec.DstIP)
	}

	return ingest.Packet{
		Direction: dir,
		Tuple: flow.FourTuple{
			SrcIP: srcIP, SrcPort: rec.SrcPort,
			DstIP: dstIP, DstPort: rec.DstPort,
		},
		Payload:     []byte(rec.Payload),
		TimestampMS: rec.TimestampMS,
	}, nil
}

func parseIP(s string) (flow.IP, error) {
	addr := net.ParseIP(s)
	if addr == nil {
		return flow.IP{}, eris.New("invalid IP address")
	}
	if v4 := addr.To4(); v4 != nil {
		return flow.NewIPv4(v4[0], v4[1], v4[2], v4[3]), nil
	}
	v6 := addr.To16()
	if v6 == nil {
		return flow.IP{}, eris.New("address is neither v4 nor v6")
	}
	var arr [16]byte
	copy(arr[:], v6)
	return flow.NewIPv6(arr), nil
}
