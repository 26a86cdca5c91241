package replay

import (
	"context"
	"io"
	"strings"
	"testing"

	"imapflow/internal/flow"
)

func TestSourceNextDecodesPacket(t *testing.T) {
	fixture := `{"direction":"C2S","src_ip":"10.0.0.1","src_port":51000,"dst_ip":"10.0.0.2","dst_port":143,"payload":"a1 NOOP\r\n","timestamp_ms":1000}
{"direction":"S2C","src_ip":"10.0.0.2","src_port":143,"dst_ip":"10.0.0.1","dst_port":51000,"payload":"a1 OK done\r\n","timestamp_ms":1001}
`
	src := New(strings.NewReader(fixture))
	ctx := context.Background()

	p1, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p1.Direction != flow.ClientToServer {
		t.Errorf("Direction = %v", p1.Direction)
	}
	if string(p1.Payload) != "a1 NOOP\r\n" {
		t.Errorf("Payload = %q", p1.Payload)
	}
	if p1.Tuple.SrcPort != 51000 || p1.Tuple.DstPort != 143 {
		t.Errorf("Tuple = %+v", p1.Tuple)
	}

	p2, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p2.Direction != flow.ServerToClient {
		t.Errorf("Direction = %v", p2.Direction)
	}

	_, err = src.Next(ctx)
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSourceNextRespectsCancellation(t *testing.T) {
	src := New(strings.NewReader(`{"direction":"C2S"}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Next(ctx)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSourceNextInvalidIP(t *testing.T) {
	src := New(strings.NewReader(`{"direction":"C2S","src_ip":"not-an-ip","dst_ip":"10.0.0.2"}`))
	_, err := src.Next(context.Background())
	if err == nil {
		t.Fatal("expected error for invalid src_ip")
	}
}
