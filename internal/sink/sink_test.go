package sink

import (
	"bytes"
	"strings"
	"testing"

	"imapflow/internal/flow"
	"imapflow/internal/imap"
)

func TestLineWriterObserveWritesDump(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)

	msg := &imap.Message{Tag: "a1", Command: "OK", Args: []string{"done"}}
	lw.Observe("flow123", flow.ClientToServer, msg)

	out := buf.String()
	if !strings.Contains(out, "flow123") || !strings.Contains(out, "C2S") || !strings.Contains(out, "a1 OK done") {
		t.Fatalf("unexpected output: %q", out)
	}
	if lw.Err() != nil {
		t.Fatalf("unexpected error: %v", lw.Err())
	}
}

func TestLineWriterSatisfiesFlowObserver(t *testing.T) {
	var _ flow.Observer = NewLineWriter(&bytes.Buffer{})
}
