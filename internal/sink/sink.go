// Package sink defines the boundary between the flow-processing core
// and an out-of-scope downstream keyword-matching engine: the
// observer interface it implements, plus a LineWriter used by
// cmd/analyzer and by tests in place of a real matcher.
package sink

import (
	"io"

	"imapflow/internal/flow"
	"imapflow/internal/imap"
)

// Sink receives each Message as it is parsed by a flow.Table. flowID is
// the originating Flow's diagnostic id (Flow.ID.String()), not part of
// its FlowKey.
type Sink interface {
	Observe(flowID string, dir flow.Direction, msg *imap.Message)
}

// LineWriter is a Sink that renders each Message as a line-oriented
// dump (via imap.Message.Dump) to the wrapped io.Writer. Write errors
// are swallowed rather than surfaced through Observe's signature;
// callers that need to detect them should inspect Err after use.
type LineWriter struct {
	w   io.Writer
	err error
}

// NewLineWriter wraps w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

func (l *LineWriter) Observe(flowID string, dir flow.Direction, msg *imap.Message) {
	if l.err != nil {
		return
	}
	if _, err := io.WriteString(l.w, flowID+" "+dir.String()+" "); err != nil {
		l.err = err
		return
	}
	l.err = msg.Dump(l.w)
}

// Err returns the first write error Observe encountered, if any.
func (l *LineWriter) Err() error {
	return l.err
}
