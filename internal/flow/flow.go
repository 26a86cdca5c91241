package flow

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/rs/xid"

	"imapflow/internal/buffer"
	"imapflow/internal/imap"
)

// Flow pairs the two per-direction CircularBuffers of one connection
// with the Message lists their parsers have produced so far, and tracks
// when it was last touched. A Flow is owned exclusively by the Table
// entry that created it; it never reclaims or times out itself.
type Flow struct {
	Key  FlowKey
	ID   xid.ID // diagnostic id only, not part of the key or lookup
	Logf imap.Logf

	c2s *buffer.CircularBuffer
	s2c *buffer.CircularBuffer

	c2sMessages []imap.Message
	s2cMessages []imap.Message

	lastActivityMS int64
	loggedOut      bool
}

// NewFlow allocates a Flow with a C2S/S2C buffer pair of the given
// per-direction capacity.
func NewFlow(key FlowKey, bufferCapacity int, logf imap.Logf) (*Flow, error) {
	c2s, err := buffer.New(bufferCapacity)
	if err != nil {
		return nil, eris.Wrap(err, "flow: allocating C2S buffer")
	}
	s2c, err := buffer.New(bufferCapacity)
	if err != nil {
		return nil, eris.Wrap(err, "flow: allocating S2C buffer")
	}
	return &Flow{
		Key:  key,
		ID:   xid.New(),
		Logf: logf,
		c2s:  c2s,
		s2c:  s2c,
	}, nil
}

// LastActivityMS returns the timestamp, in epoch milliseconds, this flow
// was last touched by Ingest.
func (f *Flow) LastActivityMS() int64 {
	return f.lastActivityMS
}

// LoggedOut reports whether a client LOGOUT command has been parsed on
// this flow's C2S side.
func (f *Flow) LoggedOut() bool {
	return f.loggedOut
}

// IsTimeout reports whether this flow has sat idle, as of nowMS, for
// longer than thresholdMS.
func (f *Flow) IsTimeout(nowMS, thresholdMS int64) bool {
	return nowMS-f.lastActivityMS > thresholdMS
}

// Messages returns the accumulated Messages for the given direction, in
// ingress order.
func (f *Flow) Messages(dir Direction) []imap.Message {
	if dir == ClientToServer {
		return f.c2sMessages
	}
	return f.s2cMessages
}

// Observer receives each Message as it is parsed, letting a caller (for
// example a keyword-matching sink) react without waiting for Emit.
type Observer interface {
	Observe(flowID string, dir Direction, msg *imap.Message)
}

// Ingest appends payload to the named direction's buffer, drives the
// matching parser over whatever complete units are now available, and
// advances last-activity to nowMS; a nowMS older than the current value
// leaves last-activity unchanged, so it never moves backwards. Newly
// parsed Messages are reported to obs, if non-nil, in ingress order.
func (f *Flow) Ingest(dir Direction, payload []byte, nowMS int64, obs Observer) {
	if nowMS > f.lastActivityMS {
		f.lastActivityMS = nowMS
	}

	switch dir {
	case ClientToServer:
		f.c2s.Append(payload)
		msgs, loggedOut := imap.ParseC2S(f.c2s, f.Logf)
		f.c2sMessages = append(f.c2sMessages, msgs...)
		if loggedOut {
			f.loggedOut = true
		}
		f.notify(obs, dir, msgs)
	case ServerToClient:
		f.s2c.Append(payload)
		msgs := imap.ParseS2C(f.s2c, f.Logf)
		f.s2cMessages = append(f.s2cMessages, msgs...)
		f.notify(obs, dir, msgs)
	}
}

func (f *Flow) notify(obs Observer, dir Direction, msgs []imap.Message) {
	if obs == nil {
		return
	}
	for i := range msgs {
		obs.Observe(f.ID.String(), dir, &msgs[i])
	}
}

// Emit writes a line-oriented dump of every accumulated Message, C2S
// messages first then S2C, each in ingress order, to w.
func (f *Flow) Emit(w io.Writer) error {
	for i := range f.c2sMessages {
		if err := f.c2sMessages[i].Dump(w); err != nil {
			return err
		}
	}
	for i := range f.s2cMessages {
		if err := f.s2cMessages[i].Dump(w); err != nil {
			return err
		}
	}
	return nil
}
