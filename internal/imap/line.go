package imap

import "imapflow/internal/buffer"

// scanLine locates the next CRLF-delimited line in buf without mutating
// it. status is 0 when a complete line was found (line holds the bytes
// before the CRLF, end is the logical index of the '\n'), 1 when a bare
// CR not followed by LF was found (end is the logical index of that CR;
// callers discard up to and including it), or 2 when no complete line
// is available yet (need more bytes).
func scanLine(buf *buffer.CircularBuffer) (line []byte, end int, status int) {
	crIdx, found := buf.Find(0, buf.Len(), '\r')
	if !found {
		return nil, 0, 2
	}
	next, err := buf.At(crIdx + 1)
	if err != nil {
		return nil, 0, 2
	}
	if next != '\n' {
		return nil, crIdx, 1
	}
	if crIdx > 0 {
		line, _ = buf.Substring(0, crIdx-1)
	}
	return line, crIdx + 1, 0
}

// parseSingleLineUnit implements the shared restart/malformed discipline
// for every unit that fits on one line (C2S command lines and the
// one-line S2C response shapes): wait for a
// complete line, discard-and-log a bare CR, or hand the line to handle.
func parseSingleLineUnit(buf *buffer.CircularBuffer, logf Logf, handle func(line []byte) (*Message, string)) (*Message, bool) {
	line, end, status := scanLine(buf)
	switch status {
	case 2:
		return nil, false
	case 1:
		bad, _ := buf.Substring(0, end)
		_ = buf.EraseUpTo(end)
		logMalformed(logf, "line missing LF after CR", bad)
		return nil, true
	}
	_ = buf.EraseUpTo(end)
	msg, reason := handle(line)
	if reason != "" {
		logMalformed(logf, reason, line)
		return nil, true
	}
	return msg, true
}
