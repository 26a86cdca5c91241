package imap

import (
	"strings"

	"imapflow/internal/buffer"
)

const crlf = "\r\n"

// isPrintable reports whether c is a printable, non-space ASCII character.
func isPrintable(c byte) bool {
	return c >= 33 && c <= 126
}

// ParseC2S drives the client->server command grammar over buf, consuming
// as many complete command lines as are available and appending one
// Message per line to the returned slice. It is restartable: if the
// buffer ends mid-line, it returns without mutating buf so the next
// call (after more bytes are appended) continues seamlessly.
//
// It reports loggedOut = true iff any parsed Message in this call has
// Command case-insensitively equal to "LOGOUT" — the caller tears the
// flow down immediately in that case.
//
// Literal arguments ("{n}" + CRLF + n octets, as sent with APPEND) get no
// separate state: the octets after the CRLF are scanned as ordinary
// command lines, and those that do not lex as a command are logged and
// dropped as malformed.
func ParseC2S(buf *buffer.CircularBuffer, logf Logf) (messages []Message, loggedOut bool) {
	for {
		msg, ok := parseOneC2SLine(buf, logf)
		if !ok {
			return messages, loggedOut
		}
		if msg == nil {
			// malformed line was discarded; keep scanning
			continue
		}
		messages = append(messages, *msg)
		if strings.EqualFold(msg.Command, "LOGOUT") {
			loggedOut = true
		}
	}
}

// parseOneC2SLine attempts one command line. ok is false when the buffer
// does not yet contain a complete CRLF-terminated unit (need more bytes).
// When ok is true and msg is nil, a malformed line was found, logged, and
// erased; the caller should keep looping.
func parseOneC2SLine(buf *buffer.CircularBuffer, logf Logf) (msg *Message, ok bool) {
	return parseSingleLineUnit(buf, logf, lexC2SLine)
}

func lexC2SLine(line []byte) (*Message, string) {
	if len(line) == 0 {
		return nil, "empty C2S line"
	}
	if line[0] == '+' || line[0] == '*' {
		return nil, "C2S line begins with a S2C sigil"
	}

	pos := 0
	tag, ok := lexToken(line, &pos)
	if !ok {
		return nil, "missing tag"
	}
	if !skipSP(line, &pos) {
		return nil, "missing space after tag"
	}
	command, ok := lexToken(line, &pos)
	if !ok {
		return nil, "missing command"
	}

	var args []string
	for {
		if !skipSP(line, &pos) {
			break
		}
		if pos >= len(line) {
			break
		}
		arg, ok := lexArg(line, &pos)
		if !ok {
			return nil, "unbalanced parenthesis in argument"
		}
		args = append(args, arg)
	}
	if pos != len(line) {
		return nil, "trailing unparsed data"
	}

	return &Message{Tag: string(tag), Command: string(command), Args: args}, ""
}

// lexToken reads a run of printable non-space bytes starting at *pos.
func lexToken(line []byte, pos *int) ([]byte, bool) {
	start := *pos
	for *pos < len(line) && isPrintable(line[*pos]) {
		*pos++
	}
	if *pos == start {
		return nil, false
	}
	return line[start:*pos], true
}

// skipSP advances *pos over one or more spaces, returning whether any were found.
func skipSP(line []byte, pos *int) bool {
	start := *pos
	for *pos < len(line) && line[*pos] == ' ' {
		*pos++
	}
	return *pos > start
}

// lexArg reads one argument: either a balanced, one-level-tracked paren
// group, or an atom terminated by a space.
func lexArg(line []byte, pos *int) (string, bool) {
	if line[*pos] == '(' {
		start := *pos
		depth := 1
		*pos++
		for depth > 0 {
			if *pos >= len(line) {
				return "", false
			}
			switch line[*pos] {
			case '(':
				depth++
			case ')':
				depth--
			}
			*pos++
		}
		return string(line[start:*pos]), true
	}

	start := *pos
	for *pos < len(line) && line[*pos] != ' ' {
		*pos++
	}
	return string(line[start:*pos]), true
}
