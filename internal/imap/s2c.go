package imap

import (
	"bytes"
	"strconv"
	"strings"

	"imapflow/internal/buffer"
)

// ParseS2C drives the server->client response grammar over buf. Like
// ParseC2S it is restartable and consumes as many complete responses as
// are available, appending one Message per response (continuation
// requests produce none — they are currently skipped per spec).
func ParseS2C(buf *buffer.CircularBuffer, logf Logf) (messages []Message) {
	for {
		msg, ok := parseOneS2C(buf, logf)
		if !ok {
			return messages
		}
		if msg != nil {
			messages = append(messages, *msg)
		}
	}
}

func parseOneS2C(buf *buffer.CircularBuffer, logf Logf) (*Message, bool) {
	if buf.Len() == 0 {
		return nil, false
	}
	first, _ := buf.At(0)
	switch first {
	case '+':
		return parseSingleLineUnit(buf, logf, continuationHandler)
	case '*':
		return parseUntagged(buf, logf)
	default:
		return parseSingleLineUnit(buf, logf, lexTaggedStatus)
	}
}

func continuationHandler([]byte) (*Message, string) {
	return nil, ""
}

func genericUntaggedHandler(line []byte) (*Message, string) {
	if len(line) == 0 {
		return nil, "empty untagged line"
	}
	rest := bytes.TrimLeft(line[1:], " \t")
	return &Message{Tag: "*", Args: []string{string(rest)}}, ""
}

func lexTaggedStatus(line []byte) (*Message, string) {
	pos := 0
	tag, ok := lexToken(line, &pos)
	if !ok {
		return nil, "missing tag"
	}
	if !skipSP(line, &pos) {
		return nil, "missing space after tag"
	}
	status, ok := lexToken(line, &pos)
	if !ok {
		return nil, "missing status code"
	}
	upper := strings.ToUpper(string(status))
	if upper != "OK" && upper != "NO" && upper != "BAD" {
		return nil, "unrecognized status code"
	}
	skipSP(line, &pos)
	rest := string(line[pos:])
	return &Message{Tag: string(tag), Command: upper, Args: []string{rest}}, ""
}

// parseUntagged handles a "*"-prefixed response: either an untagged
// FETCH (fully parsed) or any other untagged line (captured as raw text).
func parseUntagged(buf *buffer.CircularBuffer, logf Logf) (*Message, bool) {
	afterParen, seq, status := tryParseFetchHeader(buf)
	switch status {
	case needMore:
		return nil, false
	case mismatch:
		return parseSingleLineUnit(buf, logf, genericUntaggedHandler)
	}
	return parseFetchItems(buf, afterParen, seq, logf)
}

// status codes shared by the low-level FETCH scanners below.
const (
	matched  = 0
	mismatch = 1
	needMore = 2
)

// tryParseFetchHeader attempts to match "* <digits> SP FETCH SP (" at the
// start of buf. On a match it returns the position right after the
// opening '(' and the parsed sequence number. On mismatch (conclusively
// not a FETCH response) or needMore it returns status accordingly; a
// mismatch never mutates the buffer, leaving it for the generic untagged
// handler to re-scan from the start.
func tryParseFetchHeader(buf *buffer.CircularBuffer) (afterParen int, seq uint64, status int) {
	pos := 1 // past the leading '*'

	if !skipRequiredWS(buf, &pos) {
		if pos < 0 {
			return 0, 0, needMore
		}
		return 0, 0, mismatch
	}

	digStart := pos
	for {
		c, err := buf.At(pos)
		if err != nil {
			return 0, 0, needMore
		}
		if c < '0' || c > '9' {
			break
		}
		pos++
	}
	if pos == digStart {
		return 0, 0, mismatch
	}
	numBytes, _ := buf.Substring(digStart, pos-1)
	n, err := strconv.ParseUint(string(numBytes), 10, 64)
	if err != nil {
		return 0, 0, mismatch
	}

	if !skipRequiredWS(buf, &pos) {
		if pos < 0 {
			return 0, 0, needMore
		}
		return 0, 0, mismatch
	}

	tokStart := pos
	for {
		c, err := buf.At(pos)
		if err != nil {
			return 0, 0, needMore
		}
		if !isPrintable(c) {
			break
		}
		pos++
	}
	if pos == tokStart {
		return 0, 0, mismatch
	}
	tokBytes, _ := buf.Substring(tokStart, pos-1)
	if !strings.EqualFold(string(tokBytes), "FETCH") {
		return 0, 0, mismatch
	}

	if !skipRequiredWS(buf, &pos) {
		if pos < 0 {
			return 0, 0, needMore
		}
		return 0, 0, mismatch
	}

	c, err := buf.At(pos)
	if err != nil {
		return 0, 0, needMore
	}
	if c != '(' {
		return 0, 0, mismatch
	}
	pos++

	return pos, n, matched
}

// skipRequiredWS advances *pos over one or more spaces/tabs. It returns
// true iff at least one was found; on false, *pos is set to -1 if the
// underlying reason was underflow (need more bytes) rather than a
// conclusive absence of whitespace.
func skipRequiredWS(buf *buffer.CircularBuffer, pos *int) bool {
	start := *pos
	for {
		c, err := buf.At(*pos)
		if err != nil {
			*pos = -1
			return false
		}
		if c != ' ' && c != '\t' {
			break
		}
		*pos++
	}
	return *pos > start
}

// parseFetchItems reads the "<ITEM> SP <value>" pairs of an untagged
// FETCH response starting right after its opening '(', through the
// closing ')' and terminating CRLF.
func parseFetchItems(buf *buffer.CircularBuffer, pos int, seq uint64, logf Logf) (*Message, bool) {
	email := Email{SequenceNumber: seq}

	for {
		for {
			c, err := buf.At(pos)
			if err != nil {
				return nil, false
			}
			if c != ' ' && c != '\t' {
				break
			}
			pos++
		}

		c, err := buf.At(pos)
		if err != nil {
			return nil, false
		}
		if c == ')' {
			pos++
			break
		}

		name, newPos, st := readItemName(buf, pos)
		if st == needMore {
			return nil, false
		}
		if st == mismatch {
			return malformedFetch(buf, logf, "invalid FETCH item name")
		}
		pos = newPos

		spaceStart := pos
		for {
			c, err := buf.At(pos)
			if err != nil {
				return nil, false
			}
			if c != ' ' && c != '\t' {
				break
			}
			pos++
		}
		if pos == spaceStart {
			return malformedFetch(buf, logf, "missing space after FETCH item name")
		}

		newPos, st = readFetchValue(buf, pos, name, &email, logf)
		if st == needMore {
			return nil, false
		}
		if st == mismatch {
			return malformedFetch(buf, logf, "malformed FETCH item value: "+name)
		}
		pos = newPos
	}

	c, err := buf.At(pos)
	if err != nil {
		return nil, false
	}
	if c != '\r' {
		return malformedFetch(buf, logf, "missing CRLF terminating FETCH response")
	}
	pos++
	c, err = buf.At(pos)
	if err != nil {
		return nil, false
	}
	if c != '\n' {
		return malformedFetch(buf, logf, "missing LF after CR terminating FETCH response")
	}
	pos++

	_ = buf.EraseUpTo(pos - 1)
	return &Message{Tag: "*", Command: "FETCH", Fetch: []Email{email}}, true
}

// malformedFetch recovers from a malformed FETCH response by discarding
// through the next available CRLF anywhere in the buffer (the malformed
// structure may have left the cursor with no well-defined end-of-unit).
// If no CRLF is present yet, it reports need-more instead of guessing.
func malformedFetch(buf *buffer.CircularBuffer, logf Logf, reason string) (*Message, bool) {
	idx, found := buf.FindNth([]byte(crlf), 1)
	if !found {
		return nil, false
	}
	bad, _ := buf.Substring(0, idx+1)
	_ = buf.EraseUpTo(idx + 1)
	logMalformed(logf, reason, bad)
	return nil, true
}

// readItemName reads a FETCH item name: a printable run, where any "(" or
// "[" extends the name through its balanced match before resuming.
func readItemName(buf *buffer.CircularBuffer, pos int) (string, int, int) {
	var out []byte
	for {
		c, err := buf.At(pos)
		if err != nil {
			return "", 0, needMore
		}
		switch {
		case c == '(':
			grp, np, st := readBracketed(buf, pos, '(', ')')
			if st != matched {
				return "", 0, st
			}
			out = append(out, grp...)
			pos = np
		case c == '[':
			grp, np, st := readBracketed(buf, pos, '[', ']')
			if st != matched {
				return "", 0, st
			}
			out = append(out, grp...)
			pos = np
		case isPrintable(c):
			out = append(out, c)
			pos++
		default:
			if len(out) == 0 {
				return "", 0, mismatch
			}
			return strings.ToUpper(string(out)), pos, matched
		}
	}
}

// readBracketed reads a balanced open/close delimited run starting at
// buf[pos] (which must equal open), tracking nesting depth, and returns
// the captured bytes including both delimiters.
func readBracketed(buf *buffer.CircularBuffer, pos int, open, closeC byte) ([]byte, int, int) {
	c, err := buf.At(pos)
	if err != nil {
		return nil, 0, needMore
	}
	if c != open {
		return nil, 0, mismatch
	}
	out := []byte{c}
	pos++
	depth := 1
	for depth > 0 {
		c2, err2 := buf.At(pos)
		if err2 != nil {
			return nil, 0, needMore
		}
		if c2 < 32 || c2 > 126 {
			return nil, 0, mismatch
		}
		switch c2 {
		case open:
			depth++
		case closeC:
			depth--
		}
		out = append(out, c2)
		pos++
	}
	return out, pos, matched
}

// readFetchValue reads and stores the value for a known FETCH item name,
// mutating email in place. pos is the position of the value's first
// byte (after the separating whitespace).
func readFetchValue(buf *buffer.CircularBuffer, pos int, name string, email *Email, logf Logf) (int, int) {
	switch {
	case name == "BODYSTRUCTURE":
		val, np, st := readBracketed(buf, pos, '(', ')')
		if st == matched {
			email.BodyStructure = string(val)
		}
		return np, st
	case name == "ENVELOPE":
		val, np, st := readBracketed(buf, pos, '(', ')')
		if st == matched {
			email.Envelope = string(val)
		}
		return np, st
	case name == "FLAGS":
		val, np, st := readBracketed(buf, pos, '(', ')')
		if st == matched {
			email.Flags = string(val)
		}
		return np, st
	case name == "INTERNALDATE":
		val, np, st := readQuoted(buf, pos)
		if st == matched {
			email.InternalDate = val
		}
		return np, st
	case name == "RFC822.SIZE":
		val, np, st := readDecimal(buf, pos)
		if st == matched {
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return np, mismatch
			}
			email.RFC822Size = n
			email.HasRFC822Size = true
		}
		return np, st
	case name == "UID":
		val, np, st := readDecimal(buf, pos)
		if st == matched {
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return np, mismatch
			}
			email.UID = uint32(n)
			email.HasUID = true
		}
		return np, st
	case name == "RFC822" || name == "RFC822.HEADER" || name == "RFC822.TEXT" || strings.HasPrefix(name, "BODY["):
		hasHeader, hasText := classifyLiteralItem(name)
		data, np, st := readLiteral(buf, pos)
		if st == matched {
			email.Body = ResolveBody(data, hasHeader, hasText, logf)
		}
		return np, st
	default:
		return pos, mismatch
	}
}

// classifyLiteralItem decides whether item contributes header bytes,
// text bytes, or both, to the accumulating Body.
func classifyLiteralItem(name string) (hasHeader, hasText bool) {
	switch name {
	case "RFC822":
		return true, true
	case "RFC822.HEADER":
		return true, false
	case "RFC822.TEXT":
		return false, true
	}
	// name is one of the BODY[...] family.
	open := strings.IndexByte(name, '[')
	closeIdx := strings.LastIndexByte(name, ']')
	if open < 0 || closeIdx <= open {
		return true, true
	}
	section := name[open+1 : closeIdx]
	if section == "" {
		return true, true
	}
	outside := stripParenGroups(section)
	hasHeaderTok := strings.Contains(outside, "HEADER")
	hasTextTok := strings.Contains(outside, "TEXT")
	switch {
	case hasHeaderTok && !hasTextTok:
		return true, false
	case hasTextTok && !hasHeaderTok:
		return false, true
	default:
		return true, true
	}
}

// stripParenGroups removes any "(...)" spans from s, used to search for
// HEADER/TEXT tokens outside of a BODY[...] section's field-name list.
func stripParenGroups(s string) string {
	var out strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				out.WriteByte(s[i])
			}
		}
	}
	return out.String()
}

// readQuoted reads a '"'-delimited string and returns its content
// without the surrounding quotes.
func readQuoted(buf *buffer.CircularBuffer, pos int) (string, int, int) {
	c, err := buf.At(pos)
	if err != nil {
		return "", 0, needMore
	}
	if c != '"' {
		return "", 0, mismatch
	}
	pos++
	start := pos
	for {
		c2, err2 := buf.At(pos)
		if err2 != nil {
			return "", 0, needMore
		}
		if c2 == '"' {
			break
		}
		pos++
	}
	var val string
	if pos > start {
		b, _ := buf.Substring(start, pos-1)
		val = string(b)
	}
	pos++
	return val, pos, matched
}

// readDecimal reads a run of ASCII decimal digits.
func readDecimal(buf *buffer.CircularBuffer, pos int) (string, int, int) {
	start := pos
	for {
		c, err := buf.At(pos)
		if err != nil {
			return "", 0, needMore
		}
		if c < '0' || c > '9' {
			break
		}
		pos++
	}
	if pos == start {
		return "", 0, mismatch
	}
	b, _ := buf.Substring(start, pos-1)
	return string(b), pos, matched
}

// readLiteral reads an IMAP literal "{n}\r\n" followed by exactly n
// octets, returning need-more if those n octets are not yet fully
// buffered rather than consuming a truncated payload.
func readLiteral(buf *buffer.CircularBuffer, pos int) ([]byte, int, int) {
	c, err := buf.At(pos)
	if err != nil {
		return nil, 0, needMore
	}
	if c != '{' {
		return nil, 0, mismatch
	}
	pos++

	digStart := pos
	for {
		c2, err2 := buf.At(pos)
		if err2 != nil {
			return nil, 0, needMore
		}
		if c2 < '0' || c2 > '9' {
			break
		}
		pos++
	}
	if pos == digStart {
		return nil, 0, mismatch
	}
	numBytes, _ := buf.Substring(digStart, pos-1)
	n, err := strconv.ParseUint(string(numBytes), 10, 64)
	if err != nil {
		return nil, 0, mismatch
	}

	c2, err2 := buf.At(pos)
	if err2 != nil {
		return nil, 0, needMore
	}
	if c2 != '}' {
		return nil, 0, mismatch
	}
	pos++

	c3, err3 := buf.At(pos)
	if err3 != nil {
		return nil, 0, needMore
	}
	if c3 != '\r' {
		return nil, 0, mismatch
	}
	pos++

	c4, err4 := buf.At(pos)
	if err4 != nil {
		return nil, 0, needMore
	}
	if c4 != '\n' {
		return nil, 0, mismatch
	}
	pos++

	if n == 0 {
		return []byte{}, pos, matched
	}
	if pos+int(n) > buf.Len() {
		return nil, 0, needMore
	}
	data, _ := buf.Substring(pos, pos+int(n)-1)
	pos += int(n)
	return data, pos, matched
}
