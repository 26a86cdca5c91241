package imap

import "strings"

// setKnownHeader stores value in the fixed Header field for name (RFC 2822
// canonical casing, matched case-sensitively), or reports false for
// anything that belongs in Header.Optional.
func setKnownHeader(h *Header, name, value string) bool {
	switch name {
	case "Date":
		h.Date = value
	case "From":
		h.From = value
	case "Sender":
		h.Sender = append(h.Sender, value)
	case "Reply-To":
		h.ReplyTo = append(h.ReplyTo, value)
	case "To":
		h.To = append(h.To, value)
	case "Cc":
		h.Cc = append(h.Cc, value)
	case "Bcc":
		h.Bcc = append(h.Bcc, value)
	case "Message-ID":
		h.MessageID = append(h.MessageID, value)
	case "In-Reply-To":
		h.InReplyTo = append(h.InReplyTo, value)
	case "References":
		h.References = append(h.References, value)
	case "Subject":
		h.Subject = append(h.Subject, value)
	case "Comments":
		h.Comments = append(h.Comments, value)
	case "Keywords":
		h.Keywords = append(h.Keywords, value)
	case "Resent-Date":
		h.ResentDate = append(h.ResentDate, value)
	case "Resent-From":
		h.ResentFrom = append(h.ResentFrom, value)
	case "Resent-Sender":
		h.ResentSender = append(h.ResentSender, value)
	case "Resent-To":
		h.ResentTo = append(h.ResentTo, value)
	case "Resent-Cc":
		h.ResentCc = append(h.ResentCc, value)
	case "Resent-Bcc":
		h.ResentBcc = append(h.ResentBcc, value)
	case "Resent-Message-ID":
		h.ResentMessageID = append(h.ResentMessageID, value)
	case "Return-Path":
		h.ReturnPath = append(h.ReturnPath, value)
	case "Received":
		h.Received = append(h.Received, value)
	default:
		return false
	}
	return true
}

// ResolveBody parses an octet blob holding an RFC 2822 header block
// and/or body text, per which of hasHeader/hasText the caller requests
// (determined by the S2C FETCH item that produced the literal). Malformed
// header blocks stop parsing early and are logged; whatever was parsed
// before the malformed field is kept.
func ResolveBody(data []byte, hasHeader, hasText bool, logf Logf) Body {
	var body Body
	text := string(data)

	if !hasHeader {
		if hasText {
			body.Text = text
		}
		return body
	}

	lines := strings.Split(text, crlf)
	i := 0
	for i < len(lines) {
		line := lines[i]
		if line == "" {
			// blank line terminates the header section
			i++
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			logMalformed(logf, "header line missing colon", []byte(line))
			break
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		i++
		for i < len(lines) && len(lines[i]) > 0 && (lines[i][0] == ' ' || lines[i][0] == '\t') {
			value += " " + strings.TrimSpace(lines[i])
			i++
		}
		if !setKnownHeader(&body.Header, name, value) {
			body.Header.addOptional(name, value)
		}
	}

	if hasText {
		body.Text = strings.Join(lines[i:], crlf)
	}
	return body
}
