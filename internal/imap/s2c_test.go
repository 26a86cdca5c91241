package imap

import (
	"strconv"
	"testing"
)

func TestParseS2CTaggedStatus(t *testing.T) {
	buf := mustBuf(t, 256)
	buf.Append([]byte("a1 OK LOGIN completed\r\n"))

	msgs := ParseS2C(buf, nil)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Tag != "a1" || msgs[0].Command != "OK" {
		t.Errorf("got %+v", msgs[0])
	}
	if buf.Len() != 0 {
		t.Errorf("expected buffer drained, Len=%d", buf.Len())
	}
}

func TestParseS2CContinuationProducesNoMessage(t *testing.T) {
	buf := mustBuf(t, 256)
	buf.Append([]byte("+ go ahead\r\na1 OK done\r\n"))

	msgs := ParseS2C(buf, nil)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message (continuation skipped), got %d", len(msgs))
	}
	if msgs[0].Tag != "a1" {
		t.Errorf("got %+v", msgs[0])
	}
}

func TestParseS2CGenericUntagged(t *testing.T) {
	buf := mustBuf(t, 256)
	buf.Append([]byte("* 4 EXISTS\r\n"))

	msgs := ParseS2C(buf, nil)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Tag != "*" || len(msgs[0].Args) != 1 || msgs[0].Args[0] != "4 EXISTS" {
		t.Errorf("got %+v", msgs[0])
	}
}

func TestParseS2CFetchWithHeaderLiteral(t *testing.T) {
	buf := mustBuf(t, 512)
	header := "From: a@b.com\r\nSubject: test\r\n\r\n"
	resp := "* 1 FETCH (UID 100 RFC822.HEADER {" + strconv.Itoa(len(header)) + "}\r\n" + header + ")\r\n"
	buf.Append([]byte(resp))

	msgs := ParseS2C(buf, nil)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Command != "FETCH" || len(m.Fetch) != 1 {
		t.Fatalf("got %+v", m)
	}
	email := m.Fetch[0]
	if email.SequenceNumber != 1 {
		t.Errorf("SequenceNumber = %d", email.SequenceNumber)
	}
	if !email.HasUID || email.UID != 100 {
		t.Errorf("UID = %d, HasUID = %v", email.UID, email.HasUID)
	}
	if email.Body.Header.From != "a@b.com" {
		t.Errorf("From = %q", email.Body.Header.From)
	}
	if buf.Len() != 0 {
		t.Errorf("expected buffer drained, Len=%d", buf.Len())
	}
}

func TestParseS2CFetchRestartAcrossAppend(t *testing.T) {
	buf := mustBuf(t, 512)
	header := "Subject: split\r\n\r\n"
	full := "* 2 FETCH (RFC822.HEADER {" + strconv.Itoa(len(header)) + "}\r\n" + header + ")\r\n"

	cut := len(full) / 2
	buf.Append([]byte(full[:cut]))

	msgs := ParseS2C(buf, nil)
	if len(msgs) != 0 {
		t.Fatalf("expected 0 messages before full response arrives, got %d", len(msgs))
	}

	buf.Append([]byte(full[cut:]))
	msgs = ParseS2C(buf, nil)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after remainder appended, got %d", len(msgs))
	}
	if msgs[0].Fetch[0].Body.Header.Subject[0] != "split" {
		t.Errorf("got %+v", msgs[0].Fetch[0])
	}
}

func TestParseS2CFetchBodystructureAndFlags(t *testing.T) {
	buf := mustBuf(t, 256)
	buf.Append([]byte("* 3 FETCH (FLAGS (\\Seen \\Answered) BODYSTRUCTURE (\"TEXT\" \"PLAIN\"))\r\n"))

	msgs := ParseS2C(buf, nil)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	email := msgs[0].Fetch[0]
	if email.Flags != "(\\Seen \\Answered)" {
		t.Errorf("Flags = %q", email.Flags)
	}
	if email.BodyStructure != "(\"TEXT\" \"PLAIN\")" {
		t.Errorf("BodyStructure = %q", email.BodyStructure)
	}
}

func TestParseS2CMalformedFetchRecovered(t *testing.T) {
	buf := mustBuf(t, 256)
	var logged bool
	logf := func(format string, args ...any) { logged = true }

	buf.Append([]byte("* 1 FETCH (UID garbage)\r\na1 OK next\r\n"))
	msgs := ParseS2C(buf, logf)

	if !logged {
		t.Error("expected malformed FETCH to be logged")
	}
	if len(msgs) != 1 || msgs[0].Tag != "a1" {
		t.Fatalf("expected recovery to the next response, got %+v", msgs)
	}
}

func TestParseS2CNeedsMoreBytes(t *testing.T) {
	buf := mustBuf(t, 256)
	buf.Append([]byte("a1 OK partial"))

	msgs := ParseS2C(buf, nil)
	if len(msgs) != 0 {
		t.Fatalf("expected 0 messages, got %d", len(msgs))
	}
	if buf.Len() != len("a1 OK partial") {
		t.Errorf("expected buffer untouched, Len=%d", buf.Len())
	}
}
