package imap

import "fmt"

// Logf receives a diagnostic message for a condition that the parsers
// absorb rather than surface as an error (malformed units, unknown
// header names are not logged since they are not an error per spec).
type Logf func(format string, args ...any)

func logMalformed(logf Logf, reason string, line []byte) {
	if logf == nil {
		return
	}
	logf("imap: malformed unit (%s): %s", reason, hexDump(line))
}

// hexDump renders b as a hex-escaped string suitable for logging raw,
// possibly non-printable wire bytes.
func hexDump(b []byte) string {
	out := make([]byte, 0, len(b)*4)
	for _, c := range b {
		if c >= 0x20 && c < 0x7f && c != '\\' {
			out = append(out, c)
		} else {
			out = append(out, []byte(fmt.Sprintf("\\x%02x", c))...)
		}
	}
	return string(out)
}
