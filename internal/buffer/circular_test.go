package buffer

import (
	"bytes"
	"testing"
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero capacity")
	}
	if _, err := New(-1); err == nil {
		t.Fatal("expected error for negative capacity")
	}
}

func TestAppendAndAt(t *testing.T) {
	b, err := New(16)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("hello"))
	if b.Len() != 5 {
		t.Fatalf("expected len 5, got %d", b.Len())
	}
	for i, want := range []byte("hello") {
		got, err := b.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("At(%d) = %q, want %q", i, got, want)
		}
	}
	if _, err := b.At(5); err != ErrUnderflow {
		t.Errorf("expected ErrUnderflow, got %v", err)
	}
}

func TestOverflowRetention(t *testing.T) {
	// Overflow retention property from spec §8: after appends totaling
	// N > C bytes, Len() == C and At(i) equals the (N-C+i)-th appended byte.
	b, err := New(16)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("0123456789abcdefghij")) // 20 bytes, cap 16
	if b.Len() != 16 {
		t.Fatalf("expected len 16, got %d", b.Len())
	}
	got, err := b.Substring(0, 15)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "456789abcdefghij" {
		t.Fatalf("got %q", got)
	}
}

func TestEraseRenumbering(t *testing.T) {
	b, err := New(32)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("abcdefghij"))
	if err := b.EraseUpTo(3); err != nil { // erase "abcd"
		t.Fatal(err)
	}
	if b.Len() != 6 {
		t.Fatalf("expected len 6 after erase, got %d", b.Len())
	}
	got, err := b.Substring(0, b.Len()-1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "efghij" {
		t.Fatalf("got %q", got)
	}
}

func TestEraseThenAppendWraps(t *testing.T) {
	b, err := New(8)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("abcdefgh"))
	if err := b.EraseUpTo(5); err != nil { // drop "abcdef"
		t.Fatal(err)
	}
	b.Append([]byte("IJKL")) // wraps around physical storage
	got, err := b.Substring(0, b.Len()-1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ghIJKL" {
		t.Fatalf("got %q", got)
	}
}

func TestFind(t *testing.T) {
	b, err := New(32)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("foo\r\nbar\r\nbaz"))
	idx, ok := b.Find(0, b.Len(), '\r')
	if !ok || idx != 3 {
		t.Fatalf("expected idx 3, got %d ok=%v", idx, ok)
	}
	idx, ok = b.Find(4, b.Len(), '\r')
	if !ok || idx != 8 {
		t.Fatalf("expected idx 8, got %d ok=%v", idx, ok)
	}
	if _, ok := b.Find(0, b.Len(), 'Z'); ok {
		t.Fatal("expected not found")
	}
}

func TestFindNth(t *testing.T) {
	b, err := New(64)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("ababababab"))
	idx, ok := b.FindNth([]byte("ab"), 3)
	if !ok || idx != 4 {
		t.Fatalf("expected idx 4, got %d ok=%v", idx, ok)
	}
	if _, ok := b.FindNth([]byte("ab"), 6); ok {
		t.Fatal("expected not enough occurrences")
	}
	if _, ok := b.FindNth([]byte(""), 1); ok {
		t.Fatal("expected empty target to fail")
	}
}

func TestSubstringInvalidRange(t *testing.T) {
	b, err := New(16)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("abc"))
	if _, err := b.Substring(2, 1); err != ErrInvalidRange {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := b.Substring(0, 3); err != ErrInvalidRange {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestLogicalIndexStability(t *testing.T) {
	b, err := New(16)
	if err != nil {
		t.Fatal(err)
	}
	b.Append([]byte("abc"))
	first, _ := b.At(0)
	b.Append([]byte("def"))
	second, _ := b.At(0)
	if first != second {
		t.Fatal("logical index 0 should be stable across an append")
	}
	if !bytes.Equal([]byte{first}, []byte("a")) {
		t.Fatalf("expected 'a', got %q", first)
	}
}
