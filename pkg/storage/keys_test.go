package storage

import (
	"bytes"
	"testing"
)

func TestClampLimit(t *testing.T) {
	if got := ClampLimit(nil); got != DefaultPageLimit {
		t.Errorf("nil limit = %d, want %d", got, DefaultPageLimit)
	}

	small := uint32(5)
	if got := ClampLimit(&small); got != 5 {
		t.Errorf("limit 5 = %d, want 5", got)
	}

	big := uint32(100)
	if got := ClampLimit(&big); got != MaxPageLimit {
		t.Errorf("limit 100 = %d, want %d", got, MaxPageLimit)
	}

	zero := uint32(0)
	if got := ClampLimit(&zero); got != 0 {
		t.Errorf("limit 0 = %d, want 0", got)
	}
}

func TestRangeStart(t *testing.T) {
	prefix := []byte("bor:")

	if got := RangeStart(prefix, nil); !bytes.Equal(got, prefix) {
		t.Errorf("nil cursor = %q, want %q", got, prefix)
	}

	cursor := []byte{0xAA, 0xBB}
	got := RangeStart(prefix, cursor)
	want := []byte{'b', 'o', 'r', ':', 0xAA, 0xBB, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("cursor start = %x, want %x", got, want)
	}

	// The bound excludes the cursor key and admits the next identity
	full := append(append([]byte{}, prefix...), cursor...)
	if bytes.Compare(got, full) <= 0 {
		t.Error("range start must sort after the cursor key itself")
	}
	next := append(append([]byte{}, prefix...), 0xAA, 0xBC)
	if bytes.Compare(got, next) > 0 {
		t.Error("range start must not skip the next identity key")
	}
}

func TestPrefixUpperBound(t *testing.T) {
	got := PrefixUpperBound([]byte("bor:"))
	if !bytes.Equal(got, []byte("bor;")) {
		t.Errorf("upper bound = %q, want %q", got, "bor;")
	}

	// Keys under the prefix sort below the bound, the next prefix does not
	if bytes.Compare([]byte("bor:\xff\xff"), got) >= 0 {
		t.Error("prefixed key must sort below the upper bound")
	}

	// Trailing 0xFF bytes carry into the preceding byte
	got = PrefixUpperBound([]byte{'b', 0xFF, 0xFF})
	if !bytes.Equal(got, []byte{'c'}) {
		t.Errorf("carry bound = %x, want %x", got, []byte{'c'})
	}
	if got := PrefixUpperBound([]byte{0xFF, 0xFF}); got != nil {
		t.Errorf("all-0xFF prefix bound = %x, want nil", got)
	}
}
