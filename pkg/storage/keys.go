package storage

// Pagination settings shared by every paginated query surface.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 30
)

// ClampLimit resolves an optional caller-supplied page limit to an
// effective one: nil means DefaultPageLimit, anything larger than
// MaxPageLimit is clamped down.
func ClampLimit(limit *uint32) int {
	l := uint32(DefaultPageLimit)
	if limit != nil {
		l = *limit
	}
	if l > MaxPageLimit {
		l = MaxPageLimit
	}
	return int(l)
}

// RangeStart returns the inclusive lower bound that excludes startAfter
// itself: the supplied key with a single continuation byte appended, which
// is the first key strictly after it among fixed-width identity keys.
// A nil startAfter scans from the beginning of the prefix.
func RangeStart(prefix, startAfter []byte) []byte {
	lower := make([]byte, 0, len(prefix)+len(startAfter)+1)
	lower = append(lower, prefix...)
	if len(startAfter) == 0 {
		return lower
	}
	lower = append(lower, startAfter...)
	return append(lower, 0x01)
}

// PrefixUpperBound returns the exclusive upper bound for a prefix scan:
// the prefix with its last byte incremented, carrying over 0xFF bytes.
// A prefix of all 0xFF has no upper bound; nil means scan to the end.
func PrefixUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		bound[i]++
		if bound[i] != 0 {
			return bound[:i+1]
		}
	}
	return nil
}
