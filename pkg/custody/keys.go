package custody

import (
	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema. Borrower keys embed the raw 20-byte address so that
// prefix scans return records in ascending byte order of the identity.
const (
	keyConfig      = "cst:cfg"
	prefixBorrower = "cst:bor:"
)

// configKey returns the singleton config key.
func configKey() []byte {
	return []byte(keyConfig)
}

// borrowerKey returns the key for one borrower record.
// Format: "cst:bor:" + 20 raw address bytes.
func borrowerKey(borrower common.Address) []byte {
	return append([]byte(prefixBorrower), borrower.Bytes()...)
}

// borrowerPrefix returns the scan prefix for all borrower records.
func borrowerPrefix() []byte {
	return []byte(prefixBorrower)
}

// borrowerFromKey recovers the address from a borrower key.
func borrowerFromKey(key []byte) common.Address {
	return common.BytesToAddress(key[len(prefixBorrower):])
}
