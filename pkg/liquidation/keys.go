package liquidation

import (
	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema. A bid is one primary record plus two index entries;
// the three keys below for a (bidder, collateral) pair are always written
// and removed together in one batch.
//
// Addresses are embedded as raw 20-byte values, so index scans return
// companions in ascending byte order of their identity.
const (
	keyConfig       = "liq:cfg"
	prefixBid       = "liq:bid:"  // bidder ++ collateral -> Bid
	prefixByBidder  = "liq:bidu:" // bidder ++ collateral -> marker
	prefixByAsset   = "liq:bidc:" // collateral ++ bidder -> marker
	companionKeyLen = common.AddressLength
)

func configKey() []byte {
	return []byte(keyConfig)
}

// bidKey returns the primary record key: "liq:bid:" ++ bidder ++ collateral.
func bidKey(bidder, collateral common.Address) []byte {
	key := append([]byte(prefixBid), bidder.Bytes()...)
	return append(key, collateral.Bytes()...)
}

// byBidderKey returns the by-bidder index entry for (bidder, collateral).
func byBidderKey(bidder, collateral common.Address) []byte {
	key := append([]byte(prefixByBidder), bidder.Bytes()...)
	return append(key, collateral.Bytes()...)
}

// byBidderPrefix returns the scan prefix over one bidder's index entries.
func byBidderPrefix(bidder common.Address) []byte {
	return append([]byte(prefixByBidder), bidder.Bytes()...)
}

// byAssetKey returns the by-collateral index entry for (bidder, collateral).
func byAssetKey(bidder, collateral common.Address) []byte {
	key := append([]byte(prefixByAsset), collateral.Bytes()...)
	return append(key, bidder.Bytes()...)
}

// byAssetPrefix returns the scan prefix over one collateral's index entries.
func byAssetPrefix(collateral common.Address) []byte {
	return append([]byte(prefixByAsset), collateral.Bytes()...)
}

// companionFromIndexKey recovers the trailing companion address from an
// index entry key under the given prefix.
func companionFromIndexKey(prefix, key []byte) common.Address {
	return common.BytesToAddress(key[len(prefix) : len(prefix)+companionKeyLen])
}
