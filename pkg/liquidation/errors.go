package liquidation

import (
	"errors"
)

var (
	// ErrUnauthorized is returned when the caller is not the config owner.
	ErrUnauthorized = errors.New("liquidation: unauthorized")

	// ErrInvalidAmount is returned for nil or negative bid amounts.
	ErrInvalidAmount = errors.New("liquidation: amount must not be negative")

	// ErrNotInstantiated is returned when the config singleton was never
	// stored.
	ErrNotInstantiated = errors.New("liquidation: config not instantiated")

	// ErrBidNotFound is returned by bid lookups that miss.
	ErrBidNotFound = errors.New("No bids with the specified information exist")

	// ErrIndexCorrupted is returned when an index entry has no primary
	// record behind it. The three records of a bid are written atomically,
	// so this is a data-corruption bug, never a normal empty result.
	ErrIndexCorrupted = errors.New("liquidation: bid index entry without primary record")
)
