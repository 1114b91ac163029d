package asset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Asset describes a collateral token accepted by the protocol.
type Asset struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// Registry manages the collateral asset whitelist in a thread-safe manner
// Supports registration and lookup by token address
type Registry struct {
	mu     sync.RWMutex
	assets map[common.Address]*Asset
}

// NewRegistry creates an empty asset registry
func NewRegistry() *Registry {
	return &Registry{
		assets: make(map[common.Address]*Asset),
	}
}

// Register adds a new asset to the registry
// Returns error if an asset with the same address already exists
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[a.Address]; exists {
		return fmt.Errorf("asset %s already registered", a.Symbol)
	}

	r.assets[a.Address] = a
	return nil
}

// Get retrieves an asset by token address
// Returns error if the asset is not whitelisted
func (r *Registry) Get(addr common.Address) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.assets[addr]
	if !exists {
		return nil, fmt.Errorf("asset %s not found", addr.Hex())
	}

	return a, nil
}

// List returns all registered assets ordered by address
// Returns a copy of the slice to avoid concurrent modification
func (r *Registry) List() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assets := make([]*Asset, 0, len(r.assets))
	for _, a := range r.assets {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Address.Cmp(assets[j].Address) < 0
	})

	return assets
}

// Exists checks if an asset is whitelisted
func (r *Registry) Exists(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.assets[addr]
	return exists
}

// Count returns the total number of whitelisted assets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}
