package custody

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/moneymarket/pkg/storage"
)

// Store persists the custody config singleton and borrower records.
// Thread-safety is provided by the Ledger's mutex.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// SaveConfig persists the config singleton.
func (s *Store) SaveConfig(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal custody config: %w", err)
	}
	return s.db.Set(configKey(), data)
}

// LoadConfig loads the config singleton, or nil if never instantiated.
func (s *Store) LoadConfig() (*Config, error) {
	data, err := s.db.Get(configKey())
	if err != nil || data == nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custody config: %w", err)
	}
	return &cfg, nil
}

// LoadBorrower loads a borrower record, returning the zero-valued default
// for absent borrowers. The read side is total: it never fails on a miss.
func (s *Store) LoadBorrower(borrower common.Address) (*BorrowerInfo, error) {
	data, err := s.db.Get(borrowerKey(borrower))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return NewBorrowerInfo(), nil
	}
	var info BorrowerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal borrower %s: %w", borrower.Hex(), err)
	}
	return &info, nil
}

// SaveBorrower persists a borrower record.
func (s *Store) SaveBorrower(borrower common.Address, info *BorrowerInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal borrower %s: %w", borrower.Hex(), err)
	}
	return s.db.Set(borrowerKey(borrower), data)
}

// DeleteBorrower removes a borrower record (garbage-collects empty
// accounts once balance returns to zero).
func (s *Store) DeleteBorrower(borrower common.Address) error {
	return s.db.Delete(borrowerKey(borrower))
}

// Borrowers scans borrower records in ascending byte order of the
// borrower address. startAfter, when given, is excluded from the page.
func (s *Store) Borrowers(startAfter *common.Address, limit *uint32) ([]*BorrowerPosition, error) {
	prefix := borrowerPrefix()

	var after []byte
	if startAfter != nil {
		after = startAfter.Bytes()
	}
	lower := storage.RangeStart(prefix, after)
	max := storage.ClampLimit(limit)

	iter, err := s.db.NewIter(lower, storage.PrefixUpperBound(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to open borrower iterator: %w", err)
	}
	defer iter.Close()

	var page []*BorrowerPosition
	for iter.First(); iter.Valid() && len(page) < max; iter.Next() {
		var info BorrowerInfo
		if err := json.Unmarshal(iter.Value(), &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal borrower record %q: %w", iter.Key(), err)
		}
		page = append(page, &BorrowerPosition{
			Borrower:  borrowerFromKey(iter.Key()),
			Balance:   info.Balance,
			Spendable: info.Spendable,
		})
	}
	return page, nil
}
