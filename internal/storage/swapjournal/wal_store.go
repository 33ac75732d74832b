// Package swapjournal keeps an append-only audit log of settled swaps.
package swapjournal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

const (
	defaultJournalDir   = "./wal/swaps"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	settlementKeyPrefix = "settlement_"
)

var errNotInitialized = errors.New("swap journal is not initialized")

// WALStore persists settlements in a WAL so they can be streamed to clients.
// It is never read back into the wallet.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) a journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "swaps_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open swap journal in %s", dir)
	}

	return &WALStore{wal: wal}, nil
}

// Save appends a settled swap. Only settlements with an ID are accepted.
func (s *WALStore) Save(settlement domain.Settlement) error {
	if s == nil || s.wal == nil {
		return errNotInitialized
	}
	if !settlement.Settled() || settlement.ID == "" {
		return errors.Errorf("only settled swaps are journaled, got status %q", settlement.Status)
	}

	payload, err := json.Marshal(settlement)
	if err != nil {
		return errors.Wrap(err, "marshal settlement")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.wal.CurrentIndex() + 1
	return s.wal.Write(next, settlementKeyPrefix+settlement.ID, payload)
}

// SettlementsAfter returns every settlement written after the given index.
func (s *WALStore) SettlementsAfter(index uint64) ([]domain.SettlementRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.SettlementRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, settlementKeyPrefix) {
			continue
		}
		var settlement domain.Settlement
		if err := json.Unmarshal(payload, &settlement); err != nil {
			return nil, errors.Wrapf(err, "decode settlement at index %d", idx)
		}
		records = append(records, domain.SettlementRecord{Index: idx, Settlement: settlement})
	}

	return records, nil
}

// CurrentIndex returns the latest index written.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
