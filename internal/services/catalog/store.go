package catalog

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tokenswap/internal/domain"
)

// ErrCatalogUnavailable is returned while no usable catalog snapshot exists.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Snapshot is an immutable catalog version.
type Snapshot struct {
	Tokens    []domain.Token `json:"tokens"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store holds the current catalog snapshot. Snapshots are replaced wholesale,
// readers never observe a partially refreshed catalog.
type Store struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	lastErr  error
	now      func() time.Time
}

// NewStore creates an empty store. It reports ErrCatalogUnavailable until the first Update.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Update publishes a freshly built catalog and clears any previous fetch failure.
func (s *Store) Update(tokens []domain.Token) {
	copied := make([]domain.Token, len(tokens))
	copy(copied, tokens)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &Snapshot{Tokens: copied, UpdatedAt: s.now()}
	s.lastErr = nil
}

// Fail marks the catalog unavailable until the next successful Update.
func (s *Store) Fail(err error) {
	if err == nil {
		err = errors.New("unknown refresh failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// Snapshot returns the current catalog or ErrCatalogUnavailable.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastErr != nil {
		return Snapshot{}, errors.Wrap(ErrCatalogUnavailable, s.lastErr.Error())
	}
	if s.snapshot == nil {
		return Snapshot{}, errors.Wrap(ErrCatalogUnavailable, "not loaded yet")
	}
	return *s.snapshot, nil
}
