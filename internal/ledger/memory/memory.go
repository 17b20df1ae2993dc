// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	order []string
	items map[string]core.Obligation
}

var _ ledger.Store = (*Store)(nil)

func New(obligations ...core.Obligation) *Store {
	s := &Store{items: make(map[string]core.Obligation, len(obligations))}
	for _, o := range obligations {
		s.put(o)
	}
	return s
}

// NewFromFile seeds the store from a TOML seed file. An empty path yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	obligations, err := ledger.LoadSeedFile(path)
	if err != nil {
		return nil, err
	}
	return New(obligations...), nil
}

func (s *Store) ListObligations(_ context.Context) ([]core.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Obligation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].Clone())
	}
	return out, nil
}

func (s *Store) GetObligation(_ context.Context, id string) (core.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return core.Obligation{}, fmt.Errorf("%w: %s", core.ErrObligationNotFound, id)
	}
	return o.Clone(), nil
}

func (s *Store) AppendEntries(_ context.Context, obligationID string, entries ...core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[obligationID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrObligationNotFound, obligationID)
	}
	o = o.Clone()
	o.Entries = append(o.Entries, entries...)
	s.items[obligationID] = o
	return nil
}

func (s *Store) RemoveEntries(_ context.Context, obligationID string, entryIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[obligationID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrObligationNotFound, obligationID)
	}
	drop := make(map[string]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		drop[id] = struct{}{}
	}
	kept := make([]core.LedgerEntry, 0, len(o.Entries))
	for _, e := range o.Entries {
		if _, ok := drop[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	o.Entries = kept
	s.items[obligationID] = o
	return nil
}

func (s *Store) SaveObligation(_ context.Context, o core.Obligation) error {
	if o.ID == "" {
		return fmt.Errorf("save obligation: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(o)
	return nil
}

func (s *Store) put(o core.Obligation) {
	if _, ok := s.items[o.ID]; !ok {
		s.order = append(s.order, o.ID)
	}
	s.items[o.ID] = o.Clone()
}
