// Package memory provides an in-memory Store for tests and for running
// without any database setup. Contents vanish on restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"quicksplit/internal/core"
	"quicksplit/internal/storage"
)

type Store struct {
	mu            sync.Mutex
	bills         map[string]core.Bill
	receipts      map[string]core.Receipt
	currentBillID string
}

// Ensure interface conformance
var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		bills:    make(map[string]core.Bill),
		receipts: make(map[string]core.Receipt),
	}
}

func (s *Store) CreateBill(_ context.Context, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[b.ID] = b
	return nil
}

func (s *Store) GetBill(_ context.Context, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, core.ErrBillNotFound
	}
	return b, nil
}

func (s *Store) UpdateBill(_ context.Context, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; !ok {
		return core.ErrBillNotFound
	}
	s.bills[b.ID] = b
	return nil
}

func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return core.ErrBillNotFound
	}
	delete(s.bills, id)
	return nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CurrentBillID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentBillID, nil
}

func (s *Store) SetCurrentBillID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentBillID = id
	return nil
}

func (s *Store) CreateReceipt(_ context.Context, r core.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[r.ID] = r
	return nil
}

func (s *Store) GetReceipt(_ context.Context, id string) (core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok {
		return core.Receipt{}, core.ErrReceiptNotFound
	}
	return r, nil
}

func (s *Store) UpdateReceipt(_ context.Context, r core.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[r.ID]; !ok {
		return core.ErrReceiptNotFound
	}
	s.receipts[r.ID] = r
	return nil
}

func (s *Store) ListPendingReceipts(_ context.Context, limit int) ([]core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Receipt
	for _, r := range s.receipts {
		if r.Status == core.ReceiptStatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
