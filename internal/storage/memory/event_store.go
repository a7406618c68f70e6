package memory

import (
	"context"
	"sort"
	"sync"

	"solana-presale/internal/domain"
	"solana-presale/internal/storage"
)

type saleSeqKey struct {
	saleID string
	seq    uint64
}

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.LedgerEvent // keyed by event_id
	bySeq map[saleSeqKey]string          // (sale_id, seq) -> event_id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data:  make(map[string]*domain.LedgerEvent),
		bySeq: make(map[saleSeqKey]string),
	}
}

// Append adds a new event. Returns ErrDuplicateKey if event_id or (sale_id, seq) exists.
func (s *EventStore) Append(_ context.Context, e *domain.LedgerEvent) error {
	if err := storage.ValidateEvent(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := saleSeqKey{e.SaleID, e.Seq}
	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.bySeq[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	eventCopy := *e
	s.data[e.EventID] = &eventCopy
	s.bySeq[key] = e.EventID
	return nil
}

// GetBySale retrieves all events of a sale, ordered by seq ASC.
func (s *EventStore) GetBySale(_ context.Context, saleID string) ([]*domain.LedgerEvent, error) {
	return s.filter(func(e *domain.LedgerEvent) bool {
		return e.SaleID == saleID
	}), nil
}

// GetByAccount retrieves all events of a sale touching an account, ordered by seq ASC.
func (s *EventStore) GetByAccount(_ context.Context, saleID, account string) ([]*domain.LedgerEvent, error) {
	return s.filter(func(e *domain.LedgerEvent) bool {
		return e.SaleID == saleID && (e.Account == account || e.Counterparty == account)
	}), nil
}

// GetByKind retrieves all events of a sale with the given kind, ordered by seq ASC.
func (s *EventStore) GetByKind(_ context.Context, saleID string, kind domain.EventKind) ([]*domain.LedgerEvent, error) {
	return s.filter(func(e *domain.LedgerEvent) bool {
		return e.SaleID == saleID && e.Kind == kind
	}), nil
}

func (s *EventStore) filter(match func(*domain.LedgerEvent) bool) []*domain.LedgerEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEvent
	for _, e := range s.data {
		if match(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
