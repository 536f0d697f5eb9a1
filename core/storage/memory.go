package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/mverdeau/geodispatch/core/model"
)

// MemoryDeliveryStore keeps deliveries in a map guarded by a mutex.
type MemoryDeliveryStore struct {
	mu   sync.RWMutex
	data map[string]model.Delivery
}

// NewMemoryDeliveryStore creates an empty store.
func NewMemoryDeliveryStore() *MemoryDeliveryStore {
	return &MemoryDeliveryStore{data: make(map[string]model.Delivery)}
}

func (s *MemoryDeliveryStore) Save(_ context.Context, d model.Delivery) error {
	s.mu.Lock()
	s.data[d.ID] = d
	s.mu.Unlock()
	return nil
}

func (s *MemoryDeliveryStore) Load(_ context.Context, id string) (model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[id]
	if !ok {
		return model.Delivery{}, ErrNotFound
	}
	return d, nil
}

func (s *MemoryDeliveryStore) List(_ context.Context) ([]model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Delivery, 0, len(s.data))
	for _, d := range s.data {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MemoryReportStore keeps reports in insertion order.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports []model.Report
}

// NewMemoryReportStore creates an empty store.
func NewMemoryReportStore() *MemoryReportStore { return &MemoryReportStore{} }

func (s *MemoryReportStore) Save(_ context.Context, r model.Report) error {
	s.mu.Lock()
	s.reports = append(s.reports, r)
	s.mu.Unlock()
	return nil
}

func (s *MemoryReportStore) List(_ context.Context) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Report, len(s.reports))
	copy(out, s.reports)
	return out, nil
}
