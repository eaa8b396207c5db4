package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/ema-trader/internal/journal"
	"github.com/amirphl/ema-trader/internal/order"
)

// MemoryStorage is the journal used when no database is configured.
type MemoryStorage struct {
	mu sync.RWMutex

	// Orders by orderID
	orders map[string]order.OrderResponse

	// Events (append-only)
	events []journal.Event
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		orders: make(map[string]order.OrderResponse),
		events: make([]journal.Event, 0, 1024),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) SaveOrder(ctx context.Context, o order.OrderResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.Timestamp = o.Timestamp.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	m.orders[o.OrderID] = o
	return nil
}

func (m *MemoryStorage) GetOrders(ctx context.Context, symbol string, start, end time.Time) ([]order.OrderResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []order.OrderResponse
	for _, o := range m.orders {
		if !strings.EqualFold(o.Symbol, symbol) {
			continue
		}
		if !o.Timestamp.Before(start) && o.Timestamp.Before(end) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStorage) LogEvent(ctx context.Context, event journal.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.Time = event.Time.UTC()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryStorage) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]journal.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []journal.Event
	for _, e := range m.events {
		if e.Type != eventType {
			continue
		}
		if !e.Time.Before(start) && !e.Time.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}
