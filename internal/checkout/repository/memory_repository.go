package repository

import (
	"context"
	"sync"
	"time"
)

// DefaultRetention is how long MemoryRepository keeps an attempt after it was closed.
const DefaultRetention = 24 * time.Hour

// MemoryRepository is the journal used when no JOURNAL_DSN is configured. Attempts do not survive a restart.
// Closed attempts are evicted once they are older than the retention, pending ones are kept.
type MemoryRepository struct {
	mu        sync.Mutex
	attempts  map[int64]Attempt
	now       func() time.Time
	retention time.Duration
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		attempts:  make(map[int64]Attempt),
		now:       time.Now,
		retention: DefaultRetention,
	}
}

func (m *MemoryRepository) CreateAttempt(_ context.Context, attempt *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictClosed()
	if _, exists := m.attempts[attempt.OrderID]; exists {
		return ErrDuplicateAttempt
	}
	a := *attempt
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	m.attempts[a.OrderID] = a
	return nil
}

func (m *MemoryRepository) PendingAttempt(_ context.Context, sessionID string) (*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var newest *Attempt
	for _, a := range m.attempts {
		if a.SessionID != sessionID || a.Status != AttemptStatusPending {
			continue
		}
		if newest == nil || a.CreatedAt.After(newest.CreatedAt) ||
			(a.CreatedAt.Equal(newest.CreatedAt) && a.OrderID > newest.OrderID) {
			found := a
			newest = &found
		}
	}
	if newest == nil {
		return nil, ErrAttemptNotFound
	}
	return newest, nil
}

func (m *MemoryRepository) AttemptByOrder(_ context.Context, orderID int64) (*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.attempts[orderID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return &a, nil
}

func (m *MemoryRepository) SetPaymentURL(_ context.Context, orderID int64, paymentURL string) error {
	return m.update(orderID, func(a *Attempt) { a.PaymentURL = paymentURL })
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, orderID int64, status AttemptStatus) error {
	return m.update(orderID, func(a *Attempt) { a.Status = status })
}

func (m *MemoryRepository) Close() error {
	return nil
}

func (m *MemoryRepository) update(orderID int64, apply func(*Attempt)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.attempts[orderID]
	if !ok {
		return ErrAttemptNotFound
	}
	apply(&a)
	a.UpdatedAt = m.now()
	m.attempts[orderID] = a
	return nil
}

// evictClosed drops closed attempts past the retention. Callers hold mu.
func (m *MemoryRepository) evictClosed() {
	cutoff := m.now().Add(-m.retention)
	for id, a := range m.attempts {
		if a.Status != AttemptStatusPending && a.UpdatedAt.Before(cutoff) {
			delete(m.attempts, id)
		}
	}
}

