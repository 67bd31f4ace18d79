package cache_test

import (
	"context"
	"sync"
	"time"

	"github.com/Amund211/newsfeed/internal/adapters/cache"
)

type storeOperation string

const (
	opGet              storeOperation = "Get"
	opSet              storeOperation = "Set"
	opSetIfAbsent      storeOperation = "SetIfAbsent"
	opBlockingTransfer storeOperation = "BlockingTransfer"
	opPopFront         storeOperation = "PopFront"
	opPush             storeOperation = "Push"
	opDelete           storeOperation = "Delete"
)

// Wraps a store, counting calls and optionally failing or intercepting operations
type mockStore struct {
	store cache.Store

	mutex    sync.Mutex
	calls    map[storeOperation]int
	failures map[storeOperation]error
	hooks    map[storeOperation]func(key string)
	after    map[storeOperation]func(key string)
}

func newMockStore(store cache.Store) *mockStore {
	return &mockStore{
		store:    store,
		calls:    make(map[storeOperation]int),
		failures: make(map[storeOperation]error),
		hooks:    make(map[storeOperation]func(key string)),
		after:    make(map[storeOperation]func(key string)),
	}
}

func (m *mockStore) failOn(op storeOperation, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.failures[op] = err
}

func (m *mockStore) hookBefore(op storeOperation, hook func(key string)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.hooks[op] = hook
}

// Run hook once the wrapped store has completed op, before the result is returned
func (m *mockStore) hookAfter(op storeOperation, hook func(key string)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.after[op] = hook
}

func (m *mockStore) runAfter(op storeOperation, key string) {
	m.mutex.Lock()
	hook := m.after[op]
	m.mutex.Unlock()

	if hook != nil {
		hook(key)
	}
}

func (m *mockStore) callCount(op storeOperation) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.calls[op]
}

func (m *mockStore) record(op storeOperation, key string) error {
	m.mutex.Lock()
	m.calls[op]++
	err := m.failures[op]
	hook := m.hooks[op]
	m.mutex.Unlock()

	if hook != nil {
		hook(key)
	}

	return err
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.record(opGet, key); err != nil {
		return nil, false, err
	}
	defer m.runAfter(opGet, key)
	return m.store.Get(ctx, key)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.record(opSet, key); err != nil {
		return err
	}
	defer m.runAfter(opSet, key)
	return m.store.Set(ctx, key, value, ttl)
}

func (m *mockStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := m.record(opSetIfAbsent, key); err != nil {
		return false, err
	}
	defer m.runAfter(opSetIfAbsent, key)
	return m.store.SetIfAbsent(ctx, key, value, ttl)
}

func (m *mockStore) BlockingTransfer(ctx context.Context, source, destination string, timeout time.Duration) ([]byte, bool, error) {
	if err := m.record(opBlockingTransfer, source); err != nil {
		return nil, false, err
	}
	defer m.runAfter(opBlockingTransfer, source)
	return m.store.BlockingTransfer(ctx, source, destination, timeout)
}

func (m *mockStore) PopFront(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.record(opPopFront, key); err != nil {
		return nil, false, err
	}
	defer m.runAfter(opPopFront, key)
	return m.store.PopFront(ctx, key)
}

func (m *mockStore) Push(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.record(opPush, key); err != nil {
		return err
	}
	defer m.runAfter(opPush, key)
	return m.store.Push(ctx, key, value, ttl)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	if err := m.record(opDelete, key); err != nil {
		return err
	}
	defer m.runAfter(opDelete, key)
	return m.store.Delete(ctx, key)
}

var _ cache.Store = (*mockStore)(nil)
