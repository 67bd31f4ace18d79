package store

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Amund211/newsfeed/internal/adapters/cache"
	"github.com/jellydator/ttlcache/v3"
)

var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

// In-process store backed by ttlcache
//
// Scalars and lists share one key space like they do in Redis. A single mutex makes
// every operation atomic.
type ttlStore struct {
	values *ttlcache.Cache[string, []byte]
	lists  *ttlcache.Cache[string, [][]byte]

	mutex sync.Mutex
	// Closed and replaced on every push to wake blocked transfers
	pushed chan struct{}
}

func NewTTLStore() (cache.Store, func()) {
	values := ttlcache.New[string, []byte](
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	lists := ttlcache.New[string, [][]byte](
		ttlcache.WithDisableTouchOnHit[string, [][]byte](),
	)
	go values.Start()
	go lists.Start()

	stop := func() {
		values.Stop()
		lists.Stop()
	}

	return &ttlStore{
		values: values,
		lists:  lists,
		pushed: make(chan struct{}),
	}, stop
}

func itemTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttlcache.NoTTL
	}
	return ttl
}

func (s *ttlStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.lists.Get(key) != nil {
		return nil, false, ErrWrongType
	}

	item := s.values.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return bytes.Clone(item.Value()), true, nil
}

func (s *ttlStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lists.Delete(key)
	s.values.Set(key, bytes.Clone(value), itemTTL(ttl))
	return nil
}

func (s *ttlStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.values.Get(key) != nil || s.lists.Get(key) != nil {
		return false, nil
	}

	s.values.Set(key, bytes.Clone(value), itemTTL(ttl))
	return true, nil
}

func (s *ttlStore) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.values.Delete(key)
	s.lists.Delete(key)
	return nil
}

// Must be called with the mutex held
func (s *ttlStore) getList(key string) ([][]byte, error) {
	if s.values.Get(key) != nil {
		return nil, ErrWrongType
	}

	item := s.lists.Get(key)
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

// Must be called with the mutex held
func (s *ttlStore) storeList(key string, list [][]byte, ttl time.Duration) {
	if len(list) == 0 {
		s.lists.Delete(key)
		return
	}
	s.lists.Set(key, list, ttl)
}

func (s *ttlStore) Push(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	list, err := s.getList(key)
	if err != nil {
		return err
	}

	// Newest element first, like LPUSH
	updated := make([][]byte, 0, len(list)+1)
	updated = append(updated, bytes.Clone(value))
	updated = append(updated, list...)
	s.storeList(key, updated, itemTTL(ttl))

	close(s.pushed)
	s.pushed = make(chan struct{})

	return nil
}

func (s *ttlStore) PopFront(ctx context.Context, key string) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	list, err := s.getList(key)
	if err != nil {
		return nil, false, err
	}
	if len(list) == 0 {
		return nil, false, nil
	}

	s.storeList(key, slices.Clone(list[1:]), ttlcache.PreviousOrDefaultTTL)
	return list[0], true, nil
}

// Returns value, transferred, wake channel, error
func (s *ttlStore) tryTransfer(source, destination string) ([]byte, bool, <-chan struct{}, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sourceList, err := s.getList(source)
	if err != nil {
		return nil, false, nil, err
	}
	destinationList, err := s.getList(destination)
	if err != nil {
		return nil, false, nil, err
	}

	if len(sourceList) == 0 {
		return nil, false, s.pushed, nil
	}

	last := len(sourceList) - 1
	value := sourceList[last]
	s.storeList(source, slices.Clone(sourceList[:last]), ttlcache.PreviousOrDefaultTTL)

	if source == destination {
		destinationList = sourceList[:last]
	}
	updated := make([][]byte, 0, len(destinationList)+1)
	updated = append(updated, value)
	updated = append(updated, destinationList...)
	s.storeList(destination, updated, ttlcache.PreviousOrDefaultTTL)

	return bytes.Clone(value), true, nil, nil
}

// A non-positive timeout blocks until ctx is done
func (s *ttlStore) BlockingTransfer(ctx context.Context, source, destination string, timeout time.Duration) ([]byte, bool, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		value, transferred, pushed, err := s.tryTransfer(source, destination)
		if err != nil {
			return nil, false, err
		}
		if transferred {
			return value, true, nil
		}

		select {
		case <-pushed:
		case <-expired:
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}
