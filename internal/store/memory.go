package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// memDoc is a stored document plus the write sequence that produced it.
type memDoc struct {
	data []byte
	seq  uint64
}

// memSub is one subscription. Deliveries are serialized per subscriber
// and stale ones are dropped by sequence, so the newest document a
// subscriber has seen is always the newest written.
type memSub struct {
	mu      sync.Mutex
	lastSeq uint64
	fn      func([]byte)
}

func (sub *memSub) deliver(seq uint64, data []byte) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if seq <= sub.lastSeq {
		return
	}
	sub.lastSeq = seq
	sub.fn(data)
}

// MemoryStore is an in-process Store used by tests and single-machine
// play. Each subscriber observes documents in write order.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]memDoc
	subs   map[string]map[int]*memSub
	nextID int
	seq    uint64
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]memDoc),
		subs: make(map[string]map[int]*memSub),
	}
}

func (s *MemoryStore) Write(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("write %s: store closed", path)
	}
	s.seq++
	seq := s.seq
	s.docs[path] = memDoc{data: data, seq: seq}
	var subs []*memSub
	for _, sub := range s.subs[path] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	// Deliver outside the store lock so a subscriber may write to
	// other paths.
	for _, sub := range subs {
		sub.deliver(seq, data)
	}
	return nil
}

func (s *MemoryStore) ReadOnce(ctx context.Context, path string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), doc.data...)
	return out, true, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string, fn func([]byte)) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: store closed", path)
	}
	id := s.nextID
	s.nextID++
	sub := &memSub{fn: fn}
	if s.subs[path] == nil {
		s.subs[path] = make(map[int]*memSub)
	}
	s.subs[path][id] = sub
	initial, found := s.docs[path]
	s.mu.Unlock()

	// The sequence check drops the initial document when a concurrent
	// write already delivered something newer.
	if found {
		sub.deliver(initial.seq, initial.data)
	}

	return func() {
		s.mu.Lock()
		delete(s.subs[path], id)
		s.mu.Unlock()
	}, nil
}

func (s *MemoryStore) ServerTimestamp(ctx context.Context) int64 {
	return time.Now().UnixMilli()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[string]map[int]*memSub)
	s.mu.Unlock()
	return nil
}
