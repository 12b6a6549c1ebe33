// Package dedupe tracks idempotency keys so retried organizer requests are
// answered from the first attempt instead of being applied twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Default configuration constants.
const (
	defaultMaxSize = 50000
)

// Deduper records seen idempotency keys and the result they produced.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Complete attaches the encoded result of the request that recorded key.
	Complete(ctx context.Context, key string, result []byte)

	// Result returns the stored result for key; ok is false while the first
	// request is still in flight or the key is unknown.
	Result(ctx context.Context, key string) (result []byte, ok bool)

	// Unrecord forgets key so a failed request may be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key    string
	result []byte
	done   bool
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(*entry).key)
	}
	d.seen[key] = d.order.PushBack(&entry{key: key})
	return false
}

func (d *inMemoryDeduper) Complete(_ context.Context, key string, result []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		e := el.Value.(*entry)
		e.result = append([]byte(nil), result...)
		e.done = true
	}
}

func (d *inMemoryDeduper) Result(_ context.Context, key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.seen[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if !e.done {
		return nil, false
	}
	return append([]byte(nil), e.result...), true
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

// Size returns the current number of keys in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
