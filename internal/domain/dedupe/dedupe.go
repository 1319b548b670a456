// Package dedupe remembers recently analyzed uploads by content digest.
package dedupe

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Deduper records upload digests so identical re-uploads are not notified twice.
type Deduper interface {
	// SeenAndRecord reports whether digest was already recorded and records
	// it if not. The check and the insert are atomic.
	SeenAndRecord(ctx context.Context, digest string) bool

	// Unrecord forgets digest, e.g. when its notification could not be queued.
	Unrecord(ctx context.Context, digest string)

	Size() int
}

// Digest returns the hex SHA-256 of an upload.
func Digest(upload []byte) string {
	sum := sha256.Sum256(upload)
	return hex.EncodeToString(sum[:])
}

// fifoDeduper keeps at most maxSize digests and evicts the oldest first.
// maxSize <= 0 disables eviction.
type fifoDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
}

// NewInMemoryDeduper creates a bounded FIFO deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &fifoDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *fifoDeduper) SeenAndRecord(_ context.Context, digest string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[digest]; ok {
		return true
	}
	if d.maxSize > 0 {
		for d.order.Len() >= d.maxSize {
			oldest := d.order.Front()
			d.order.Remove(oldest)
			delete(d.seen, oldest.Value.(string))
		}
	}
	d.seen[digest] = d.order.PushBack(digest)
	return false
}

func (d *fifoDeduper) Unrecord(_ context.Context, digest string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[digest]; ok {
		d.order.Remove(e)
		delete(d.seen, digest)
	}
}

func (d *fifoDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
