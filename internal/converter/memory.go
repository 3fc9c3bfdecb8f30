package converter

import (
	"math"
	"runtime"
	"runtime/debug"
	"sync"
)

const (
	// largeUploadBytes is the size above which a conversion may raise the
	// soft memory limit.
	largeUploadBytes = 10 << 20

	// Decoded pixels dominate memory use: roughly 4x the compressed size to
	// convert, 5x to be comfortable for large files.
	preflightFactor = 4
	largeFactor     = 5
)

// Hooks into the runtime, replaced in tests.
var (
	currentMemoryLimit = func() int64 { return debug.SetMemoryLimit(-1) }
	setMemoryLimit     = debug.SetMemoryLimit
	memoryInUse        = func() int64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return int64(ms.HeapAlloc)
	}
)

// memoryBudget coordinates temporary raises of the process-wide soft
// memory limit. The limit in force before the first concurrent raise is
// restored once the last raiser releases.
type memoryBudget struct {
	mu     sync.Mutex
	active int
	base   int64
}

// raise lifts the soft memory limit for a large upload of size bytes when
// the limit would not accommodate it. The returned func restores the limit
// and must always be called.
func (b *memoryBudget) raise(size int64) func() {
	if size <= largeUploadBytes {
		return func() {}
	}
	need := size * largeFactor

	b.mu.Lock()
	defer b.mu.Unlock()

	limit := currentMemoryLimit()
	if limit == math.MaxInt64 || need <= limit {
		return func() {}
	}
	if b.active == 0 {
		b.base = limit
	}
	b.active++
	setMemoryLimit(need)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.active--
			if b.active == 0 {
				setMemoryLimit(b.base)
			}
		})
	}
}

// check rejects an upload whose estimated processing memory exceeds what is
// left under the soft limit.
func (b *memoryBudget) check(size int64) error {
	limit := currentMemoryLimit()
	if limit == math.MaxInt64 {
		return nil
	}
	if size*preflightFactor > limit-memoryInUse() {
		return ErrInsufficientMemory
	}
	return nil
}
