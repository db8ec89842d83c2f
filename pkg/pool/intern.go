package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultInternSize bounds an Interner created with a non-positive size.
const DefaultInternSize = 10000

// Interner deduplicates repeated strings, such as the enumeration codes that
// fill most GWSW columns. Once full it returns new strings unchanged.
type Interner struct {
	mu      sync.RWMutex
	strings map[string]string
	maxSize int
	hits    int64
	misses  int64
}

// NewInterner creates an interner holding at most maxSize strings.
func NewInterner(maxSize int, preload ...string) *Interner {
	if maxSize <= 0 {
		maxSize = DefaultInternSize
	}
	in := &Interner{strings: make(map[string]string, 256), maxSize: maxSize}
	for _, s := range preload {
		in.Intern(s)
	}
	return in
}

// Intern returns the canonical copy of s.
func (in *Interner) Intern(s string) string {
	in.mu.RLock()
	if v, ok := in.strings[s]; ok {
		in.mu.RUnlock()
		atomic.AddInt64(&in.hits, 1)
		return v
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if v, ok := in.strings[s]; ok {
		atomic.AddInt64(&in.hits, 1)
		return v
	}
	atomic.AddInt64(&in.misses, 1)
	if len(in.strings) >= in.maxSize {
		return s
	}
	in.strings[s] = s
	return s
}

// Stats returns the number of interned strings, hits and misses.
func (in *Interner) Stats() (size int, hits, misses int64) {
	in.mu.RLock()
	size = len(in.strings)
	in.mu.RUnlock()
	return size, atomic.LoadInt64(&in.hits), atomic.LoadInt64(&in.misses)
}
