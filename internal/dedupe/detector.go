// Package dedupe detects duplicate inbound and outbound messages using
// content hashing over a bounded, time-windowed LRU cache.
package dedupe

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

const (
	defaultCacheSize     = 100
	defaultTimeWindow    = 60 * time.Second
	defaultMinContentLen = 3
)

// Detector is a content-hash duplicate detector with a time window and an
// LRU-bounded cache.
type Detector struct {
	mu sync.Mutex

	cacheSize     int
	timeWindow    time.Duration
	minContentLen int
	now           func() time.Time

	order *list.List
	index map[string]*list.Element
}

type cacheEntry struct {
	hash      string
	role      models.Role
	timestamp time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithCacheSize overrides the maximum number of cached fingerprints.
func WithCacheSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.cacheSize = n
		}
	}
}

// WithTimeWindow overrides the duplicate-detection time window.
func WithTimeWindow(window time.Duration) Option {
	return func(d *Detector) {
		if window > 0 {
			d.timeWindow = window
		}
	}
}

// WithMinContentLength overrides the shortest content considered for
// duplicate detection; very short messages ("ok", "k") are never flagged.
func WithMinContentLength(n int) Option {
	return func(d *Detector) {
		if n >= 0 {
			d.minContentLen = n
		}
	}
}

// WithClock overrides the clock used for timestamps, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{
		cacheSize:     defaultCacheSize,
		timeWindow:    defaultTimeWindow,
		minContentLen: defaultMinContentLen,
		now:           time.Now,
		order:         list.New(),
		index:         make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func normalizeContent(content string) string {
	return strings.ToLower(strings.Join(strings.Fields(content), " "))
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(normalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether content was already seen, by the same role
// if checkRole is true, within the configured time window. It does not
// record content as seen; call MarkAsSeen or use CheckAndMark for that.
func (d *Detector) IsDuplicate(content string, role models.Role, checkRole bool) bool {
	if len(strings.TrimSpace(content)) < d.minContentLen {
		return false
	}
	hash := contentHash(content)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked()

	elem, ok := d.index[hash]
	if !ok {
		return false
	}
	entry := elem.Value.(*cacheEntry)
	if checkRole && entry.role != role {
		return false
	}
	return d.now().Sub(entry.timestamp) <= d.timeWindow
}

// MarkAsSeen records content as seen for the given role at the current
// time, moving it to the front of the LRU order.
func (d *Detector) MarkAsSeen(content string, role models.Role) {
	if len(strings.TrimSpace(content)) < d.minContentLen {
		return
	}
	hash := contentHash(content)

	d.mu.Lock()
	defer d.mu.Unlock()

	entry := &cacheEntry{hash: hash, role: role, timestamp: d.now()}
	if elem, ok := d.index[hash]; ok {
		elem.Value = entry
		d.order.MoveToFront(elem)
	} else {
		d.index[hash] = d.order.PushFront(entry)
	}
	d.evictLocked()
}

// CheckAndMark checks whether content is a duplicate and, if it is not,
// marks it as seen. It returns true if the message was a duplicate.
func (d *Detector) CheckAndMark(content string, role models.Role, checkRole bool) bool {
	if d.IsDuplicate(content, role, checkRole) {
		return true
	}
	d.MarkAsSeen(content, role)
	return false
}

// LoadFromTranscript seeds the cache from prior conversation history so a
// process restart does not forget recent duplicates. Only entries within
// the time window (relative to the current clock) are retained.
func (d *Detector) LoadFromTranscript(entries []TranscriptEntry) {
	cutoff := d.now().Add(-d.timeWindow)
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		d.markAsSeenAt(e.Content, e.Role, e.Timestamp)
	}
}

// TranscriptEntry is a minimal role/content/time record used to seed the
// detector from a persisted transcript.
type TranscriptEntry struct {
	Content   string
	Role      models.Role
	Timestamp time.Time
}

func (d *Detector) markAsSeenAt(content string, role models.Role, at time.Time) {
	if len(strings.TrimSpace(content)) < d.minContentLen {
		return
	}
	hash := contentHash(content)

	d.mu.Lock()
	defer d.mu.Unlock()

	entry := &cacheEntry{hash: hash, role: role, timestamp: at}
	if elem, ok := d.index[hash]; ok {
		elem.Value = entry
		d.order.MoveToFront(elem)
	} else {
		d.index[hash] = d.order.PushFront(entry)
	}
	d.evictLocked()
}

// Clear empties the cache.
func (d *Detector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order.Init()
	d.index = make(map[string]*list.Element)
}

// Size returns the number of cached fingerprints.
func (d *Detector) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}

// evictLocked removes entries outside the time window, then enforces the
// cache size bound by dropping the least-recently-seen entries. Caller
// must hold d.mu.
func (d *Detector) evictLocked() {
	cutoff := d.now().Add(-d.timeWindow)
	for e := d.order.Back(); e != nil; {
		prev := e.Prev()
		entry := e.Value.(*cacheEntry)
		if entry.timestamp.Before(cutoff) {
			d.order.Remove(e)
			delete(d.index, entry.hash)
		}
		e = prev
	}
	for d.order.Len() > d.cacheSize {
		oldest := d.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		d.order.Remove(oldest)
		delete(d.index, entry.hash)
	}
}
