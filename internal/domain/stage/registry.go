package stage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/shared/id"
)

const (
	DefaultMaxEntries   = 10
	DefaultFlushTimeout = 30 * time.Second
)

// ErrHandleNotFound is returned for handles that were never issued or were released.
var ErrHandleNotFound = errors.New("stage handle not found")

// Handle is an opaque stage identifier. Handles are never reused.
type Handle string

func (h Handle) String() string { return string(h) }

// FlushError reports a failed write of a registered stage.
type FlushError struct {
	Handle     Handle
	SourcePath string
	Err        error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("failed to save stage %s (%s): %v", e.Handle, e.SourcePath, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

type entry struct {
	handle     Handle
	doc        scene.Stage
	sourcePath string
	lastAccess time.Time
	seq        uint64
	modified   bool
	version    uint64

	// flushMu serializes writes of this document; released is set under it
	// once the document has been closed.
	flushMu  sync.Mutex
	released bool
}

// victim is an entry detached from the map, waiting to be flushed and closed.
type victim struct {
	e        *entry
	modified bool
}

// Registry owns every open stage, bounded by maxEntries with least recently
// used eviction. A modified stage is flushed before it is closed, whether it
// leaves through Unregister, eviction, or CloseAll.
//
// The lock guards bookkeeping only; flushes and closes run after the entry
// has been detached from the map, before the removing call returns.
type Registry struct {
	mu         sync.Mutex
	entries    map[Handle]*entry
	byPath     map[string]Handle
	seq        uint64
	maxEntries int

	flushTimeout time.Duration
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	breaker      *resilience.Breaker
	now          func() time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithMaxEntries sets the capacity; values below 1 become 1.
func WithMaxEntries(n int) Option {
	return func(r *Registry) { r.maxEntries = clampCapacity(n) }
}

// WithFlushTimeout bounds every flush
func WithFlushTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.flushTimeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics publishes occupancy, evictions and flush outcomes
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithBreaker fails explicit saves fast while the engine keeps failing.
// Stages leaving the registry are always flushed regardless of its state.
func WithBreaker(b *resilience.Breaker) Option {
	return func(r *Registry) { r.breaker = b }
}

// WithClock overrides the wall clock used for last-access times
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:      make(map[Handle]*entry),
		byPath:       make(map[string]Handle),
		maxEntries:   DefaultMaxEntries,
		flushTimeout: DefaultFlushTimeout,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register takes ownership of doc and returns a fresh handle. If the
// registry is over capacity afterwards, the least recently used entries
// are evicted before Register returns; the new entry is never one of them.
func (r *Registry) Register(ctx context.Context, sourcePath string, doc scene.Stage) Handle {
	h := Handle(id.NewHandle())

	r.mu.Lock()
	r.seq++
	r.entries[h] = &entry{
		handle:     h,
		doc:        doc,
		sourcePath: sourcePath,
		lastAccess: r.now(),
		seq:        r.seq,
	}
	r.byPath[sourcePath] = h
	victims := r.detachOldestLocked()
	r.publishLocked()
	r.mu.Unlock()

	r.logger.Debug("Stage registered", zap.String("handle", h.String()), zap.String("source_path", sourcePath))

	r.evicted(ctx, victims)
	return h
}

// Get returns the document for h and marks it most recently used.
func (r *Registry) Get(h Handle) (scene.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandleNotFound, h)
	}
	r.touchLocked(e)
	return e.doc, nil
}

// SourcePath returns the document path registered for h.
func (r *Registry) SourcePath(h Handle) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrHandleNotFound, h)
	}
	return e.sourcePath, nil
}

// Lookup finds the most recently registered handle for sourcePath and
// marks it most recently used.
func (r *Registry) Lookup(sourcePath string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.byPath[sourcePath]
	if !ok {
		return "", false
	}
	r.touchLocked(r.entries[h])
	return h, true
}

// MarkModified flags h as having unsaved changes. It reports false if h is
// no longer registered.
func (r *Registry) MarkModified(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h]
	if !ok {
		return false
	}
	e.modified = true
	e.version++
	r.publishLocked()
	return true
}

// IsModified reports whether h has unsaved changes
func (r *Registry) IsModified(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h]
	return ok && e.modified
}

// Save flushes h if it is modified and reports whether a flush happened.
// A mutation that lands while the flush is running keeps the entry modified.
func (r *Registry) Save(ctx context.Context, h Handle) (bool, error) {
	r.mu.Lock()
	e, ok := r.entries[h]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrHandleNotFound, h)
	}
	if !e.modified {
		r.mu.Unlock()
		return false, nil
	}
	version := e.version
	r.mu.Unlock()

	e.flushMu.Lock()
	if e.released {
		e.flushMu.Unlock()
		return false, fmt.Errorf("%w: %s was closed during save", ErrHandleNotFound, h)
	}
	err := r.flush(ctx, e, true)
	e.flushMu.Unlock()
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	if cur, ok := r.entries[h]; ok && cur == e && e.version == version {
		e.modified = false
	}
	r.publishLocked()
	r.mu.Unlock()

	r.logger.Info("Stage saved", zap.String("handle", h.String()), zap.String("source_path", e.sourcePath))
	return true, nil
}

// Unregister removes h, flushing it first when saveIfModified is set and it
// has unsaved changes, then closes the document. It reports false if h was
// not registered.
func (r *Registry) Unregister(ctx context.Context, h Handle, saveIfModified bool) bool {
	r.mu.Lock()
	e, ok := r.entries[h]
	if !ok {
		r.mu.Unlock()
		return false
	}
	v := r.detachLocked(e)
	r.publishLocked()
	r.mu.Unlock()

	r.release(ctx, v, saveIfModified)
	r.logger.Debug("Stage unregistered", zap.String("handle", h.String()), zap.Bool("was_modified", v.modified))
	return true
}

// Evict removes least recently used entries until the registry is within
// capacity and returns how many were removed.
func (r *Registry) Evict(ctx context.Context) int {
	r.mu.Lock()
	victims := r.detachOldestLocked()
	r.publishLocked()
	r.mu.Unlock()

	r.evicted(ctx, victims)
	return len(victims)
}

// CloseAll releases every entry, flushing modified ones, and returns the count.
func (r *Registry) CloseAll(ctx context.Context) int {
	r.mu.Lock()
	victims := make([]victim, 0, len(r.entries))
	for _, e := range r.sortedLocked() {
		victims = append(victims, r.detachLocked(e))
	}
	r.publishLocked()
	r.mu.Unlock()

	for _, v := range victims {
		r.release(ctx, v, true)
	}
	return len(victims)
}

// SetMaxEntries changes the capacity. Excess entries are evicted by the
// next Register or Evict.
func (r *Registry) SetMaxEntries(n int) {
	r.mu.Lock()
	r.maxEntries = clampCapacity(n)
	r.mu.Unlock()
}

// MaxEntries returns the capacity
func (r *Registry) MaxEntries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxEntries
}

// Len returns the number of registered stages
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) touchLocked(e *entry) {
	r.seq++
	e.seq = r.seq
	e.lastAccess = r.now()
}

// detachLocked removes e from the maps; the caller must release it.
func (r *Registry) detachLocked(e *entry) victim {
	delete(r.entries, e.handle)
	if r.byPath[e.sourcePath] == e.handle {
		delete(r.byPath, e.sourcePath)
	}
	return victim{e: e, modified: e.modified}
}

func (r *Registry) detachOldestLocked() []victim {
	excess := len(r.entries) - r.maxEntries
	if excess <= 0 {
		return nil
	}
	victims := make([]victim, 0, excess)
	for _, e := range r.sortedLocked()[:excess] {
		victims = append(victims, r.detachLocked(e))
	}
	return victims
}

// sortedLocked orders entries least recently used first. The logical
// access sequence breaks ties between equal wall-clock times.
func (r *Registry) sortedLocked() []*entry {
	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	return all
}

func (r *Registry) publishLocked() {
	if r.metrics == nil {
		return
	}
	modified := 0
	for _, e := range r.entries {
		if e.modified {
			modified++
		}
	}
	r.metrics.SetStages(len(r.entries), modified)
}

func (r *Registry) evicted(ctx context.Context, victims []victim) {
	if len(victims) == 0 {
		return
	}
	for _, v := range victims {
		r.logger.Info("Evicting least recently used stage",
			zap.String("handle", v.e.handle.String()),
			zap.String("source_path", v.e.sourcePath),
			zap.Bool("modified", v.modified),
			zap.Time("last_access", v.e.lastAccess))
		r.release(ctx, v, true)
	}
	r.metrics.AddEvictions(len(victims))
}

// release flushes (if asked and modified) and closes a detached entry.
// A failed flush is logged and never prevents the close.
func (r *Registry) release(ctx context.Context, v victim, save bool) {
	// The caller going away must not abandon unsaved work.
	ctx = context.WithoutCancel(ctx)

	v.e.flushMu.Lock()
	defer v.e.flushMu.Unlock()

	if save && v.modified {
		if err := r.flush(ctx, v.e, false); err != nil {
			r.logger.Warn("Failed to save stage before closing; changes are lost",
				zap.String("handle", v.e.handle.String()),
				zap.String("source_path", v.e.sourcePath),
				zap.Error(err))
		}
	}
	if err := v.e.doc.Close(); err != nil {
		r.logger.Warn("Failed to close stage",
			zap.String("handle", v.e.handle.String()),
			zap.Error(err))
	}
	v.e.released = true
}

// flush writes e's document; the caller holds e.flushMu. Only guarded
// flushes go through the breaker, so a closing document is always attempted.
func (r *Registry) flush(ctx context.Context, e *entry, guarded bool) error {
	write := func() error {
		return resilience.CallWithTimeout(ctx, r.flushTimeout, e.doc.Flush)
	}
	var err error
	if guarded {
		err = r.breaker.Do(write)
	} else {
		err = write()
	}
	r.metrics.RecordFlush(err)
	if err != nil {
		return &FlushError{Handle: e.handle, SourcePath: e.sourcePath, Err: err}
	}
	return nil
}

func clampCapacity(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
