package stage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scenemcp/internal/scene/scenetest"
)

var errDiskFull = errors.New("disk full")

func register(t *testing.T, r *Registry, path string) (Handle, *scenetest.Stage) {
	t.Helper()
	st := scenetest.NewStage(path)
	return r.Register(context.Background(), path, st), st
}

// frozenClock returns the same instant forever, so ordering relies on the access sequence.
func frozenClock() func() time.Time {
	now := time.Unix(1700000000, 0)
	return func() time.Time { return now }
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	h, st := register(t, r, "/scenes/a.usda")

	assert.NotEmpty(t, h)

	doc, err := r.Get(h)
	require.NoError(t, err)
	assert.Same(t, st, doc)

	path, err := r.SourcePath(h)
	require.NoError(t, err)
	assert.Equal(t, "/scenes/a.usda", path)

	assert.False(t, r.IsModified(h))
	assert.Equal(t, 1, r.Len())
}

func TestUnknownHandle(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrHandleNotFound)

	_, err = r.SourcePath("nope")
	assert.ErrorIs(t, err, ErrHandleNotFound)

	_, err = r.Save(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrHandleNotFound)

	assert.False(t, r.MarkModified("nope"))
	assert.False(t, r.IsModified("nope"))
	assert.False(t, r.Unregister(context.Background(), "nope", true))
}

func TestHandlesAreUnique(t *testing.T) {
	r := NewRegistry(WithMaxEntries(1))
	seen := map[Handle]bool{}
	for i := 0; i < 50; i++ {
		h, _ := register(t, r, "/same.usda")
		assert.False(t, seen[h], "handle reused")
		seen[h] = true
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(WithMaxEntries(2), WithClock(frozenClock()))

	a, stA := register(t, r, "/a.usda")
	require.True(t, r.MarkModified(a))
	b, stB := register(t, r, "/b.usda")
	c, stC := register(t, r, "/c.usda")

	_, err := r.Get(a)
	assert.ErrorIs(t, err, ErrHandleNotFound)
	assert.Equal(t, []string{"flush", "close"}, stA.Calls(), "modified victim is flushed, then closed")

	for _, h := range []Handle{b, c} {
		_, err := r.Get(h)
		assert.NoError(t, err)
	}
	assert.Zero(t, stB.Closes())
	assert.Zero(t, stC.Closes())
	assert.Equal(t, 2, r.Len())
}

func TestGetRefreshesRecency(t *testing.T) {
	r := NewRegistry(WithMaxEntries(2), WithClock(frozenClock()))

	a, _ := register(t, r, "/a.usda")
	b, stB := register(t, r, "/b.usda")

	_, err := r.Get(a)
	require.NoError(t, err)

	register(t, r, "/c.usda")

	_, err = r.Get(a)
	assert.NoError(t, err)
	_, err = r.Get(b)
	assert.ErrorIs(t, err, ErrHandleNotFound)
	assert.Zero(t, stB.Flushes(), "unmodified victim is not flushed")
	assert.Equal(t, 1, stB.Closes())
}

func TestCapacityOneKeepsNewest(t *testing.T) {
	r := NewRegistry(WithMaxEntries(0))
	assert.Equal(t, 1, r.MaxEntries())

	register(t, r, "/a.usda")
	b, _ := register(t, r, "/b.usda")

	assert.Equal(t, []Handle{b}, r.Stats().Handles)
}

func TestEvictionFlushFailureStillCloses(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRegistry(WithMaxEntries(1), WithLogger(zap.New(core)))

	a, stA := register(t, r, "/a.usda")
	r.MarkModified(a)
	stA.FailFlush(errDiskFull)

	register(t, r, "/b.usda")

	assert.Equal(t, 1, stA.Flushes())
	assert.Equal(t, 1, stA.Closes())
	_, err := r.Get(a)
	assert.ErrorIs(t, err, ErrHandleNotFound)

	entries := logs.FilterField(zap.String("handle", a.String())).All()
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[0].Message, "Failed to save stage")
}

func TestEvictionIgnoresCallerCancellation(t *testing.T) {
	r := NewRegistry(WithMaxEntries(1))
	a, stA := register(t, r, "/a.usda")
	r.MarkModified(a)

	var sawCancelled atomic.Bool
	stA.OnFlush(func(ctx context.Context) error {
		sawCancelled.Store(ctx.Err() != nil)
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Register(ctx, "/b.usda", scenetest.NewStage("/b.usda"))

	assert.Equal(t, 1, stA.Flushes())
	assert.False(t, sawCancelled.Load())
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()

	t.Run("saves modified", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)

		assert.True(t, r.Unregister(ctx, h, true))
		assert.Equal(t, []string{"flush", "close"}, st.Calls())
		assert.False(t, r.Unregister(ctx, h, true))
	})

	t.Run("discards when asked", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)

		assert.True(t, r.Unregister(ctx, h, false))
		assert.Zero(t, st.Flushes())
		assert.Equal(t, 1, st.Closes())
	})

	t.Run("skips flush when clean", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")

		assert.True(t, r.Unregister(ctx, h, true))
		assert.Zero(t, st.Flushes())
		assert.Equal(t, 1, st.Closes())
	})

	t.Run("flush failure still removes", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)
		st.FailFlush(errDiskFull)

		assert.True(t, r.Unregister(ctx, h, true))
		assert.Equal(t, 1, st.Closes())
		assert.Zero(t, r.Len())
	})
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("clean stage is not flushed", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")

		saved, err := r.Save(ctx, h)
		require.NoError(t, err)
		assert.False(t, saved)
		assert.Zero(t, st.Flushes())
	})

	t.Run("modified stage is flushed and cleared", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)

		saved, err := r.Save(ctx, h)
		require.NoError(t, err)
		assert.True(t, saved)
		assert.Equal(t, 1, st.Flushes())
		assert.False(t, r.IsModified(h))
	})

	t.Run("failure keeps modified", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)
		st.FailFlush(errDiskFull)

		saved, err := r.Save(ctx, h)
		assert.False(t, saved)

		var ferr *FlushError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, h, ferr.Handle)
		assert.Equal(t, "/a.usda", ferr.SourcePath)
		assert.ErrorIs(t, err, errDiskFull)
		assert.True(t, r.IsModified(h))
	})

	t.Run("mutation during flush keeps modified", func(t *testing.T) {
		r := NewRegistry()
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)
		st.OnFlush(func(context.Context) error {
			r.MarkModified(h)
			return nil
		})

		saved, err := r.Save(ctx, h)
		require.NoError(t, err)
		assert.True(t, saved)
		assert.True(t, r.IsModified(h))
	})

	t.Run("slow flush times out", func(t *testing.T) {
		r := NewRegistry(WithFlushTimeout(20 * time.Millisecond))
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)
		st.OnFlush(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		_, err := r.Save(ctx, h)
		assert.ErrorIs(t, err, resilience.ErrTimeout)
		assert.True(t, r.IsModified(h))
	})

	t.Run("open breaker fails fast", func(t *testing.T) {
		breaker := resilience.New("flush", resilience.Settings{
			ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 1 },
		})
		r := NewRegistry(WithBreaker(breaker))
		h, st := register(t, r, "/a.usda")
		r.MarkModified(h)
		st.FailFlush(errDiskFull)

		_, err := r.Save(ctx, h)
		require.ErrorIs(t, err, errDiskFull)

		st.FailFlush(nil)
		_, err = r.Save(ctx, h)
		assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
		assert.Equal(t, 1, st.Flushes())
		assert.True(t, r.IsModified(h))
	})
}

func TestSaveAndEvictNeverFlushConcurrently(t *testing.T) {
	r := NewRegistry(WithMaxEntries(1))
	h, st := register(t, r, "/a.usda")
	r.MarkModified(h)

	var inFlight, maxInFlight atomic.Int32
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	st.OnFlush(func(context.Context) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		entered <- struct{}{}
		<-release
		inFlight.Add(-1)
		return nil
	})

	saveDone := make(chan error, 1)
	go func() {
		_, err := r.Save(context.Background(), h)
		saveDone <- err
	}()
	<-entered

	evictDone := make(chan struct{})
	go func() {
		register(t, r, "/b.usda")
		close(evictDone)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-saveDone)
	<-evictDone

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, 1, st.Closes())
}

func TestSaveAfterConcurrentRelease(t *testing.T) {
	r := NewRegistry()
	h, st := register(t, r, "/a.usda")
	r.MarkModified(h)

	e := r.entries[h]
	r.Unregister(context.Background(), h, false)

	// Simulate a Save that read the entry before it was detached.
	e.flushMu.Lock()
	released := e.released
	e.flushMu.Unlock()
	assert.True(t, released)
	assert.Zero(t, st.Flushes())
}

func TestEvictAfterShrink(t *testing.T) {
	r := NewRegistry(WithMaxEntries(3), WithClock(frozenClock()))
	a, _ := register(t, r, "/a.usda")
	b, _ := register(t, r, "/b.usda")
	c, _ := register(t, r, "/c.usda")

	r.SetMaxEntries(1)
	assert.Equal(t, 3, r.Len(), "shrinking does not evict on its own")

	assert.Equal(t, 2, r.Evict(context.Background()))
	assert.Equal(t, []Handle{c}, r.Stats().Handles)

	for _, h := range []Handle{a, b} {
		_, err := r.Get(h)
		assert.ErrorIs(t, err, ErrHandleNotFound)
	}
	assert.Zero(t, r.Evict(context.Background()))
}

func TestLookup(t *testing.T) {
	r := NewRegistry(WithMaxEntries(2), WithClock(frozenClock()))
	a, _ := register(t, r, "/a.usda")
	register(t, r, "/b.usda")

	h, ok := r.Lookup("/a.usda")
	require.True(t, ok)
	assert.Equal(t, a, h)

	register(t, r, "/c.usda")
	_, ok = r.Lookup("/b.usda")
	assert.False(t, ok, "lookup refreshed /a.usda so /b.usda was evicted")

	r.Unregister(context.Background(), a, true)
	_, ok = r.Lookup("/a.usda")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	r := NewRegistry(WithMaxEntries(5), WithClock(func() time.Time { return clock }))

	a, _ := register(t, r, "/a.usda")
	b, _ := register(t, r, "/b.usda")
	r.MarkModified(b)
	_, _ = r.Get(a)

	s := r.Stats()
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 5, s.MaxEntries)
	assert.Equal(t, 1, s.ModifiedCount)
	assert.Equal(t, []Handle{b, a}, s.Handles, "least recently used first")
	require.Len(t, s.Entries, 2)
	assert.Equal(t, "/b.usda", s.Entries[0].SourcePath)
	assert.True(t, s.Entries[0].Modified)

	m := s.ToMap()
	assert.Equal(t, 2, m["count"])
	assert.Equal(t, []string{b.String(), a.String()}, m["handles"])
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry()
	a, stA := register(t, r, "/a.usda")
	_, stB := register(t, r, "/b.usda")
	r.MarkModified(a)

	assert.Equal(t, 2, r.CloseAll(context.Background()))
	assert.Zero(t, r.Len())
	assert.Equal(t, []string{"flush", "close"}, stA.Calls())
	assert.Equal(t, []string{"close"}, stB.Calls())
}

func TestOpenBreakerStillFlushesOnRemoval(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.New("stage-flush", resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})
	r := NewRegistry(WithMaxEntries(2), WithBreaker(breaker), WithClock(frozenClock()))

	good, stGood := register(t, r, "/good.usda")
	require.True(t, r.MarkModified(good))
	bad, stBad := register(t, r, "/bad.usda")
	require.True(t, r.MarkModified(bad))
	stBad.FailFlush(errDiskFull)
	for i := 0; i < 5; i++ {
		_, err := r.Save(ctx, bad)
		require.ErrorIs(t, err, errDiskFull)
	}
	require.Equal(t, resilience.StateOpen, breaker.State())

	// keep bad recent so good is the eviction victim
	_, err := r.Get(bad)
	require.NoError(t, err)
	register(t, r, "/third.usda")

	_, err = r.Get(good)
	require.ErrorIs(t, err, ErrHandleNotFound)
	assert.Equal(t, []string{"flush", "close"}, stGood.Calls())

	stBad.FailFlush(nil)
	assert.Equal(t, 2, r.CloseAll(ctx))
	calls := stBad.Calls()
	require.Len(t, calls, 7)
	assert.Equal(t, []string{"flush", "close"}, calls[5:])
}

func TestConcurrentUse(t *testing.T) {
	const maxEntries = 3
	r := NewRegistry(WithMaxEntries(maxEntries))
	ctx := context.Background()

	var mu sync.Mutex
	var stages []*scenetest.Stage
	handles := make(chan Handle, 256)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 30; i++ {
				path := fmt.Sprintf("/w%d/s%d.usda", w, i)
				st := scenetest.NewStage(path)
				mu.Lock()
				stages = append(stages, st)
				mu.Unlock()

				h := r.Register(ctx, path, st)
				select {
				case handles <- h:
				default:
				}

				select {
				case other := <-handles:
					if _, err := r.Get(other); err == nil {
						r.MarkModified(other)
					}
					if i%3 == 0 {
						_, _ = r.Save(ctx, other)
					}
					if i%5 == 0 {
						r.Unregister(ctx, other, true)
					}
				default:
				}

				assert.LessOrEqual(t, r.Len(), maxEntries)
			}
		}(w)
	}
	wg.Wait()

	s := r.Stats()
	assert.LessOrEqual(t, s.Count, maxEntries)

	live := map[string]bool{}
	for _, e := range s.Entries {
		live[e.SourcePath] = true
	}
	for _, st := range stages {
		if live[st.Path()] {
			assert.Zero(t, st.Closes(), st.Path())
		} else {
			assert.Equal(t, 1, st.Closes(), st.Path())
		}
	}
}
