package id

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestID(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()

	assert.True(t, strings.HasPrefix(a.String(), "req_"))
	assert.Less(t, a.String(), b.String())

	parsed, err := ParseRequestID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestParseRequestID(t *testing.T) {
	for _, s := range []string{"", "req_", "req_nope", "hello"} {
		_, err := ParseRequestID(s)
		assert.Error(t, err, s)
	}
}

func TestRequestIDTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts := NewRequestID().Time()
	assert.True(t, ts.After(before))
	assert.True(t, RequestID("req_bogus").Time().IsZero())
}

func TestConcurrentRequestIDs(t *testing.T) {
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[RequestID]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				rid := NewRequestID()
				mu.Lock()
				seen[rid] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestNewHandle(t *testing.T) {
	h := NewHandle()
	_, err := uuid.Parse(h)
	require.NoError(t, err)
	assert.NotEqual(t, h, NewHandle())
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	rid := NewRequestID()
	got, ok := FromContext(NewContext(context.Background(), rid))
	require.True(t, ok)
	assert.Equal(t, rid, got)

	_, ok = FromContext(NewContext(context.Background(), RequestID("caller-42")))
	assert.False(t, ok)
}
