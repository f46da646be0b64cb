// Package id mints identifiers.
//
// Request ids are "req_" followed by a ULID, so ids sort by mint time and
// log lines from one process order correctly. Stage handles are random
// UUIDs and carry no meaning for callers.
package id

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RequestID identifies a single tool invocation.
type RequestID string

const requestPrefix = "req_"

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRequestID returns an id greater than every id minted before it in this
// process.
func NewRequestID() RequestID {
	mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	mu.Unlock()
	return RequestID(requestPrefix + u.String())
}

// ParseRequestID validates s and returns it as a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	if _, err := ulid.ParseStrict(strings.TrimPrefix(s, requestPrefix)); err != nil {
		return "", err
	}
	return RequestID(s), nil
}

func (r RequestID) String() string { return string(r) }

// Time is the millisecond at which r was minted.
func (r RequestID) Time() time.Time {
	u, err := ulid.Parse(strings.TrimPrefix(string(r), requestPrefix))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

type ctxKey struct{}

// NewContext attaches r to ctx.
func NewContext(ctx context.Context, r RequestID) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the request id carried by ctx. Ids that are not
// well formed are ignored.
func FromContext(ctx context.Context) (RequestID, bool) {
	r, ok := ctx.Value(ctxKey{}).(RequestID)
	if !ok {
		return "", false
	}
	if _, err := ParseRequestID(string(r)); err != nil {
		return "", false
	}
	return r, true
}

// NewHandle returns a fresh stage handle.
func NewHandle() string {
	return uuid.NewString()
}
