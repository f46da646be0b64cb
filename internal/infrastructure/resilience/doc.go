/*
Package resilience bounds calls into the scene engine.

# Overview

Two primitives guard stage flushes:

- Breaker: a three-state circuit breaker (Closed, Open, Half-Open) that
  fails calls fast while a dependency keeps failing.
- CallWithTimeout: runs a call with a deadline and returns when either
  the call or the deadline finishes.

# Usage

	breaker := resilience.New("stage-flush", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})

	err := breaker.Do(func() error {
		return resilience.CallWithTimeout(ctx, 30*time.Second, doc.Flush)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
