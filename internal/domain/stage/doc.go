// Package stage holds the registry of open stages and its maintenance scheduler.
//
// The registry is a bounded LRU cache of scene documents keyed by opaque
// handles. It tracks unsaved changes per handle and guarantees that a
// modified document is flushed (or the failure logged) before it is closed,
// whatever removes it: an explicit close, capacity eviction, or shutdown.
//
// Example Usage:
//
//	reg := stage.NewRegistry(stage.WithMaxEntries(10), stage.WithLogger(logger))
//	h := reg.Register(ctx, path, doc)
//	doc, err := reg.Get(h)
//	reg.MarkModified(h)
//	saved, err := reg.Save(ctx, h)
//	reg.Unregister(ctx, h, true)
package stage
