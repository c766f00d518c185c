// Package server hosts the Fiber HTTP surface over a cache.Store: entry
// read/write routes under /cache, request-ID and logging middleware, and the
// /-/ diagnostics routes registered from the routes subpackage. Handlers take
// the store through the EntryStore interface so tests can inject fakes.
package server
