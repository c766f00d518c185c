// Package cache implements a filesystem-backed TTL cache. Each entry lives in a
// single file named <name>.<format> inside the cache directory; the file content
// is the codec-encoded value and the file modification time is the instant the
// entry expires. Writes are staged under a random name, stamped, then renamed
// into place so readers only ever see a complete file or none at all. Expired
// files are left on disk and simply reported as absent.
package cache
