package port

import "time"

// SummaryCache holds finished derived payloads keyed by address. Entries
// are inserted after a successful fetch+normalize+analyze cycle and
// evicted lazily on the next lookup past expiry. The check-then-insert
// access pattern carries no cross-request atomicity guarantee; a benign
// race between two concurrent misses only wastes one redundant fetch.
type SummaryCache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
}
