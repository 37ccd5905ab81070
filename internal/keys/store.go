package keys

import "context"

// Snapshot is the persistence contract for the credential collection. There
// is deliberately no indexed update: callers load the full collection, mutate
// in memory, and save the full collection back. The full-replace discipline
// avoids partial-write corruption at the cost of O(n) per mutation, which is
// acceptable for the expected collection sizes (tens to low thousands).
//
// Load removes any credential whose expiry has passed, persists the pruned
// set, and returns only live credentials in stored order. A missing backing
// store is initialized to an empty collection. Save must be atomic from the
// caller's perspective: concurrent readers never observe a partial write.
type Snapshot interface {
	Load(ctx context.Context) ([]Credential, error)
	Save(ctx context.Context, creds []Credential) error
}
