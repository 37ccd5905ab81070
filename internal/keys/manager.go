package keys

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// recentActivityLimit bounds the recent_activity list in usage statistics.
const recentActivityLimit = 10

// Manager is the admission gate and admin surface over an injected Snapshot
// store. A single mutex serializes every load-mutate-save cycle, so two
// concurrent admissions against the same key can never both pass a limit of
// one: the quota check and the increment are atomic with respect to each
// other.
type Manager struct {
	mu    sync.Mutex
	store Snapshot
	now   func() time.Time
}

// NewManager creates a Manager over the given store.
func NewManager(store Snapshot) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Admit validates key against the store and, on success, increments its usage
// counter, stamps lastUsed, and persists the collection before returning the
// Grant. Quota rejections never increment. Store failures propagate rather
// than degrade to an empty collection: a broken store must not admit or
// silently drop metering.
func (m *Manager) Admit(ctx context.Context, key string) (*Grant, error) {
	if key == "" {
		return nil, &Error{Kind: KindMissingKey, Message: "no api key in request"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Expired keys were pruned at load, so a stale key falls through to the
	// not-found case here, indistinguishable from one that never existed.
	i := findKey(creds, key)
	if i < 0 || creds[i].Status == StatusInactive {
		return nil, &Error{Kind: KindInvalidKey, Message: "unknown, expired, or inactive api key"}
	}

	if creds[i].Exhausted() {
		return nil, &Error{
			Kind:    KindQuotaExceeded,
			Message: "usage limit exceeded",
			Limit:   creds[i].Limit,
			Used:    creds[i].Used,
		}
	}

	now := m.now()
	creds[i].Used++
	creds[i].LastUsed = &now
	if err := m.store.Save(ctx, creds); err != nil {
		return nil, err
	}

	return &Grant{
		Key:       creds[i].Key,
		Owner:     creds[i].Owner,
		Used:      creds[i].Used,
		Limit:     creds[i].Limit,
		Remaining: creds[i].Limit - creds[i].Used,
	}, nil
}

// Authorize checks key against the store for admin access. It applies no
// quota logic and increments nothing.
func (m *Manager) Authorize(ctx context.Context, key string) (*Credential, error) {
	if key == "" {
		return nil, &Error{Kind: KindAdminRequired, Message: "no admin api key in request"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := findKey(creds, key)
	if i < 0 || !creds[i].IsAdmin() {
		return nil, &Error{Kind: KindAdminDenied, Message: "admin role required"}
	}
	c := creds[i]
	return &c, nil
}

// CreateParams are the inputs for issuing a credential. Key is normally left
// empty so a fresh token is generated; the raw-create path may supply one
// explicitly.
type CreateParams struct {
	Key           string
	Owner         string
	Limit         int64
	Role          string
	ExpiresInDays *int
}

// Create issues a new credential. Owner and a positive Limit are required.
// A caller-supplied key that already exists fails with DuplicateKey; a
// generated key is collision-checked against the live collection.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*Credential, error) {
	if p.Owner == "" || p.Limit <= 0 {
		return nil, &Error{Kind: KindValidation, Message: "Proprietário e limite são obrigatórios"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	key := p.Key
	if key == "" {
		key, err = generateKey(creds)
		if err != nil {
			return nil, err
		}
	} else if findKey(creds, key) >= 0 {
		return nil, &Error{Kind: KindDuplicateKey, Message: "api key already exists"}
	}

	now := m.now()
	cred := Credential{
		Key:       key,
		Owner:     p.Owner,
		Limit:     p.Limit,
		Used:      0,
		Status:    StatusActive,
		Role:      p.Role,
		CreatedAt: now,
	}
	if p.ExpiresInDays != nil {
		expiry := now.AddDate(0, 0, *p.ExpiresInDays)
		cred.ExpiresAt = &expiry
	}

	creds = append(creds, cred)
	if err := m.store.Save(ctx, creds); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Patch is a partial credential update; nil fields are left untouched.
type Patch struct {
	Limit  *int64
	Used   *int64
	Status *Status
}

// Update applies a partial update to the credential identified by key.
func (m *Manager) Update(ctx context.Context, key string, patch Patch) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := findKey(creds, key)
	if i < 0 {
		return nil, &Error{Kind: KindNotFound, Message: "api key not found"}
	}

	if patch.Limit != nil {
		if *patch.Limit <= 0 {
			return nil, &Error{Kind: KindValidation, Message: "Limite deve ser maior que zero"}
		}
		creds[i].Limit = *patch.Limit
	}
	if patch.Used != nil {
		if *patch.Used < 0 {
			return nil, &Error{Kind: KindValidation, Message: "Uso não pode ser negativo"}
		}
		creds[i].Used = *patch.Used
	}
	if patch.Status != nil {
		if *patch.Status != StatusActive && *patch.Status != StatusInactive {
			return nil, &Error{Kind: KindValidation, Message: "Status inválido"}
		}
		creds[i].Status = *patch.Status
	}

	if err := m.store.Save(ctx, creds); err != nil {
		return nil, err
	}
	c := creds[i]
	return &c, nil
}

// Delete removes the credential identified by key. Removing a nonexistent
// key is reported as NotFound rather than silently ignored.
func (m *Manager) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	i := findKey(creds, key)
	if i < 0 {
		return &Error{Kind: KindNotFound, Message: "api key not found"}
	}
	creds = append(creds[:i], creds[i+1:]...)
	return m.store.Save(ctx, creds)
}

// ResetUsage zeroes the usage counter and clears lastUsed for key.
func (m *Manager) ResetUsage(ctx context.Context, key string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := findKey(creds, key)
	if i < 0 {
		return nil, &Error{Kind: KindNotFound, Message: "api key not found"}
	}
	creds[i].Used = 0
	creds[i].LastUsed = nil
	if err := m.store.Save(ctx, creds); err != nil {
		return nil, err
	}
	c := creds[i]
	return &c, nil
}

// List returns all live credentials in stored order.
func (m *Manager) List(ctx context.Context) ([]Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Load(ctx)
}

// Stats aggregates usage across the live collection: totals, the near-limit
// subset (>= 80% of quota), and the ten most recently used credentials.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	creds, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalKeys:      len(creds),
		KeysNearLimit:  []Credential{},
		RecentActivity: []Credential{},
	}
	for _, c := range creds {
		if c.Status == StatusActive {
			stats.ActiveKeys++
		}
		stats.TotalUsage += c.Used
		if c.NearLimit() {
			stats.KeysNearLimit = append(stats.KeysNearLimit, c)
		}
		if c.LastUsed != nil {
			stats.RecentActivity = append(stats.RecentActivity, c)
		}
	}

	sort.Slice(stats.RecentActivity, func(i, j int) bool {
		return stats.RecentActivity[i].LastUsed.After(*stats.RecentActivity[j].LastUsed)
	})
	if len(stats.RecentActivity) > recentActivityLimit {
		stats.RecentActivity = stats.RecentActivity[:recentActivityLimit]
	}
	return stats, nil
}

// EnsureAdmin guarantees a credential with the given key exists and carries
// the admin role, creating or promoting it as needed. Used by bootstrap paths
// so a fresh deployment has a way into the admin surface.
func (m *Manager) EnsureAdmin(ctx context.Context, key, owner string, limit int64) (*Credential, error) {
	if key == "" {
		return nil, &Error{Kind: KindValidation, Message: "Chave administrativa é obrigatória"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := findKey(creds, key); i >= 0 {
		if creds[i].Role != RoleAdmin {
			creds[i].Role = RoleAdmin
			if err := m.store.Save(ctx, creds); err != nil {
				return nil, err
			}
		}
		c := creds[i]
		return &c, nil
	}

	if owner == "" {
		owner = "admin"
	}
	if limit <= 0 {
		limit = 1_000_000
	}
	cred := Credential{
		Key:       key,
		Owner:     owner,
		Limit:     limit,
		Status:    StatusActive,
		Role:      RoleAdmin,
		CreatedAt: m.now(),
	}
	creds = append(creds, cred)
	if err := m.store.Save(ctx, creds); err != nil {
		return nil, err
	}
	return &cred, nil
}

func findKey(creds []Credential, key string) int {
	for i := range creds {
		if creds[i].Key == key {
			return i
		}
	}
	return -1
}

// generateKey mints a fresh sk_-prefixed random token, retrying on the
// (vanishingly unlikely) collision with an existing key.
func generateKey(existing []Credential) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		raw := make([]byte, 16)
		if _, err := rand.Read(raw); err != nil {
			return "", storeErr("generate api key", err)
		}
		key := "sk_" + hex.EncodeToString(raw)
		if findKey(existing, key) < 0 {
			return key, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique api key")
}
