package keys

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "keys.json"))
	return NewManager(store)
}

func mustCreate(t *testing.T, m *Manager, p CreateParams) *Credential {
	t.Helper()
	cred, err := m.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return cred
}

func TestCreateGeneratesKey(t *testing.T) {
	m := newTestManager(t)

	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 100})
	if !strings.HasPrefix(cred.Key, "sk_") {
		t.Errorf("expected sk_ prefix, got %q", cred.Key)
	}
	if cred.Status != StatusActive {
		t.Errorf("expected active status, got %q", cred.Status)
	}
	if cred.Used != 0 {
		t.Errorf("expected zero usage, got %d", cred.Used)
	}
	if cred.LastUsed != nil {
		t.Error("expected nil lastUsed on a fresh credential")
	}
}

func TestCreateRequiresOwnerAndLimit(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Create(context.Background(), CreateParams{Limit: 10}); !IsKind(err, KindValidation) {
		t.Errorf("missing owner: expected validation error, got %v", err)
	}
	if _, err := m.Create(context.Background(), CreateParams{Owner: "alice"}); !IsKind(err, KindValidation) {
		t.Errorf("zero limit: expected validation error, got %v", err)
	}
	if _, err := m.Create(context.Background(), CreateParams{Owner: "alice", Limit: -5}); !IsKind(err, KindValidation) {
		t.Errorf("negative limit: expected validation error, got %v", err)
	}
}

func TestCreateDuplicateExplicitKey(t *testing.T) {
	m := newTestManager(t)
	mustCreate(t, m, CreateParams{Key: "sk_fixed", Owner: "alice", Limit: 10})

	_, err := m.Create(context.Background(), CreateParams{Key: "sk_fixed", Owner: "bob", Limit: 10})
	if !IsKind(err, KindDuplicateKey) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
}

func TestAdmitLifecycle(t *testing.T) {
	m := newTestManager(t)
	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 2})
	ctx := context.Background()

	g1, err := m.Admit(ctx, cred.Key)
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if g1.Used != 1 || g1.Remaining != 1 {
		t.Errorf("first admit: used=%d remaining=%d", g1.Used, g1.Remaining)
	}

	g2, err := m.Admit(ctx, cred.Key)
	if err != nil {
		t.Fatalf("second admit: %v", err)
	}
	if g2.Used != 2 || g2.Remaining != 0 {
		t.Errorf("second admit: used=%d remaining=%d", g2.Used, g2.Remaining)
	}

	_, err = m.Admit(ctx, cred.Key)
	if !IsKind(err, KindQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	var ke *Error
	if errors.As(err, &ke) && (ke.Limit != 2 || ke.Used != 2) {
		t.Errorf("quota error payload: limit=%d used=%d", ke.Limit, ke.Used)
	}

	// Rejection must not have incremented the counter.
	creds, _ := m.List(ctx)
	if creds[0].Used != 2 {
		t.Errorf("expected used=2 after rejection, got %d", creds[0].Used)
	}

	if _, err := m.ResetUsage(ctx, cred.Key); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := m.Admit(ctx, cred.Key); err != nil {
		t.Errorf("admit after reset: %v", err)
	}
}

func TestAdmitMissingKey(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Admit(context.Background(), ""); !IsKind(err, KindMissingKey) {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestAdmitUnknownKey(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Admit(context.Background(), "sk_nope"); !IsKind(err, KindInvalidKey) {
		t.Errorf("expected invalid key error, got %v", err)
	}
}

func TestAdmitInactiveKeyLooksUnknown(t *testing.T) {
	m := newTestManager(t)
	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 10})

	inactive := StatusInactive
	if _, err := m.Update(context.Background(), cred.Key, Patch{Status: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := m.Admit(context.Background(), cred.Key)
	if !IsKind(err, KindInvalidKey) {
		t.Errorf("expected invalid key error for inactive credential, got %v", err)
	}
}

func TestExpiresInDaysZeroIsImmediatelyExpired(t *testing.T) {
	m := newTestManager(t)
	days := 0
	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 10, ExpiresInDays: &days})

	if _, err := m.Admit(context.Background(), cred.Key); !IsKind(err, KindInvalidKey) {
		t.Errorf("expected invalid key error for expired credential, got %v", err)
	}

	// Lazy pruning removed it from the collection.
	creds, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(creds) != 0 {
		t.Errorf("expected expired credential pruned, found %d entries", len(creds))
	}
}

func TestConcurrentAdmissionsRespectLimit(t *testing.T) {
	m := newTestManager(t)
	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 1})

	const workers = 10
	var wg sync.WaitGroup
	admitted := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Admit(context.Background(), cred.Key); err == nil {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one admission with limit=1, got %d", count)
	}
}

func TestUpdateValidation(t *testing.T) {
	m := newTestManager(t)
	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 10})
	ctx := context.Background()

	bad := int64(0)
	if _, err := m.Update(ctx, cred.Key, Patch{Limit: &bad}); !IsKind(err, KindValidation) {
		t.Errorf("zero limit: expected validation error, got %v", err)
	}
	negative := int64(-1)
	if _, err := m.Update(ctx, cred.Key, Patch{Used: &negative}); !IsKind(err, KindValidation) {
		t.Errorf("negative used: expected validation error, got %v", err)
	}
	badStatus := Status("paused")
	if _, err := m.Update(ctx, cred.Key, Patch{Status: &badStatus}); !IsKind(err, KindValidation) {
		t.Errorf("bad status: expected validation error, got %v", err)
	}
	if _, err := m.Update(ctx, "sk_missing", Patch{}); !IsKind(err, KindNotFound) {
		t.Errorf("unknown key: expected not found, got %v", err)
	}

	newLimit := int64(50)
	updated, err := m.Update(ctx, cred.Key, Patch{Limit: &newLimit})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Limit != 50 {
		t.Errorf("expected limit 50, got %d", updated.Limit)
	}
}

func TestDeleteNotFound(t *testing.T) {
	m := newTestManager(t)
	if err := m.Delete(context.Background(), "sk_missing"); !IsKind(err, KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestResetClearsLastUsed(t *testing.T) {
	m := newTestManager(t)
	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 5})
	ctx := context.Background()

	if _, err := m.Admit(ctx, cred.Key); err != nil {
		t.Fatalf("admit: %v", err)
	}
	reset, err := m.ResetUsage(ctx, cred.Key)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.Used != 0 || reset.LastUsed != nil {
		t.Errorf("expected used=0 and nil lastUsed, got used=%d lastUsed=%v", reset.Used, reset.LastUsed)
	}
}

func TestStats(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	a := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 10})
	b := mustCreate(t, m, CreateParams{Owner: "bob", Limit: 2})
	mustCreate(t, m, CreateParams{Owner: "carol", Limit: 100})

	inactive := StatusInactive
	if _, err := m.Update(ctx, a.Key, Patch{Status: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// Push bob to 2/2, which is both an admission pair and a near-limit entry.
	for i := 0; i < 2; i++ {
		if _, err := m.Admit(ctx, b.Key); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalKeys != 3 {
		t.Errorf("total_keys=%d", stats.TotalKeys)
	}
	if stats.ActiveKeys != 2 {
		t.Errorf("active_keys=%d", stats.ActiveKeys)
	}
	if stats.TotalUsage != 2 {
		t.Errorf("total_usage=%d", stats.TotalUsage)
	}
	if len(stats.KeysNearLimit) != 1 || stats.KeysNearLimit[0].Owner != "bob" {
		t.Errorf("keys_near_limit=%+v", stats.KeysNearLimit)
	}
	if len(stats.RecentActivity) != 1 || stats.RecentActivity[0].Owner != "bob" {
		t.Errorf("recent_activity=%+v", stats.RecentActivity)
	}
}

func TestEnsureAdminCreatesAndPromotes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.EnsureAdmin(ctx, "sk_root", "", 0)
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if created.Role != RoleAdmin || created.Owner != "admin" || created.Limit != 1_000_000 {
		t.Errorf("bootstrap defaults not applied: %+v", created)
	}

	// Idempotent for an existing admin.
	again, err := m.EnsureAdmin(ctx, "sk_root", "other", 5)
	if err != nil {
		t.Fatalf("ensure admin twice: %v", err)
	}
	if again.Owner != "admin" {
		t.Errorf("expected existing credential untouched, got owner %q", again.Owner)
	}

	// Promotes an existing non-admin credential.
	regular := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 10})
	promoted, err := m.EnsureAdmin(ctx, regular.Key, "", 0)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.Role != RoleAdmin {
		t.Errorf("expected admin role after promotion, got %q", promoted.Role)
	}
}

func TestAuthorize(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Authorize(ctx, ""); !IsKind(err, KindAdminRequired) {
		t.Errorf("empty key: expected admin required, got %v", err)
	}

	regular := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 10})
	if _, err := m.Authorize(ctx, regular.Key); !IsKind(err, KindAdminDenied) {
		t.Errorf("non-admin key: expected admin denied, got %v", err)
	}

	admin := mustCreate(t, m, CreateParams{Owner: "root", Limit: 10, Role: RoleAdmin})
	cred, err := m.Authorize(ctx, admin.Key)
	if err != nil {
		t.Fatalf("authorize admin: %v", err)
	}
	if cred.Key != admin.Key {
		t.Errorf("expected credential %q, got %q", admin.Key, cred.Key)
	}
}

// Authorize never touches quota even for an exhausted admin credential.
func TestAuthorizeIgnoresQuota(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	admin := mustCreate(t, m, CreateParams{Owner: "root", Limit: 1, Role: RoleAdmin})
	if _, err := m.Admit(ctx, admin.Key); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, err := m.Authorize(ctx, admin.Key); err != nil {
		t.Errorf("expected authorize to ignore quota, got %v", err)
	}
	creds, _ := m.List(ctx)
	if creds[0].Used != 1 {
		t.Errorf("authorize must not increment usage, used=%d", creds[0].Used)
	}
}

// Guard against the clock being captured at construction instead of per call.
func TestAdmitStampsFreshLastUsed(t *testing.T) {
	m := newTestManager(t)
	base := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return base }
	cred := mustCreate(t, m, CreateParams{Owner: "alice", Limit: 5})

	later := base.Add(30 * time.Minute)
	m.now = func() time.Time { return later }
	if _, err := m.Admit(context.Background(), cred.Key); err != nil {
		t.Fatalf("admit: %v", err)
	}

	creds, _ := m.List(context.Background())
	if creds[0].LastUsed == nil || !creds[0].LastUsed.Equal(later) {
		t.Errorf("lastUsed=%v, want %v", creds[0].LastUsed, later)
	}
}
