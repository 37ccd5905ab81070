// Package keys implements the API key admission subsystem: the durable
// credential store, the per-request admission gate that meters usage against
// a quota, and the admin CRUD surface.
//
// All mutation goes through Manager, which serializes every
// load-mutate-save cycle against the injected Snapshot store.
package keys

import "time"

// Status marks a credential as usable or blocked.
type Status string

// Credential status values. An inactive credential is rejected by the
// admission gate regardless of its remaining quota.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// RoleAdmin grants access to the admin surface.
const RoleAdmin = "admin"

// nearLimitRatio is the used/limit ratio at which a credential is reported
// as "near limit" in usage statistics.
const nearLimitRatio = 0.8

// Credential is an issued API key with its quota and usage counters.
// Key is the primary lookup value and is immutable once issued.
type Credential struct {
	Key       string     `json:"key"`
	Owner     string     `json:"owner"`
	Limit     int64      `json:"limit"`
	Used      int64      `json:"used"`
	Status    Status     `json:"status"`
	Role      string     `json:"role,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	LastUsed  *time.Time `json:"lastUsed"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the credential's expiry, if any, has passed.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Exhausted reports whether the usage counter has reached the quota ceiling.
func (c *Credential) Exhausted() bool {
	return c.Used >= c.Limit
}

// NearLimit reports whether the credential has consumed at least 80% of its
// quota.
func (c *Credential) NearLimit() bool {
	return float64(c.Used) >= float64(c.Limit)*nearLimitRatio
}

// IsAdmin reports whether the credential can access the admin surface.
func (c *Credential) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Stats aggregates usage across all live credentials.
type Stats struct {
	TotalKeys      int          `json:"total_keys"`
	ActiveKeys     int          `json:"active_keys"`
	TotalUsage     int64        `json:"total_usage"`
	KeysNearLimit  []Credential `json:"keys_near_limit"`
	RecentActivity []Credential `json:"recent_activity"`
}

// Grant is the credential context attached to a request after a successful
// admission. Used reflects the counter after the increment.
type Grant struct {
	Key       string `json:"key"`
	Owner     string `json:"owner"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
}
