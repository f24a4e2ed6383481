package auth

import (
	"time"

	"github.com/uptrace/bun"
)

// LocalHostFQDN is the sentinel fqdn marking the local host. A user is
// local iff its host carries this value; only local users may
// authenticate, hold sessions, or change credentials.
const LocalHostFQDN = "."

// Host is a known instance, local or federated.
type Host struct {
	bun.BaseModel `bun:"table:hosts,alias:hst"`
	ID            ID         `bun:"id,pk" json:"id,omitempty"`
	FQDN          string     `bun:"fqdn,notnull,unique" json:"fqdn,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// User is the identity record. Handle stays NULL until claimed and is
// unique per host, case-insensitive.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            ID         `bun:"id,pk" json:"id,omitempty"`
	Handle        *string    `bun:"handle" json:"handle,omitempty"`
	HostID        ID         `bun:"host_id,notnull" json:"host_id,omitempty"`
	Host          *Host      `bun:"rel:belongs-to,join:host_id=id" json:"host,omitempty"`
	SuspendedAt   *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsLocal reports whether the user belongs to the local host. It
// requires the Host relation to be loaded.
func (u *User) IsLocal() bool {
	return u != nil && u.Host != nil && u.Host.FQDN == LocalHostFQDN
}

// IsActive reports whether the user carries no suspension or deletion
// marker.
func (u *User) IsActive() bool {
	return u != nil && u.SuspendedAt == nil && u.DeletedAt == nil
}

// Credential is the one-to-one authentication record of a local user.
// It is never exposed outside this package's flows.
type Credential struct {
	bun.BaseModel `bun:"table:user_credentials,alias:crd"`
	UserID        ID         `bun:"user_id,pk" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	EmailVerified bool       `bun:"is_email_verified,notnull" json:"is_email_verified,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserKey stores the signing key pair minted at registration. Key
// generation itself is a collaborator capability, not implemented here.
type UserKey struct {
	bun.BaseModel `bun:"table:user_keys,alias:key"`
	UserID        ID     `bun:"user_id,pk" json:"user_id,omitempty"`
	PublicKey     string `bun:"public_key,notnull" json:"public_key,omitempty"`
	PrivateKey    string `bun:"private_key,notnull" json:"-"`
}

// Session represents one authenticated device or browser. The opaque
// token is the primary lookup key. RevokedAt doubles as the expiry
// timestamp when a lifetime was requested at login; NULL means the
// session never expires. Rows are never hard-deleted.
type Session struct {
	bun.BaseModel `bun:"table:user_sessions,alias:ses"`
	Token         string     `bun:"token,pk" json:"-"`
	UserID        ID         `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	IP            string     `bun:"ip,nullzero" json:"ip,omitempty"`
	UserAgent     string     `bun:"user_agent,nullzero" json:"user_agent,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// RevokedBefore reports whether the session was revoked, or expired,
// at or before t.
func (s *Session) RevokedBefore(t time.Time) bool {
	return s != nil && s.RevokedAt != nil && !s.RevokedAt.After(t)
}
