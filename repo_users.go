package auth

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// handleRe accepts bare handles; fullHandleRe additionally accepts the
// @handle@host form used across the federation.
var (
	handleRe     = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
	fullHandleRe = regexp.MustCompile(`^@?([A-Za-z0-9_]{3,32})(?:@([A-Za-z0-9.\-]+))?$`)
)

// CreateLocalUser carries everything needed to provision a local
// account in one transaction.
type CreateLocalUser struct {
	ID            ID
	Email         string
	PasswordHash  string
	EmailVerified bool
	PublicKey     string
	PrivateKey    string
}

type Users interface {
	CreateLocal(ctx context.Context, params CreateLocalUser) (*User, error)
	CreateLocalTx(ctx context.Context, tx bun.IDB, params CreateLocalUser) (*User, error)

	GetByID(ctx context.Context, id ID) (*User, error)
	GetByHandle(ctx context.Context, handle string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	GetCredential(ctx context.Context, userID ID) (*Credential, error)
	GetCredentialTx(ctx context.Context, tx bun.IDB, userID ID) (*Credential, error)
	EmailInUse(ctx context.Context, tx bun.IDB, email string, excluding ID) (bool, error)
	UpdateEmailTx(ctx context.Context, tx bun.IDB, userID ID, email string, verified bool) error
	ResetPassword(ctx context.Context, userID ID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, userID ID, passwordHash string) error

	ClaimHandle(ctx context.Context, userID ID, handle string) (*User, error)
	Suspend(ctx context.Context, userID ID, at time.Time) error

	LocalHost(ctx context.Context) (*Host, error)
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) CreateLocal(ctx context.Context, params CreateLocalUser) (*User, error) {
	var user *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		user, txErr = a.CreateLocalTx(ctx, tx, params)
		return txErr
	})
	return user, err
}

func (a *users) CreateLocalTx(ctx context.Context, tx bun.IDB, params CreateLocalUser) (*User, error) {
	host, err := a.localHostTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	if params.ID.IsZero() {
		params.ID = NewID()
	}

	user := &User{
		ID:     params.ID,
		HostID: host.ID,
		Host:   host,
	}

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create user")
	}

	cred := &Credential{
		UserID:        user.ID,
		Email:         params.Email,
		PasswordHash:  params.PasswordHash,
		EmailVerified: params.EmailVerified,
	}

	if _, err := tx.NewInsert().Model(cred).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create credential").
			WithMetadata(map[string]any{"user_id": user.ID.String()})
	}

	if params.PublicKey != "" || params.PrivateKey != "" {
		key := &UserKey{
			UserID:     user.ID,
			PublicKey:  params.PublicKey,
			PrivateKey: params.PrivateKey,
		}
		if _, err := tx.NewInsert().Model(key).Exec(ctx); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "could not store user key pair")
		}
	}

	return user, nil
}

func (a *users) GetByID(ctx context.Context, id ID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Host").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found", errors.CategoryNotFound).
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}

	return record, nil
}

// GetByHandle resolves a bare or @handle@host handle. Lookups are
// case-insensitive; a missing host part means the local host.
func (a *users) GetByHandle(ctx context.Context, handle string) (*User, error) {
	match := fullHandleRe.FindStringSubmatch(strings.TrimSpace(handle))
	if match == nil {
		return nil, ErrInvalidHandle
	}

	name, host := match[1], match[2]
	if host == "" {
		host = LocalHostFQDN
	}

	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Host").
		Where("lower(?TableAlias.handle) = lower(?)", name).
		Where("lower(host.fqdn) = lower(?)", host).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found", errors.CategoryNotFound).
				WithMetadata(map[string]any{"handle": handle})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user by handle")
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	cred := &Credential{}
	err := a.db.NewSelect().
		Model(cred).
		Relation("User").
		Relation("User.Host").
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found", errors.CategoryNotFound).
				WithMetadata(map[string]any{"email": email})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user by email")
	}

	return cred.User, nil
}

func (a *users) GetCredential(ctx context.Context, userID ID) (*Credential, error) {
	return a.GetCredentialTx(ctx, a.db, userID)
}

func (a *users) GetCredentialTx(ctx context.Context, tx bun.IDB, userID ID) (*Credential, error) {
	record := &Credential{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("credential not found", errors.CategoryNotFound).
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve credential")
	}

	return record, nil
}

// EmailInUse reports whether another account already holds the email.
func (a *users) EmailInUse(ctx context.Context, tx bun.IDB, email string, excluding ID) (bool, error) {
	if tx == nil {
		tx = a.db
	}

	count, err := tx.NewSelect().
		Model((*Credential)(nil)).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.user_id != ?", excluding).
		Count(ctx)

	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check email usage")
	}

	return count > 0, nil
}

func (a *users) UpdateEmailTx(ctx context.Context, tx bun.IDB, userID ID, email string, verified bool) error {
	if tx == nil {
		tx = a.db
	}

	res, err := tx.NewUpdate().
		Model((*Credential)(nil)).
		Set("email = ?", email).
		Set("is_email_verified = ?", verified).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update email")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errors.New("credential not found", errors.CategoryNotFound).
			WithMetadata(map[string]any{"user_id": userID.String()})
	}

	return nil
}

func (a *users) ResetPassword(ctx context.Context, userID ID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, userID, passwordHash)
}

// ResetPasswordTx installs a new hash and marks the email verified:
// completing a reset proves control of the mailbox.
func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, userID ID, passwordHash string) error {
	res, err := tx.NewUpdate().
		Model((*Credential)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("is_email_verified = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to reset password")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errors.New("credential not found", errors.CategoryNotFound).
			WithMetadata(map[string]any{"user_id": userID.String()})
	}

	return nil
}

// ClaimHandle sets the handle exactly once. The update is conditional
// on handle IS NULL so concurrent claims cannot both win.
func (a *users) ClaimHandle(ctx context.Context, userID ID, handle string) (*User, error) {
	if !handleRe.MatchString(handle) {
		return nil, ErrInvalidHandle
	}

	taken, err := a.handleTaken(ctx, handle)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrHandleAlreadyClaimed
	}

	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("handle = ?", handle).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Where("handle IS NULL").
		Exec(ctx)

	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "failed to claim handle")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrHandleAlreadyClaimed
	}

	return a.GetByID(ctx, userID)
}

func (a *users) handleTaken(ctx context.Context, handle string) (bool, error) {
	count, err := a.db.NewSelect().
		Model((*User)(nil)).
		Join("JOIN hosts AS hst ON hst.id = usr.host_id").
		Where("lower(?TableAlias.handle) = lower(?)", handle).
		Where("hst.fqdn = ?", LocalHostFQDN).
		Count(ctx)

	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check handle usage")
	}

	return count > 0, nil
}

func (a *users) Suspend(ctx context.Context, userID ID, at time.Time) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("suspended_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to suspend user")
	}

	return nil
}

func (a *users) LocalHost(ctx context.Context) (*Host, error) {
	return a.localHostTx(ctx, a.db)
}

// localHostTx fetches the local host row, seeding it on first use.
func (a *users) localHostTx(ctx context.Context, tx bun.IDB) (*Host, error) {
	host := &Host{}
	err := tx.NewSelect().
		Model(host).
		Where("?TableAlias.fqdn = ?", LocalHostFQDN).
		Limit(1).
		Scan(ctx)

	if err == nil {
		return host, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve local host")
	}

	host = &Host{ID: NewID(), FQDN: LocalHostFQDN}
	if _, err := tx.NewInsert().Model(host).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to seed local host")
	}

	return host, nil
}
