package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type Sessions interface {
	Create(ctx context.Context, session *Session) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	GetUser(ctx context.Context, token string) (*User, error)
	Revoke(ctx context.Context, token string, at time.Time) error
}

type sessions struct {
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	return &sessions{db: db}
}

func (s *sessions) Create(ctx context.Context, session *Session) (*Session, error) {
	if _, err := s.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create session")
	}
	return session, nil
}

func (s *sessions) GetByToken(ctx context.Context, token string) (*Session, error) {
	record := &Session{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve session")
	}

	return record, nil
}

// GetUser loads the owning user of a live session, host relation
// included. Revoked and expired sessions behave as absent.
func (s *sessions) GetUser(ctx context.Context, token string) (*User, error) {
	record := &Session{}
	err := s.db.NewSelect().
		Model(record).
		Relation("User").
		Relation("User.Host").
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve session user")
	}

	if record.RevokedBefore(time.Now()) {
		return nil, ErrSessionNotFound
	}

	return record.User, nil
}

// Revoke stamps revoked_at. Rows already revoked or expired keep their
// original timestamp, which makes revocation idempotent and preserves
// the audit trail; rows are never hard-deleted.
func (s *sessions) Revoke(ctx context.Context, token string, at time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*Session)(nil)).
		Set("revoked_at = ?", at).
		Where("token = ?", token).
		Where("revoked_at IS NULL OR revoked_at > ?", at).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session")
	}

	return nil
}
