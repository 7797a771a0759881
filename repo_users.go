package idbridge

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const defaultQueryTimeout = 5 * time.Second

// userStore is the bun-backed UserStore. Every query runs under a deadline
// so a slow database never hangs a login.
type userStore struct {
	db      *bun.DB
	timeout time.Duration
	now     func() time.Time
}

var _ UserStore = (*userStore)(nil)

type UserStoreOption func(*userStore)

// WithQueryTimeout bounds every store call. Zero keeps the default.
func WithQueryTimeout(timeout time.Duration) UserStoreOption {
	return func(s *userStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewUserStore creates a UserStore backed by the given bun database. The
// users table must carry uniqueness constraints on external_id and email;
// the store reports violations as conflicts rather than hard failures.
func NewUserStore(db *bun.DB, opts ...UserStoreOption) UserStore {
	store := &userStore{
		db:      db,
		timeout: defaultQueryTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *userStore) FindByExternalID(ctx context.Context, externalID string) (*User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	user := &User{}
	err := s.db.NewSelect().
		Model(user).
		Where("?TableAlias.external_id = ?", externalID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreError(err, "select user by external id")
	}

	return user, nil
}

func (s *userStore) FindByID(ctx context.Context, id int64) (*User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	user := &User{}
	err := s.db.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreError(err, "select user by id")
	}

	return user, nil
}

// Create inserts the record and returns it with its assigned id. The insert
// is atomic: on any failure no partial row is visible to other callers.
func (s *userStore) Create(ctx context.Context, user *User) (*User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := s.now()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if IsConflictError(err) {
			return nil, goerrors.Wrap(err, ErrUserConflict.Category, ErrUserConflict.Message).
				WithTextCode(ErrUserConflict.TextCode)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "user store: insert user").
			WithTextCode(TextCodeUserCreationFailed)
	}

	return user, nil
}

// Update applies the non-nil fields of patch and returns the updated row,
// or (nil, nil) when no row matches.
func (s *userStore) Update(ctx context.Context, id int64, patch UserUpdate) (*User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := s.now()
	q := s.db.NewUpdate().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Set("updated_at = ?", now)

	if patch.Email != nil {
		q = q.Set("email = ?", *patch.Email)
	}
	if patch.DisplayName != nil {
		q = q.Set("display_name = ?", *patch.DisplayName)
	}
	if patch.Role != nil {
		q = q.Set("user_role = ?", *patch.Role)
	}
	if patch.Active != nil {
		q = q.Set("is_active = ?", *patch.Active)
	}
	if patch.LastLoginAt != nil {
		q = q.Set("last_login_at = ?", *patch.LastLoginAt)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		if IsConflictError(err) {
			return nil, goerrors.Wrap(err, ErrUserConflict.Category, ErrUserConflict.Message).
				WithTextCode(ErrUserConflict.TextCode)
		}
		return nil, wrapStoreError(err, "update user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil
	}

	return s.FindByID(ctx, id)
}

func (s *userStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func wrapStoreError(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "user store: "+op).
		WithTextCode(TextCodeUserLookupFailed)
}
