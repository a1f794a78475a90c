package identity

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunUserStore is the production UserStore backed by bun. Record-level
// atomicity and the unique-email constraint live in the database; this
// layer translates driver errors into the domain taxonomy.
type BunUserStore struct {
	db   *bun.DB
	repo repository.Repository[*User]
}

var _ UserStore = (*BunUserStore)(nil)

// NewBunUserStore wires the repository handlers for the User model.
func NewBunUserStore(db *bun.DB) *BunUserStore {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &BunUserStore{db: db, repo: repo}
}

func (s *BunUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *BunUserStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := s.repo.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *BunUserStore) Insert(ctx context.Context, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return created, nil
}

func (s *BunUserStore) Save(ctx context.Context, user *User) (*User, error) {
	now := time.Now()
	user.UpdatedAt = &now

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return updated, nil
}

// SaveWithStatus is a compare-and-swap on status: the UPDATE is predicated
// on the stored value, so whichever racing transition commits second
// affects zero rows and surfaces as ErrStatusConflict.
func (s *BunUserStore) SaveWithStatus(ctx context.Context, user *User, prior UserStatus) (*User, error) {
	now := time.Now()
	user.UpdatedAt = &now

	res, err := s.db.NewUpdate().
		Model(user).
		WherePK().
		Where("?TableAlias.status = ?", prior).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		if _, ferr := s.FindByID(ctx, user.ID); ferr != nil {
			return nil, ferr
		}
		return nil, ErrStatusConflict
	}
	return user, nil
}

func (s *BunUserStore) Delete(ctx context.Context, user *User) error {
	_, err := s.db.NewDelete().
		Model(user).
		WherePK().
		Exec(ctx)
	return err
}

// isUniqueViolation matches the constraint error text across the sqlite and
// postgres drivers we run against.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
