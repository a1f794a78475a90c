package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// StoreManager exposes the persistence surface as one unit: the user store
// plus transaction scoping for callers composing multi-step writes.
type StoreManager interface {
	Users() UserStore
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

type mngr struct {
	db    *bun.DB
	users *BunUserStore
}

// NewStoreManager wires every repository off one bun handle.
func NewStoreManager(db *bun.DB) StoreManager {
	return &mngr{
		db:    db,
		users: NewBunUserStore(db),
	}
}

func (m *mngr) Users() UserStore {
	return m.users
}

func (m *mngr) Validate() error {
	if m.db == nil {
		return errors.New("store manager needs a database handle")
	}
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}
