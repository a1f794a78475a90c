package identity_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/harvesthub/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	lifecycle  *identity.Lifecycle
	store      *identity.MemoryUserStore
	dispatcher *identity.Dispatcher
	recorder   *eventRecorder
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	tokens, err := identity.NewTokenService(testTokenConfig())
	require.NoError(t, err)

	store := identity.NewMemoryUserStore()
	dispatcher := identity.NewDispatcher()
	recorder := &eventRecorder{}
	for _, tag := range []identity.EventTag{
		identity.EventInserted,
		identity.EventVerified,
		identity.EventUpdated,
		identity.EventDeleted,
	} {
		dispatcher.Subscribe(tag, recorder.Handler())
	}

	lifecycle := identity.NewLifecycle(testTokenConfig(), store, tokens, dispatcher,
		identity.WithCredential(plainCredential{}),
	)

	return &lifecycleFixture{
		lifecycle:  lifecycle,
		store:      store,
		dispatcher: dispatcher,
		recorder:   recorder,
	}
}

func (f *lifecycleFixture) signup(t *testing.T, email string, role identity.Role) *identity.User {
	t.Helper()
	user, err := f.lifecycle.Signup(context.Background(), identity.SignupInput{
		FirstName: "ama",
		LastName:  "serwah",
		Email:     email,
		Password:  "Sup3r-secret!",
		Role:      role,
	})
	require.NoError(t, err)
	f.dispatcher.Wait()
	return user
}

func TestSignup_SelfServeStartsPending(t *testing.T) {
	f := newLifecycleFixture(t)

	user := f.signup(t, "Ama.Serwah@Example.COM", identity.RoleFarmer)

	assert.Equal(t, identity.UserStatusPending, user.Status)
	assert.Equal(t, "ama.serwah@example.com", user.Email)
	assert.Equal(t, "Ama", user.FirstName)
	assert.Equal(t, "Serwah", user.LastName)
	assert.Equal(t, []identity.Role{identity.RoleFarmer}, user.Roles)
	assert.NotEqual(t, uuid.Nil, user.ID)

	evt, ok := f.recorder.Find(identity.EventInserted, "")
	require.True(t, ok, "expected a verification request event")
	assert.NotEmpty(t, evt.Token)
	assert.Equal(t, "system", evt.Actor.Type)
}

func TestSignup_StaffRoleActivatesImmediately(t *testing.T) {
	f := newLifecycleFixture(t)

	user := f.signup(t, "staff@example.com", identity.RoleAdmin)

	assert.Equal(t, identity.UserStatusActive, user.Status)
	_, ok := f.recorder.Find(identity.EventInserted, "")
	assert.False(t, ok, "no verification token should be issued for staff accounts")
}

func TestSignup_DefaultsRole(t *testing.T) {
	f := newLifecycleFixture(t)

	user, err := f.lifecycle.Signup(context.Background(), identity.SignupInput{
		FirstName: "kofi",
		LastName:  "mensah",
		Email:     "kofi@example.com",
		Password:  "Sup3r-secret!",
	})
	require.NoError(t, err)
	assert.Equal(t, []identity.Role{identity.RoleNoter}, user.Roles)
}

func TestSignup_RejectsUnknownRole(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.lifecycle.Signup(context.Background(), identity.SignupInput{
		Email:    "x@example.com",
		Password: "Sup3r-secret!",
		Role:     identity.Role("WIZARD"),
	})
	assert.True(t, errors.Is(err, identity.ErrInvalidRole))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newLifecycleFixture(t)
	f.signup(t, "ama@example.com", identity.RoleNoter)

	_, err := f.lifecycle.Signup(context.Background(), identity.SignupInput{
		FirstName: "other",
		LastName:  "person",
		Email:     "AMA@example.com",
		Password:  "Sup3r-secret!",
		Role:      identity.RoleBuyer,
	})
	assert.True(t, errors.Is(err, identity.ErrDuplicateEmail))
}

func TestVerifyAccount_ActivatesOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	f.signup(t, "ama@example.com", identity.RoleFarmer)

	evt, ok := f.recorder.Find(identity.EventInserted, "")
	require.True(t, ok)

	email, err := f.lifecycle.VerifyAccount(context.Background(), evt.Token)
	require.NoError(t, err)
	assert.Equal(t, "ama@example.com", email)

	stored, err := f.store.FindByEmail(context.Background(), "ama@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.UserStatusActive, stored.Status)

	// the token's signature is still valid but the transition already ran
	_, err = f.lifecycle.VerifyAccount(context.Background(), evt.Token)
	assert.True(t, errors.Is(err, identity.ErrAlreadyActive))
}

// staleReadStore replays the first snapshot it loads for each id, so two
// redeemers of the same token both observe the pre-activation record.
type staleReadStore struct {
	identity.UserStore
	mu        sync.Mutex
	snapshots map[uuid.UUID]*identity.User
}

func (s *staleReadStore) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.snapshots[id]; ok {
		cp := *snap
		return &cp, nil
	}
	user, err := s.UserStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *user
	s.snapshots[id] = &cp
	return user, nil
}

func TestVerifyAccount_ConcurrentRedemptionLosesRace(t *testing.T) {
	f := newLifecycleFixture(t)
	f.signup(t, "ama@example.com", identity.RoleFarmer)

	evt, ok := f.recorder.Find(identity.EventInserted, "")
	require.True(t, ok)

	tokens, err := identity.NewTokenService(testTokenConfig())
	require.NoError(t, err)

	// both redemptions read the account before either write commits
	racing := identity.NewLifecycle(testTokenConfig(),
		&staleReadStore{UserStore: f.store, snapshots: map[uuid.UUID]*identity.User{}},
		tokens, f.dispatcher,
		identity.WithCredential(plainCredential{}),
	)

	_, err = racing.VerifyAccount(context.Background(), evt.Token)
	require.NoError(t, err)

	_, err = racing.VerifyAccount(context.Background(), evt.Token)
	assert.True(t, errors.Is(err, identity.ErrAlreadyActive),
		"the second redemption must fail the status predicate, got %v", err)

	stored, err := f.store.FindByEmail(context.Background(), "ama@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.UserStatusActive, stored.Status)
}

func TestVerifyAccount_RejectsExpiredToken(t *testing.T) {
	f := newLifecycleFixture(t)
	user := f.signup(t, "ama@example.com", identity.RoleFarmer)

	past, err := identity.NewTokenService(testTokenConfig(),
		identity.WithTokenClock(func() time.Time { return time.Now().Add(-48 * time.Hour) }),
	)
	require.NoError(t, err)
	stale, err := past.Mint(identity.NewTokenClaims(user.ID, user.Email), 24*time.Hour)
	require.NoError(t, err)

	_, err = f.lifecycle.VerifyAccount(context.Background(), stale)
	assert.True(t, errors.Is(err, identity.ErrTokenExpired))

	stored, err := f.store.FindByEmail(context.Background(), "ama@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.UserStatusPending, stored.Status)
}

func TestLogin_Success(t *testing.T) {
	f := newLifecycleFixture(t)
	f.signup(t, "staff@example.com", identity.RoleAdmin)

	result, err := f.lifecycle.Login(context.Background(), "STAFF@example.com", "Sup3r-secret!")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "staff@example.com", result.User.Email)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	f := newLifecycleFixture(t)
	f.signup(t, "staff@example.com", identity.RoleAdmin)

	_, errUnknown := f.lifecycle.Login(context.Background(), "nobody@example.com", "Sup3r-secret!")
	_, errWrongPwd := f.lifecycle.Login(context.Background(), "staff@example.com", "not-the-password")

	require.Error(t, errUnknown)
	require.Error(t, errWrongPwd)
	assert.Equal(t, errUnknown.Error(), errWrongPwd.Error())
	assert.True(t, errors.Is(errUnknown, identity.ErrInvalidCredentials))
	assert.True(t, errors.Is(errWrongPwd, identity.ErrInvalidCredentials))
}

func TestLogin_PendingAccountBlocked(t *testing.T) {
	f := newLifecycleFixture(t)
	f.signup(t, "ama@example.com", identity.RoleFarmer)

	_, err := f.lifecycle.Login(context.Background(), "ama@example.com", "Sup3r-secret!")
	assert.True(t, errors.Is(err, identity.ErrAccountInactive))
}

func TestResendVerification(t *testing.T) {
	f := newLifecycleFixture(t)
	f.signup(t, "ama@example.com", identity.RoleFarmer)

	err := f.lifecycle.ResendVerification(context.Background(), "ama@example.com")
	require.NoError(t, err)
	f.dispatcher.Wait()

	inserted := 0
	for _, evt := range f.recorder.Events() {
		if evt.Tag == identity.EventInserted {
			inserted++
		}
	}
	assert.Equal(t, 2, inserted)

	t.Run("unknown email", func(t *testing.T) {
		err := f.lifecycle.ResendVerification(context.Background(), "nobody@example.com")
		assert.True(t, errors.Is(err, identity.ErrAccountNotFound))
	})

	t.Run("already active", func(t *testing.T) {
		evt, ok := f.recorder.Find(identity.EventInserted, "")
		require.True(t, ok)
		_, err := f.lifecycle.VerifyAccount(context.Background(), evt.Token)
		require.NoError(t, err)

		err = f.lifecycle.ResendVerification(context.Background(), "ama@example.com")
		assert.True(t, errors.Is(err, identity.ErrAlreadyActive))
	})
}

func TestAdminCreate(t *testing.T) {
	f := newLifecycleFixture(t)
	admin := f.signup(t, "staff@example.com", identity.RoleAdmin)

	t.Run("requires admin role", func(t *testing.T) {
		_, err := f.lifecycle.AdminCreate(context.Background(),
			identity.UserActor(uuid.New(), identity.RoleFarmer),
			identity.SignupInput{Email: "new@example.com", Role: identity.RoleBuyer},
		)
		assert.True(t, errors.Is(err, identity.ErrForbidden))
	})

	t.Run("provisions without password", func(t *testing.T) {
		user, err := f.lifecycle.AdminCreate(context.Background(),
			identity.UserActor(admin.ID, identity.RoleAdmin),
			identity.SignupInput{
				FirstName: "new",
				LastName:  "buyer",
				Email:     "new@example.com",
				Role:      identity.RoleBuyer,
			},
		)
		require.NoError(t, err)
		assert.NotEmpty(t, user.PasswordHash)
		assert.Equal(t, identity.UserStatusPending, user.Status)

		// the placeholder is a real bcrypt hash nobody can present a
		// password for; the holder recovers through the reset flow
		assert.True(t, strings.HasPrefix(user.PasswordHash, "$2a$"))
		assert.Error(t, identity.ComparePasswordAndHash("", user.PasswordHash))
	})
}

func TestUpdateAccount(t *testing.T) {
	f := newLifecycleFixture(t)
	admin := f.signup(t, "staff@example.com", identity.RoleAdmin)
	user := f.signup(t, "ama@example.com", identity.RoleFarmer)

	t.Run("self profile patch", func(t *testing.T) {
		first := "akosua"
		updated, err := f.lifecycle.UpdateAccount(context.Background(),
			identity.UserActor(user.ID, identity.RoleFarmer), user.ID,
			identity.AccountUpdate{FirstName: &first},
		)
		require.NoError(t, err)
		assert.Equal(t, "Akosua", updated.FirstName)
	})

	t.Run("role change requires admin", func(t *testing.T) {
		_, err := f.lifecycle.UpdateAccount(context.Background(),
			identity.UserActor(user.ID, identity.RoleFarmer), user.ID,
			identity.AccountUpdate{Roles: []identity.Role{identity.RoleAdmin}},
		)
		assert.True(t, errors.Is(err, identity.ErrForbidden))
	})

	t.Run("cross-user patch requires admin", func(t *testing.T) {
		first := "mallory"
		_, err := f.lifecycle.UpdateAccount(context.Background(),
			identity.UserActor(uuid.New(), identity.RoleBuyer), user.ID,
			identity.AccountUpdate{FirstName: &first},
		)
		assert.True(t, errors.Is(err, identity.ErrForbidden))
	})

	t.Run("admin sets status", func(t *testing.T) {
		status := identity.UserStatusActive
		updated, err := f.lifecycle.UpdateAccount(context.Background(),
			identity.UserActor(admin.ID, identity.RoleAdmin), user.ID,
			identity.AccountUpdate{Status: &status},
		)
		require.NoError(t, err)
		assert.Equal(t, identity.UserStatusActive, updated.Status)

		f.dispatcher.Wait()
		_, ok := f.recorder.Find(identity.EventUpdated, identity.FieldStatus)
		assert.True(t, ok)
	})
}

func TestDeleteAccount(t *testing.T) {
	f := newLifecycleFixture(t)
	user := f.signup(t, "ama@example.com", identity.RoleFarmer)

	t.Run("stranger is rejected", func(t *testing.T) {
		err := f.lifecycle.DeleteAccount(context.Background(),
			identity.UserActor(uuid.New(), identity.RoleBuyer), user.ID)
		assert.True(t, errors.Is(err, identity.ErrForbidden))
	})

	t.Run("self delete", func(t *testing.T) {
		err := f.lifecycle.DeleteAccount(context.Background(),
			identity.UserActor(user.ID, identity.RoleFarmer), user.ID)
		require.NoError(t, err)

		_, err = f.store.FindByID(context.Background(), user.ID)
		assert.True(t, identity.IsNotFound(err))

		f.dispatcher.Wait()
		_, ok := f.recorder.Find(identity.EventDeleted, "")
		assert.True(t, ok)
	})
}

func TestSocialLogin_Unsupported(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.lifecycle.SocialLogin(context.Background(), "google")
	assert.True(t, errors.Is(err, identity.ErrUnsupportedProvider))
}
