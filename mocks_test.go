package identity_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harvesthub/identity"
	"github.com/stretchr/testify/mock"
)

// MockUserStore implements identity.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Insert(ctx context.Context, user *identity.User) (*identity.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*identity.User)
	return created, args.Error(1)
}

func (m *MockUserStore) Save(ctx context.Context, user *identity.User) (*identity.User, error) {
	args := m.Called(ctx, user)
	saved, _ := args.Get(0).(*identity.User)
	return saved, args.Error(1)
}

func (m *MockUserStore) SaveWithStatus(ctx context.Context, user *identity.User, prior identity.UserStatus) (*identity.User, error) {
	args := m.Called(ctx, user, prior)
	saved, _ := args.Get(0).(*identity.User)
	return saved, args.Error(1)
}

func (m *MockUserStore) Delete(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockTokenService implements identity.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Mint(claims *identity.TokenClaims, ttl time.Duration) (string, error) {
	args := m.Called(claims, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Verify(raw string) (*identity.TokenClaims, error) {
	args := m.Called(raw)
	claims, _ := args.Get(0).(*identity.TokenClaims)
	return claims, args.Error(1)
}

// MockNotifier implements identity.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerification(ctx context.Context, email string, role identity.Role, token string) error {
	args := m.Called(ctx, email, role, token)
	return args.Error(0)
}

func (m *MockNotifier) SendPasswordResetLink(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockNotifier) SendEmailChangeConfirmation(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockNotifier) SendAccountAlert(ctx context.Context, email string, changeKind identity.Field) error {
	args := m.Called(ctx, email, changeKind)
	return args.Error(0)
}

func (m *MockNotifier) SubscribeMarketing(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// plainCredential trades hashing strength for test speed.
type plainCredential struct{}

func (plainCredential) Hash(secret string) (string, error) {
	if secret == "" {
		return "", identity.ErrNoEmptyString
	}
	return "plain:" + secret, nil
}

func (plainCredential) Compare(secret, digest string) error {
	if "plain:"+secret != digest {
		return identity.ErrMismatchedHashAndPassword
	}
	return nil
}

// eventRecorder collects dispatched events so tests can assert on the
// side-effect stream without racing the dispatcher goroutines.
type eventRecorder struct {
	mu     sync.Mutex
	events []identity.Event
}

func (r *eventRecorder) Handler() identity.EventHandler {
	return func(_ context.Context, evt identity.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
		return nil
	}
}

func (r *eventRecorder) Events() []identity.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]identity.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) Find(tag identity.EventTag, field identity.Field) (identity.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, evt := range r.events {
		if evt.Tag == tag && evt.Field == field {
			return evt, true
		}
	}
	return identity.Event{}, false
}
