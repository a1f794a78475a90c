package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Lifecycle is the identity orchestrator. Each operation composes the
// store, token service, and credential capabilities, mutates at most one
// account, and emits lifecycle events for the side effects.
type Lifecycle struct {
	cfg        Config
	store      UserStore
	tokens     TokenService
	credential Credential
	dispatcher *Dispatcher
	gate       AccessGate
	logger     Logger
}

// LifecycleOption customizes the orchestrator.
type LifecycleOption func(*Lifecycle)

// WithCredential overrides the default bcrypt credential.
func WithCredential(c Credential) LifecycleOption {
	return func(l *Lifecycle) {
		if c != nil {
			l.credential = c
		}
	}
}

// WithAccessGate overrides the default role gate.
func WithAccessGate(g AccessGate) LifecycleOption {
	return func(l *Lifecycle) {
		if g != nil {
			l.gate = g
		}
	}
}

// WithLifecycleLogger overrides the logger.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLifecycle wires the orchestrator. The dispatcher should have its
// handlers registered before the first operation runs.
func NewLifecycle(cfg Config, store UserStore, tokens TokenService, dispatcher *Dispatcher, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		cfg:        cfg.WithDefaults(),
		store:      store,
		tokens:     tokens,
		dispatcher: dispatcher,
		credential: NewBcryptCredential(),
		gate:       NewAccessGate(),
		logger:     defLogger{},
	}

	if l.dispatcher == nil {
		l.dispatcher = NewDispatcher()
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// SignupInput is the pre-validated registration payload.
type SignupInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	Phone       string
	DateOfBirth string
	Avatar      string
	Role        Role
}

// Signup registers a new account. Self-serve roles start PENDING and get a
// verification link; staff roles activate immediately and no verification
// token is ever issued for them. The notification never blocks the caller.
func (l *Lifecycle) Signup(ctx context.Context, in SignupInput) (*User, error) {
	hash, err := l.credential.Hash(in.Password)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, internalError(err, "failed to hash password")
	}

	return l.register(ctx, in, hash)
}

// register validates, stores, and announces a new account whose secret
// hash has already been derived.
func (l *Lifecycle) register(ctx context.Context, in SignupInput, hash string) (*User, error) {
	if in.Role == "" {
		in.Role = RoleNoter
	}
	if !in.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	email := NormalizeEmail(in.Email)
	if _, err := l.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !IsNotFound(err) {
		return nil, internalError(err, "failed to check for existing account")
	}

	user := &User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PasswordHash: hash,
		Phone:        in.Phone,
		DateOfBirth:  in.DateOfBirth,
		Avatar:       in.Avatar,
		Roles:        []Role{in.Role},
	}
	user.Normalize()

	created, err := l.store.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, internalError(err, "failed to create account")
	}

	l.emitVerificationRequest(ctx, SystemActor(), created)

	return created, nil
}

// AdminCreate registers an account on someone's behalf. Gated on ADMIN.
// When no password is provided a random placeholder hash is stored; the
// holder recovers through the reset flow.
func (l *Lifecycle) AdminCreate(ctx context.Context, actor ActorRef, in SignupInput) (*User, error) {
	if !l.gate.Check(actor.Roles, []Role{RoleAdmin}) {
		return nil, ErrForbidden
	}

	if in.Password == "" {
		return l.register(ctx, in, RandomPasswordHash())
	}

	return l.Signup(ctx, in)
}

// VerifyAccount redeems a verification token: PENDING -> ACTIVE, exactly
// once. A replayed token fails the idempotency guard even while its
// signature is still valid. Returns the verified email, not the record.
func (l *Lifecycle) VerifyAccount(ctx context.Context, rawToken string) (string, error) {
	claims, err := l.tokens.Verify(rawToken)
	if err != nil {
		return "", err
	}

	id, err := claims.UserUUID()
	if err != nil {
		return "", ErrTokenMalformed
	}

	user, err := l.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return "", ErrAccountNotFound
		}
		return "", internalError(err, "failed to load account for verification")
	}

	prior := user.Status
	if err := user.Activate(); err != nil {
		return "", err
	}

	// Guarded write: a concurrent redemption that commits first flips the
	// status, so the loser fails the predicate and hits the idempotency
	// guard instead of silently re-applying.
	saved, err := l.store.SaveWithStatus(ctx, user, prior)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return "", ErrAlreadyActive
		}
		return "", internalError(err, "failed to activate account")
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:   EventVerified,
		Actor: UserActor(saved.ID, saved.Roles...),
		User:  saved,
	})

	return saved.Email, nil
}

// LoginResult is the login success payload: a session token plus a
// sanitized account snapshot (the hash is never serialized).
type LoginResult struct {
	Token string `json:"auth_token"`
	User  *User  `json:"user"`
}

// Login authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller; a pending account is
// reported distinctly, since at that point the caller has proven they hold
// the credential.
func (l *Lifecycle) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := l.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, internalError(err, "failed to look up account")
	}

	if err := l.credential.Compare(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status == UserStatusPending {
		return nil, ErrAccountInactive
	}

	token, err := l.tokens.Mint(NewTokenClaims(user.ID, ""), l.cfg.SessionTTL)
	if err != nil {
		return nil, internalError(err, "failed to mint session token")
	}

	return &LoginResult{Token: token, User: user}, nil
}

// Logout de-authenticates. Tokens are stateless and there is no revocation
// list; the transport layer drops its cookie and this records nothing.
func (l *Lifecycle) Logout(ctx context.Context, actor ActorRef) error {
	l.logger.Debug("logout", "user", actor.ID)
	return nil
}

// ResendVerification re-issues the verification link for a pending account.
func (l *Lifecycle) ResendVerification(ctx context.Context, email string) error {
	user, err := l.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return internalError(err, "failed to look up account")
	}

	if user.Status == UserStatusActive {
		return ErrAlreadyActive
	}

	l.emitVerificationRequest(ctx, SystemActor(), user)
	return nil
}

// SocialLogin is a stub; social providers are not supported.
func (l *Lifecycle) SocialLogin(ctx context.Context, provider string) (*LoginResult, error) {
	return nil, ErrUnsupportedProvider
}

// AccountUpdate is a partial profile patch. Roles and Status are privileged.
type AccountUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	DateOfBirth *string
	Avatar      *string
	Roles       []Role
	Status      *UserStatus
}

func (p AccountUpdate) privileged() bool {
	return len(p.Roles) > 0 || p.Status != nil
}

// UpdateAccount applies a profile patch. Role or status changes, and
// patches against another user's record, require the ADMIN role; the gate
// runs before anything is loaded so a denial has no partial effects.
func (l *Lifecycle) UpdateAccount(ctx context.Context, actor ActorRef, id uuid.UUID, patch AccountUpdate) (*User, error) {
	if patch.privileged() || actor.ID != id {
		if !l.gate.Check(actor.Roles, []Role{RoleAdmin}) {
			return nil, ErrForbidden
		}
	}

	for _, r := range patch.Roles {
		if !r.IsValid() {
			return nil, ErrInvalidRole
		}
	}

	user, err := l.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, internalError(err, "failed to load account")
	}

	field := FieldProfile
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.DateOfBirth != nil {
		user.DateOfBirth = *patch.DateOfBirth
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if len(patch.Roles) > 0 {
		user.Roles = patch.Roles
	}
	if patch.Status != nil {
		if err := TransitionStatus(user, *patch.Status); err != nil {
			return nil, err
		}
		field = FieldStatus
	}
	user.Normalize()

	// AccountUpdate cannot touch the email, so a unique violation here
	// would be a store bug, not a user-facing conflict.
	saved, err := l.store.Save(ctx, user)
	if err != nil {
		return nil, internalError(err, "failed to update account")
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:   EventUpdated,
		Field: field,
		Actor: actor,
		User:  saved,
	})

	return saved, nil
}

// DeleteAccount removes an account. Self-deletion is allowed; deleting
// another user's record requires ADMIN.
func (l *Lifecycle) DeleteAccount(ctx context.Context, actor ActorRef, id uuid.UUID) error {
	if actor.ID != id && !l.gate.Check(actor.Roles, []Role{RoleAdmin}) {
		return ErrForbidden
	}

	user, err := l.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return internalError(err, "failed to load account")
	}

	if err := l.store.Delete(ctx, user); err != nil {
		return internalError(err, "failed to delete account")
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:   EventDeleted,
		Actor: actor,
		User:  user,
	})

	return nil
}

// emitVerificationRequest mints a verification token and dispatches the
// "inserted, needs verification" event for self-serve accounts. Mint can
// only fail on signing-key misconfiguration, so a failure here is logged
// and the caller's success path is left alone.
func (l *Lifecycle) emitVerificationRequest(ctx context.Context, actor ActorRef, user *User) {
	if !user.SelfServe() || user.Status != UserStatusPending {
		return
	}

	token, err := l.tokens.Mint(NewTokenClaims(user.ID, user.Email), l.cfg.VerificationTTL)
	if err != nil {
		l.logger.Error("failed to mint verification token", "user", user.ID, "error", err)
		return
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:   EventInserted,
		Actor: actor,
		User:  user,
		Token: token,
	})
}
