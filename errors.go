package identity

import (
	"github.com/goliatone/go-errors"
)

// Stable text codes for API consumers that need to branch on failure kind.
const (
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountInactive    = "ACCOUNT_INACTIVE"
	TextCodeAlreadyActive      = "ACCOUNT_ALREADY_ACTIVE"
	TextCodePasswordReused     = "PASSWORD_REUSED"
	TextCodeEmailUnchanged     = "EMAIL_UNCHANGED"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenSignature     = "TOKEN_SIGNATURE_MISMATCH"
	TextCodeInvalidRole        = "INVALID_ROLE"
	TextCodeStatusConflict     = "STATUS_CONFLICT"
)

// ErrDuplicateEmail is returned when an email address is already registered.
var ErrDuplicateEmail = errors.New("a user with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials covers both unknown email and wrong password at login,
// the caller must not be able to tell which.
var ErrInvalidCredentials = errors.New("incorrect email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrIncorrectPassword is returned when a credential re-check fails for an
// authenticated actor (change-password, email-change request).
var ErrIncorrectPassword = errors.New("incorrect password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountInactive blocks login for accounts that never completed verification.
var ErrAccountInactive = errors.New("account inactive, please activate", errors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(errors.CodeUnauthorized)

// ErrAlreadyActive is the idempotency guard: redeeming a verification token
// for an account that is already active fails distinctly so a double-clicked
// email link reads as "already done", not "broken link".
var ErrAlreadyActive = errors.New("account is already active, please login", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyActive).
	WithCode(errors.CodeConflict)

// ErrPasswordReused rejects a new secret equal to the current one.
var ErrPasswordReused = errors.New("previous password cannot be reused", errors.CategoryValidation).
	WithTextCode(TextCodePasswordReused).
	WithCode(errors.CodeBadRequest)

// ErrEmailUnchanged rejects an email-change request to the current address.
var ErrEmailUnchanged = errors.New("previous email cannot be reused", errors.CategoryValidation).
	WithTextCode(TextCodeEmailUnchanged).
	WithCode(errors.CodeBadRequest)

// ErrAccountNotFound is returned when no account matches the given id or email.
var ErrAccountNotFound = errors.New("no user is associated with this account", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrForbidden is the access gate denial.
var ErrForbidden = errors.New("you are not allowed to perform this action", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired means the token was well formed but its validity window passed;
// the holder should request a fresh one.
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed means the token could not be parsed as one of ours.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignature means the token parsed but was not signed with our key.
var ErrTokenSignature = errors.New("token signature mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRole rejects roles outside the closed enum.
var ErrInvalidRole = errors.New("unknown or invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrStatusConflict is the guarded-write failure: the stored status changed
// between read and save, so the caller lost the race and must re-evaluate.
var ErrStatusConflict = errors.New("account status changed concurrently", errors.CategoryConflict).
	WithTextCode(TextCodeStatusConflict).
	WithCode(errors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty secret.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the credential comparison failure.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnsupportedProvider is the social login stub.
var ErrUnsupportedProvider = errors.New("social login is not supported", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// internalError wraps infrastructure failures with a generic, non-leaking
// message. The cause stays attached for logging, never for the caller.
func internalError(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

// IsNotFound reports whether err represents a missing account.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAccountNotFound) || errors.IsNotFound(err)
}
