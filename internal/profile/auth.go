package profile

import (
	"context"
	"errors"
	"regexp"
)

// Validation errors. Each is raised before any adapter call, so a rejected
// request never mutates state anywhere.
var (
	ErrInvalidEmail     = errors.New("profile: invalid email address")
	ErrShortPassword    = errors.New("profile: password must be at least 8 characters")
	ErrPasswordMismatch = errors.New("profile: passwords do not match")
	ErrInvalidCode      = errors.New("profile: verification code must be exactly 6 digits")
	ErrNoSession        = errors.New("profile: no active session")
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	codeRe  = regexp.MustCompile(`^[0-9]{6}$`)
)

// AuthSession is the signed-in identity handed back by the auth adapter.
type AuthSession struct {
	LearnerID string
	Email     string
}

// Authenticator is the external auth adapter contract.
type Authenticator interface {
	CurrentSession(ctx context.Context) (AuthSession, error)
	SignIn(ctx context.Context, email, password string) (AuthSession, error)
	SignUp(ctx context.Context, email, password string) error
	VerifyCode(ctx context.Context, email, code string) (AuthSession, error)
	SignOut(ctx context.Context) error
}

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateSignIn checks credentials before the adapter is contacted.
func ValidateSignIn(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if len(password) < 8 {
		return ErrShortPassword
	}
	return nil
}

// ValidateSignUp additionally requires the confirmation to match.
func ValidateSignUp(email, password, confirm string) error {
	if err := ValidateSignIn(email, password); err != nil {
		return err
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// ValidateCode checks a verification code: exactly 6 digits.
func ValidateCode(code string) error {
	if !codeRe.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}

// LocalAuthenticator is the offline adapter: one device-bound learner that
// is always signed in. SignIn and SignUp accept any validated credentials
// and bind the email to the device learner, so the flow works without a
// backend. A networked Authenticator replaces it when accounts sync.
type LocalAuthenticator struct {
	learnerID string
	email     string
}

var _ Authenticator = (*LocalAuthenticator)(nil)

// NewLocalAuthenticator builds the offline adapter for a learner id.
func NewLocalAuthenticator(learnerID string) *LocalAuthenticator {
	return &LocalAuthenticator{learnerID: learnerID}
}

func (l *LocalAuthenticator) CurrentSession(context.Context) (AuthSession, error) {
	return AuthSession{LearnerID: l.learnerID, Email: l.email}, nil
}

func (l *LocalAuthenticator) SignIn(_ context.Context, email, _ string) (AuthSession, error) {
	l.email = email
	return AuthSession{LearnerID: l.learnerID, Email: email}, nil
}

func (l *LocalAuthenticator) SignUp(_ context.Context, email, _ string) error {
	l.email = email
	return nil
}

func (l *LocalAuthenticator) VerifyCode(_ context.Context, email, _ string) (AuthSession, error) {
	l.email = email
	return AuthSession{LearnerID: l.learnerID, Email: email}, nil
}

func (l *LocalAuthenticator) SignOut(context.Context) error {
	l.email = ""
	return nil
}

// Auth wraps an Authenticator with the validation gate.
type Auth struct {
	adapter Authenticator
}

// NewAuth builds the validating auth surface over an adapter.
func NewAuth(adapter Authenticator) *Auth {
	return &Auth{adapter: adapter}
}

// SignIn validates and then delegates.
func (a *Auth) SignIn(ctx context.Context, email, password string) (AuthSession, error) {
	if err := ValidateSignIn(email, password); err != nil {
		return AuthSession{}, err
	}
	return a.adapter.SignIn(ctx, email, password)
}

// SignUp validates and then delegates.
func (a *Auth) SignUp(ctx context.Context, email, password, confirm string) error {
	if err := ValidateSignUp(email, password, confirm); err != nil {
		return err
	}
	return a.adapter.SignUp(ctx, email, password)
}

// VerifyCode validates the code shape and then delegates.
func (a *Auth) VerifyCode(ctx context.Context, email, code string) (AuthSession, error) {
	if err := ValidateEmail(email); err != nil {
		return AuthSession{}, err
	}
	if err := ValidateCode(code); err != nil {
		return AuthSession{}, err
	}
	return a.adapter.VerifyCode(ctx, email, code)
}

// SignOut delegates; there is nothing to validate.
func (a *Auth) SignOut(ctx context.Context) error {
	return a.adapter.SignOut(ctx)
}

// CurrentSession delegates to the adapter.
func (a *Auth) CurrentSession(ctx context.Context) (AuthSession, error) {
	return a.adapter.CurrentSession(ctx)
}
