// Package identity defines the contract with the external identity provider.
// The provider owns credential verification and session tokens; this module
// only consumes the normalized identity it pushes. A development in-memory
// implementation lives in memory.go.
package identity

import (
	"context"
	"fmt"

	dErrors "warden/pkg/domain-errors"
)

// Identity is the provider-issued raw handle for a signed-in user. It contains
// facts asserted by the provider, no authorization decisions.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
	// IDToken is the provider-signed session token. Opaque to this module;
	// surfaced so transports can hand it to clients.
	IDToken string
}

// Event is pushed by the provider on every identity change.
// A nil Identity means signed out.
type Event struct {
	Identity *Identity
}

// ProviderKind selects a federated OAuth provider for popup sign-in.
type ProviderKind string

const (
	ProviderGoogle ProviderKind = "google"
	ProviderGitHub ProviderKind = "github"
)

var validProviderKinds = map[ProviderKind]bool{
	ProviderGoogle: true,
	ProviderGitHub: true,
}

// ParseProviderKind validates a raw provider name against the closed set.
func ParseProviderKind(raw string) (ProviderKind, error) {
	kind := ProviderKind(raw)
	if !validProviderKinds[kind] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown provider: %s", raw)
	}
	return kind, nil
}

// Provider is the identity-provider surface this module consumes.
// Implementations must push an Event for the current state as soon as a
// consumer attaches, then one Event per subsequent change, in order.
type Provider interface {
	// SignIn verifies email/password credentials and establishes a session.
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	// SignInWithProvider runs a popup-based federated flow requesting the
	// standard profile scopes.
	SignInWithProvider(ctx context.Context, kind ProviderKind) (*Identity, error)

	// SignUp creates a new account and establishes a session for it.
	SignUp(ctx context.Context, email, password string) (*Identity, error)

	// SignOut tears down the current session.
	SignOut(ctx context.Context) error

	// Events returns the identity-change stream. The channel is closed by
	// Close; consumers must treat closure as detach, not sign-out.
	Events() <-chan Event

	// SendPasswordReset dispatches a reset email for the account.
	SendPasswordReset(ctx context.Context, email string) error

	// SendVerification dispatches a verification email to the identity.
	SendVerification(ctx context.Context, uid string) error

	// UpdateDisplayName sets the provider-side display name for the identity.
	UpdateDisplayName(ctx context.Context, uid, name string) error

	// Close detaches the event stream. Idempotent; it does not cancel
	// reconciliation already in flight downstream.
	Close() error
}

// Provider wire codes, as surfaced by the hosted provider. The session service
// classifies these into the domain error taxonomy; everything else maps to the
// unknown category with the raw message preserved.
const (
	ErrCodeUserNotFound      = "auth/user-not-found"
	ErrCodeWrongPassword     = "auth/wrong-password"
	ErrCodeInvalidCredential = "auth/invalid-credential"
	ErrCodeEmailInUse        = "auth/email-already-in-use"
	ErrCodeWeakPassword      = "auth/weak-password"
	ErrCodeInvalidEmail      = "auth/invalid-email"
	ErrCodeTooManyRequests   = "auth/too-many-requests"
	ErrCodePopupClosed       = "auth/popup-closed-by-user"
)

// ProviderError carries the provider's wire code alongside its message.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewProviderError constructs a provider error for the given wire code.
func NewProviderError(code, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}
