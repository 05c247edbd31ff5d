package identity

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"warden/pkg/email"
	"warden/pkg/requestcontext"
)

// maxFailedAttempts mirrors the hosted provider's lockout threshold: after
// this many consecutive failures an account answers too-many-requests until a
// successful sign-in.
const maxFailedAttempts = 5

// minPasswordLength mirrors the hosted provider's weak-password rule.
const minPasswordLength = 6

// idTokenTTL bounds the validity of minted ID tokens.
const idTokenTTL = time.Hour

type memoryAccount struct {
	uid            string
	email          string
	passwordHash   []byte
	displayName    string
	photoURL       string
	emailVerified  bool
	failedAttempts int
}

// MemoryProvider is an in-process Provider for development and tests. It
// verifies credentials against bcrypt hashes and mints HS256 ID tokens the way
// the hosted provider issues session tokens.
type MemoryProvider struct {
	mu         sync.Mutex
	accounts   map[string]*memoryAccount // keyed by normalized email
	byUID      map[string]*memoryAccount
	federated  map[ProviderKind]*Identity
	currentUID string
	signingKey []byte

	events chan Event
	closed bool

	// verificationSends counts SendVerification calls per uid; tests assert
	// best-effort dispatch through it.
	verificationSends map[string]int
	resetSends        map[string]int
}

// MemoryOption configures a MemoryProvider.
type MemoryOption func(*MemoryProvider)

// WithFederatedIdentity registers the identity returned by a popup flow for
// the given provider kind. Kinds without a registered identity answer
// popup-closed, simulating the user abandoning the popup.
func WithFederatedIdentity(kind ProviderKind, ident Identity) MemoryOption {
	return func(p *MemoryProvider) {
		p.federated[kind] = &ident
	}
}

// WithSigningKey overrides the ID-token signing key.
func WithSigningKey(key []byte) MemoryOption {
	return func(p *MemoryProvider) {
		p.signingKey = key
	}
}

// NewMemoryProvider constructs a provider with an empty account table.
// The initial signed-out event is queued immediately so the first consumer
// observes current state on attach.
func NewMemoryProvider(opts ...MemoryOption) *MemoryProvider {
	p := &MemoryProvider{
		accounts:          make(map[string]*memoryAccount),
		byUID:             make(map[string]*memoryAccount),
		federated:         make(map[ProviderKind]*Identity),
		signingKey:        []byte("dev-signing-key"),
		events:            make(chan Event, 16),
		verificationSends: make(map[string]int),
		resetSends:        make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.events <- Event{}
	return p
}

func (p *MemoryProvider) SignIn(ctx context.Context, emailAddr, password string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[email.Normalize(emailAddr)]
	if !ok {
		return nil, NewProviderError(ErrCodeUserNotFound, "no account for email")
	}
	if acct.failedAttempts >= maxFailedAttempts {
		return nil, NewProviderError(ErrCodeTooManyRequests, "account temporarily locked")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		acct.failedAttempts++
		return nil, NewProviderError(ErrCodeWrongPassword, "wrong password")
	}
	acct.failedAttempts = 0

	ident := p.establishLocked(ctx, acct)
	return ident, nil
}

func (p *MemoryProvider) SignInWithProvider(ctx context.Context, kind ProviderKind) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seed, ok := p.federated[kind]
	if !ok {
		return nil, NewProviderError(ErrCodePopupClosed, "popup closed by user")
	}

	key := email.Normalize(seed.Email)
	acct, exists := p.accounts[key]
	if !exists {
		acct = &memoryAccount{
			uid:           uuid.NewString(),
			email:         key,
			displayName:   seed.DisplayName,
			photoURL:      seed.PhotoURL,
			emailVerified: true, // federated providers assert email ownership
		}
		p.accounts[key] = acct
		p.byUID[acct.uid] = acct
	}

	ident := p.establishLocked(ctx, acct)
	return ident, nil
}

func (p *MemoryProvider) SignUp(ctx context.Context, emailAddr, password string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := email.Normalize(emailAddr)
	if !email.IsValid(key) {
		return nil, NewProviderError(ErrCodeInvalidEmail, "malformed email address")
	}
	if len(password) < minPasswordLength {
		return nil, NewProviderError(ErrCodeWeakPassword, "password must be at least 6 characters")
	}
	if _, exists := p.accounts[key]; exists {
		return nil, NewProviderError(ErrCodeEmailInUse, "email already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct := &memoryAccount{
		uid:          uuid.NewString(),
		email:        key,
		passwordHash: hash,
	}
	p.accounts[key] = acct
	p.byUID[acct.uid] = acct

	ident := p.establishLocked(ctx, acct)
	return ident, nil
}

func (p *MemoryProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentUID = ""
	p.pushLocked(Event{})
	return nil
}

func (p *MemoryProvider) Events() <-chan Event {
	return p.events
}

func (p *MemoryProvider) SendPasswordReset(_ context.Context, emailAddr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[email.Normalize(emailAddr)]
	if !ok {
		return NewProviderError(ErrCodeUserNotFound, "no account for email")
	}
	p.resetSends[acct.uid]++
	return nil
}

func (p *MemoryProvider) SendVerification(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.byUID[uid]
	if !ok {
		return NewProviderError(ErrCodeUserNotFound, "no account for uid")
	}
	p.verificationSends[uid]++
	// The dev provider has no inbox; treat dispatch as instant verification
	// so verified-email flows are exercisable locally.
	acct.emailVerified = true
	return nil
}

func (p *MemoryProvider) UpdateDisplayName(_ context.Context, uid, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.byUID[uid]
	if !ok {
		return NewProviderError(ErrCodeUserNotFound, "no account for uid")
	}
	acct.displayName = name
	return nil
}

func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return nil
}

// VerifyIDToken validates a token minted by this provider and returns the
// identity claims it carries. Tokens signed with a different key are
// rejected as invalid credentials.
func (p *MemoryProvider) VerifyIDToken(tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, NewProviderError(ErrCodeInvalidCredential, "unexpected signing method")
		}
		return p.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, NewProviderError(ErrCodeInvalidCredential, "invalid id token")
	}

	ident := &Identity{IDToken: tokenString}
	if sub, ok := claims["sub"].(string); ok {
		ident.UID = sub
	}
	if em, ok := claims["email"].(string); ok {
		ident.Email = em
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		ident.EmailVerified = verified
	}
	if name, ok := claims["name"].(string); ok {
		ident.DisplayName = name
	}
	return ident, nil
}

// VerificationSends reports SendVerification dispatch counts for a uid.
func (p *MemoryProvider) VerificationSends(uid string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verificationSends[uid]
}

// ResetSends reports SendPasswordReset dispatch counts for a uid.
func (p *MemoryProvider) ResetSends(uid string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetSends[uid]
}

// establishLocked records the account as the current session, mints an ID
// token, and pushes the identity-changed event. Callers hold p.mu.
func (p *MemoryProvider) establishLocked(ctx context.Context, acct *memoryAccount) *Identity {
	p.currentUID = acct.uid
	ident := p.identityLocked(ctx, acct)
	p.pushLocked(Event{Identity: ident})
	return ident
}

func (p *MemoryProvider) identityLocked(ctx context.Context, acct *memoryAccount) *Identity {
	now := requestcontext.Now(ctx)
	claims := jwt.MapClaims{
		"sub":            acct.uid,
		"email":          acct.email,
		"email_verified": acct.emailVerified,
		"name":           acct.displayName,
		"iat":            now.Unix(),
		"exp":            now.Add(idTokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		// HS256 signing over a static key cannot fail at runtime; an empty
		// token is still a usable identity for the dev provider.
		token = ""
	}

	return &Identity{
		UID:           acct.uid,
		Email:         acct.email,
		EmailVerified: acct.emailVerified,
		DisplayName:   acct.displayName,
		PhotoURL:      acct.photoURL,
		IDToken:       token,
	}
}

// pushLocked delivers an event without blocking the caller. If the consumer
// has fallen 16 events behind, the oldest pending event is dropped; the
// reconciler only needs the latest state.
func (p *MemoryProvider) pushLocked(ev Event) {
	if p.closed {
		return
	}
	for {
		select {
		case p.events <- ev:
			return
		default:
			select {
			case <-p.events:
			default:
			}
		}
	}
}
