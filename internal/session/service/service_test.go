package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/identity"
	"warden/internal/platform/docstore"
	"warden/internal/profile"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/requestcontext"
)

// stubProvider wraps the memory provider so individual tests can inject
// failures or block calls mid-flight.
type stubProvider struct {
	*identity.MemoryProvider

	signOutErr      error
	verificationErr error
	signInStarted   chan struct{}
	signInRelease   chan struct{}
	displayNameGate chan struct{}
}

func (p *stubProvider) SignOut(ctx context.Context) error {
	if p.signOutErr != nil {
		return p.signOutErr
	}
	return p.MemoryProvider.SignOut(ctx)
}

func (p *stubProvider) SendVerification(ctx context.Context, uid string) error {
	if p.verificationErr != nil {
		return p.verificationErr
	}
	return p.MemoryProvider.SendVerification(ctx, uid)
}

func (p *stubProvider) UpdateDisplayName(ctx context.Context, uid, name string) error {
	if p.displayNameGate != nil {
		<-p.displayNameGate
	}
	return p.MemoryProvider.UpdateDisplayName(ctx, uid, name)
}

func (p *stubProvider) SignIn(ctx context.Context, emailAddr, password string) (*identity.Identity, error) {
	if p.signInStarted != nil {
		close(p.signInStarted)
		p.signInStarted = nil
	}
	if p.signInRelease != nil {
		<-p.signInRelease
	}
	return p.MemoryProvider.SignIn(ctx, emailAddr, password)
}

// countingStore counts profile creates on top of the real store.
type countingStore struct {
	*profile.Store
	creates atomic.Int32
}

func (c *countingStore) Create(ctx context.Context, p profile.Profile) (*profile.Profile, error) {
	c.creates.Add(1)
	return c.Store.Create(ctx, p)
}

type SessionServiceSuite struct {
	suite.Suite
	provider *stubProvider
	profiles *profile.Store
	svc      *Service
	ctx      context.Context
}

func (s *SessionServiceSuite) SetupTest() {
	s.provider = &stubProvider{MemoryProvider: identity.NewMemoryProvider()}
	s.profiles = profile.NewStore(docstore.NewMemory())
	s.ctx = context.Background()

	svc, err := New(s.provider, s.profiles)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *SessionServiceSuite) TearDownTest() {
	s.Require().NoError(s.provider.Close())
}

func TestSessionServiceSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceSuite))
}

// register creates an account and signs it out again so tests start from a
// known credential set with no active session.
func (s *SessionServiceSuite) register(emailAddr, password string) *profile.Profile {
	prof, err := s.svc.Register(s.ctx, emailAddr, password, "")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Logout(s.ctx))
	return prof
}

func (s *SessionServiceSuite) TestNewValidation() {
	_, err := New(nil, s.profiles)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = New(s.provider, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *SessionServiceSuite) TestLogin() {
	s.register("jane@example.com", "secret123")

	s.Run("success settles to authenticated", func() {
		prof, err := s.svc.Login(s.ctx, "jane@example.com", "secret123")
		s.Require().NoError(err)
		s.Require().NotNil(prof)

		s.True(s.svc.IsAuthenticated())
		s.False(s.svc.Loading())
		s.NoError(s.svc.LastError())
		s.Equal(domain.DefaultRoles(), s.svc.Roles())

		snap := s.svc.Snapshot()
		s.Require().NotNil(snap.Identity)
		s.Equal("jane@example.com", snap.Identity.Email)
		s.Equal(snap.Identity.UID, snap.Profile.UID)
	})

	s.Run("wrong password settles to anonymous with classified error", func() {
		_, err := s.svc.Login(s.ctx, "jane@example.com", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWrongPassword))
		s.Equal("incorrect password", dErrors.MessageOf(err))

		s.False(s.svc.IsAuthenticated())
		s.False(s.svc.Loading())
		s.Require().Error(s.svc.LastError())
		s.True(dErrors.HasCode(s.svc.LastError(), dErrors.CodeWrongPassword))
	})

	s.Run("unknown account classifies as account_not_found", func() {
		_, err := s.svc.Login(s.ctx, "ghost@example.com", "secret123")
		s.True(dErrors.HasCode(err, dErrors.CodeAccountNotFound))
	})

	s.Run("a successful login clears the last error", func() {
		_, err := s.svc.Login(s.ctx, "jane@example.com", "secret123")
		s.Require().NoError(err)
		s.NoError(s.svc.LastError())
	})
}

func (s *SessionServiceSuite) TestLoginWithProvider() {
	s.Run("abandoned popup classifies as popup_closed", func() {
		_, err := s.svc.LoginWithProvider(s.ctx, identity.ProviderGoogle)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePopupClosed))
		s.False(s.svc.IsAuthenticated())
	})

	s.Run("registered federated identity signs in", func() {
		provider := &stubProvider{MemoryProvider: identity.NewMemoryProvider(
			identity.WithFederatedIdentity(identity.ProviderGitHub, identity.Identity{
				Email:       "fed@example.com",
				DisplayName: "Fed User",
			}),
		)}
		defer provider.Close()

		svc, err := New(provider, s.profiles)
		s.Require().NoError(err)

		prof, err := svc.LoginWithProvider(s.ctx, identity.ProviderGitHub)
		s.Require().NoError(err)
		s.Equal("Fed User", prof.DisplayName)
		s.True(svc.IsAuthenticated())
		s.True(svc.EmailVerified())
	})
}

func (s *SessionServiceSuite) TestRegister() {
	s.Run("creates profile with default grants and derived display name", func() {
		prof, err := s.svc.Register(s.ctx, "jane.doe@example.com", "secret123", "")
		s.Require().NoError(err)

		s.Equal("Jane Doe", prof.DisplayName)
		s.Equal(domain.DefaultRoles(), prof.Roles)
		s.Equal(domain.DefaultPermissions(), prof.Permissions)
		s.True(s.svc.IsAuthenticated())

		// Verification email dispatched once as part of registration.
		s.Equal(1, s.provider.VerificationSends(prof.UID))
	})

	s.Run("duplicate email classifies as email_in_use", func() {
		_, err := s.svc.Register(s.ctx, "jane.doe@example.com", "other-secret", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeEmailInUse))
		s.Equal("an account already exists for this email", dErrors.MessageOf(err))
	})

	s.Run("weak password classifies as weak_password", func() {
		_, err := s.svc.Register(s.ctx, "short@example.com", "tiny", "")
		s.True(dErrors.HasCode(err, dErrors.CodeWeakPassword))
	})

	s.Run("explicit display name wins over derivation", func() {
		prof, err := s.svc.Register(s.ctx, "named@example.com", "secret123", "Custom Name")
		s.Require().NoError(err)
		s.Equal("Custom Name", prof.DisplayName)
	})
}

func (s *SessionServiceSuite) TestRegisterKeepsDisplayNameWithLoopRunning() {
	store := &countingStore{Store: s.profiles}
	svc, err := New(s.provider, store)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Hold the display name update back until the loop has drained the
	// sign-up event. A loop that reconciled mid-registration would create
	// the profile first, with the email-derived name winning.
	gate := make(chan struct{})
	s.provider.displayNameGate = gate
	events := s.provider.Events()
	go func() {
		for len(events) > 0 {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()

	prof, err := svc.Register(s.ctx, "jane.doe@example.com", "secret123", "Custom Name")
	s.Require().NoError(err)
	s.Equal("Custom Name", prof.DisplayName)

	stored, err := s.profiles.FindByUID(s.ctx, prof.UID)
	s.Require().NoError(err)
	s.Equal("Custom Name", stored.DisplayName, "the supplied name survives the running loop")
	s.Equal(int32(1), store.creates.Load(), "the profile is created exactly once")
}

func (s *SessionServiceSuite) TestRegisterSurvivesVerificationFailure() {
	s.provider.verificationErr = identity.NewProviderError("auth/internal-error", "smtp down")

	prof, err := s.svc.Register(s.ctx, "jane@example.com", "secret123", "")
	s.Require().NoError(err, "verification dispatch failure must not roll back registration")
	s.NotNil(prof)
	s.True(s.svc.IsAuthenticated())
}

func (s *SessionServiceSuite) TestLogout() {
	s.Run("clears the session", func() {
		_, err := s.svc.Register(s.ctx, "jane@example.com", "secret123", "")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.Logout(s.ctx))
		s.False(s.svc.IsAuthenticated())
		s.Nil(s.svc.Snapshot().Identity)
		s.NoError(s.svc.LastError())
	})

	s.Run("clears locally even when provider sign-out fails", func() {
		_, err := s.svc.Login(s.ctx, "jane@example.com", "secret123")
		s.Require().NoError(err)

		s.provider.signOutErr = identity.NewProviderError("auth/network-request-failed", "network down")
		defer func() { s.provider.signOutErr = nil }()

		s.Require().NoError(s.svc.Logout(s.ctx))
		s.False(s.svc.IsAuthenticated())
	})

	s.Run("is idempotent on an anonymous session", func() {
		s.Require().NoError(s.svc.Logout(s.ctx))
		s.False(s.svc.IsAuthenticated())
	})
}

func (s *SessionServiceSuite) TestResetPassword() {
	s.register("jane@example.com", "secret123")

	s.Run("dispatches a reset email", func() {
		s.Require().NoError(s.svc.ResetPassword(s.ctx, "jane@example.com"))
	})

	s.Run("unknown account classifies without changing state", func() {
		_, err := s.svc.Login(s.ctx, "jane@example.com", "secret123")
		s.Require().NoError(err)

		err = s.svc.ResetPassword(s.ctx, "ghost@example.com")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAccountNotFound))

		// The reset failure is recorded but the session survives.
		s.True(s.svc.IsAuthenticated())
		s.Error(s.svc.LastError())
	})
}

func (s *SessionServiceSuite) TestResendVerificationEmail() {
	s.Run("requires an active session", func() {
		err := s.svc.ResendVerificationEmail(s.ctx)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNoActiveSession))
	})

	s.Run("dispatches for the attached identity", func() {
		prof, err := s.svc.Register(s.ctx, "jane@example.com", "secret123", "")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.ResendVerificationEmail(s.ctx))
		s.Equal(2, s.provider.VerificationSends(prof.UID), "register plus resend")
	})

	s.Run("dispatch failures are swallowed", func() {
		s.provider.verificationErr = identity.NewProviderError("auth/internal-error", "smtp down")
		defer func() { s.provider.verificationErr = nil }()

		s.NoError(s.svc.ResendVerificationEmail(s.ctx))
	})
}

func (s *SessionServiceSuite) TestUpdateUserRoles() {
	prof, err := s.svc.Register(s.ctx, "jane@example.com", "secret123", "")
	s.Require().NoError(err)

	s.Run("validates input", func() {
		err := s.svc.UpdateUserRoles(s.ctx, "", []domain.Role{domain.RoleAdmin})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		err = s.svc.UpdateUserRoles(s.ctx, prof.UID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		err = s.svc.UpdateUserRoles(s.ctx, prof.UID, []domain.Role{"superuser"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("classifies an unknown uid as not_found", func() {
		err := s.svc.UpdateUserRoles(s.ctx, "missing-uid", []domain.Role{domain.RoleAdmin})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("persists and patches the live session", func() {
		roles := []domain.Role{domain.RoleAdmin, domain.RoleUser}
		s.Require().NoError(s.svc.UpdateUserRoles(s.ctx, prof.UID, roles))

		s.True(s.svc.HasRole(domain.RoleAdmin))

		stored, err := s.profiles.FindByUID(s.ctx, prof.UID)
		s.Require().NoError(err)
		s.Equal(roles, stored.Roles)
	})

	s.Run("is idempotent", func() {
		roles := []domain.Role{domain.RoleAdmin}
		s.Require().NoError(s.svc.UpdateUserRoles(s.ctx, prof.UID, roles))
		s.Require().NoError(s.svc.UpdateUserRoles(s.ctx, prof.UID, roles))

		stored, err := s.profiles.FindByUID(s.ctx, prof.UID)
		s.Require().NoError(err)
		s.Equal(roles, stored.Roles)
	})

	s.Run("leaves the live session alone for other users", func() {
		other, err := s.profiles.Create(s.ctx, profile.Profile{UID: "other-uid", Email: "other@example.com"})
		s.Require().NoError(err)

		s.Require().NoError(s.svc.UpdateUserRoles(s.ctx, other.UID, []domain.Role{domain.RoleModerator}))
		s.False(s.svc.HasRole(domain.RoleModerator))
	})
}

func (s *SessionServiceSuite) TestUpdateUserPermissions() {
	prof, err := s.svc.Register(s.ctx, "jane@example.com", "secret123", "")
	s.Require().NoError(err)

	s.Run("validates input", func() {
		err := s.svc.UpdateUserPermissions(s.ctx, "", []domain.Permission{"read"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		err = s.svc.UpdateUserPermissions(s.ctx, prof.UID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("classifies an unknown uid as not_found", func() {
		err := s.svc.UpdateUserPermissions(s.ctx, "missing-uid", []domain.Permission{"read"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("persists and patches the live session", func() {
		perms := []domain.Permission{"read", "write"}
		s.Require().NoError(s.svc.UpdateUserPermissions(s.ctx, prof.UID, perms))

		s.True(s.svc.HasPermission("write"))

		stored, err := s.profiles.FindByUID(s.ctx, prof.UID)
		s.Require().NoError(err)
		s.Equal(perms, stored.Permissions)
	})
}

func (s *SessionServiceSuite) TestConcurrentOperationsAreRejected() {
	s.register("jane@example.com", "secret123")

	started := make(chan struct{})
	release := make(chan struct{})
	s.provider.signInStarted = started
	s.provider.signInRelease = release

	loginDone := make(chan error, 1)
	go func() {
		_, err := s.svc.Login(s.ctx, "jane@example.com", "secret123")
		loginDone <- err
	}()

	<-started
	err := s.svc.Logout(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	close(release)
	s.Require().NoError(<-loginDone)
	s.True(s.svc.IsAuthenticated(), "the in-flight operation settles normally")
}

func (s *SessionServiceSuite) TestLoginRefreshesTimestamps() {
	s.register("jane@example.com", "secret123")

	first := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	later := first.Add(3 * time.Hour)

	_, err := s.svc.Login(requestcontext.WithTime(s.ctx, first), "jane@example.com", "secret123")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Logout(s.ctx))

	prof, err := s.svc.Login(requestcontext.WithTime(s.ctx, later), "jane@example.com", "secret123")
	s.Require().NoError(err)
	s.True(prof.LastLoginAt.Equal(later))
}

func TestClassifyProviderError(t *testing.T) {
	suite.Run(t, new(ClassifySuite))
}

type ClassifySuite struct {
	suite.Suite
}

func (s *ClassifySuite) TestWireCodes() {
	cases := map[string]dErrors.Code{
		identity.ErrCodeUserNotFound:      dErrors.CodeAccountNotFound,
		identity.ErrCodeWrongPassword:     dErrors.CodeWrongPassword,
		identity.ErrCodeInvalidCredential: dErrors.CodeInvalidCredential,
		identity.ErrCodeEmailInUse:        dErrors.CodeEmailInUse,
		identity.ErrCodeWeakPassword:      dErrors.CodeWeakPassword,
		identity.ErrCodeInvalidEmail:      dErrors.CodeInvalidEmail,
		identity.ErrCodeTooManyRequests:   dErrors.CodeTooManyAttempts,
		identity.ErrCodePopupClosed:       dErrors.CodePopupClosed,
	}
	for wire, want := range cases {
		err := classifyProviderError(identity.NewProviderError(wire, "raw"))
		s.Equal(want, dErrors.CodeOf(err), "wire code %s", wire)
		s.NotEmpty(dErrors.MessageOf(err))
	}
}

func (s *ClassifySuite) TestUnknownCodePreservesMessage() {
	err := classifyProviderError(identity.NewProviderError("auth/internal-error", "backend exploded"))
	s.Equal(dErrors.CodeUnknown, dErrors.CodeOf(err))
	s.Equal("backend exploded", dErrors.MessageOf(err))
}
