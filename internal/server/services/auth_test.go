package services

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/helioview/portal/internal/logging"
	"github.com/helioview/portal/internal/server/models"
	"github.com/helioview/portal/internal/server/repositories/tokens"
	"github.com/helioview/portal/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureMailer records reset links so tests can redeem the tokens.
type captureMailer struct {
	mu    sync.Mutex
	links []string
	sent  chan struct{}
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{sent: make(chan struct{}, 16)}
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	m.mu.Lock()
	m.links = append(m.links, link)
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links)
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

type authFixture struct {
	svc      *AuthService
	users    *users.MemoryRepository
	sessions *tokens.MemoryRepository
	resets   *tokens.MemoryRepository
	mailer   *captureMailer
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	userRepo := users.NewMemoryRepository().WithNow(clock.Now)
	sessionRepo := tokens.NewMemoryRepository(8 * time.Hour).WithNow(clock.Now)
	resetRepo := tokens.NewMemoryRepository(time.Hour).WithNow(clock.Now)
	mailer := newCaptureMailer()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	svc := NewAuthService(userRepo, sessionRepo, resetRepo, mailer, logger,
		"http://localhost:8080").WithNow(clock.Now)
	return &authFixture{
		svc:      svc,
		users:    userRepo,
		sessions: sessionRepo,
		resets:   resetRepo,
		mailer:   mailer,
		clock:    clock,
	}
}

func (f *authFixture) register(t *testing.T, name, email, password string) *models.UserSummary {
	t.Helper()
	summary, err := f.svc.Register(context.Background(), name, email, password)
	require.NoError(t, err)
	return summary
}

func (f *authFixture) awaitMail(t *testing.T) {
	t.Helper()
	select {
	case <-f.mailer.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("no reset mail delivered")
	}
}

func TestRegisterThenLogin_RoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")

	summary, token, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", summary.Email)
	assert.Equal(t, models.RoleStaff, summary.Role)
	require.NotEmpty(t, token)

	email, err := f.svc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)
}

func TestRegister_CanonicalizesEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	summary := f.register(t, "Jane Doe", "Jane@Example.com", "Secret123")
	assert.Equal(t, "jane@example.com", summary.Email)

	// Login is case-insensitive on the email.
	_, _, err := f.svc.Login(ctx, "JANE@EXAMPLE.COM", "Secret123")
	require.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "J", "jane@example.com", "Secret123")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, err = f.svc.Register(ctx, "Jane Doe", "not-an-email", "Secret123")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	_, err = f.svc.Register(ctx, "Jane Doe", "jane@example.com", "allletters")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")

	_, err := f.svc.Register(ctx, "Other Jane", "JANE@example.com", "Other1234")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin_IndistinguishableFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")

	_, _, errWrongPassword := f.svc.Login(ctx, "jane@example.com", "WrongPass1")
	_, _, errUnknownEmail := f.svc.Login(ctx, "nobody@example.com", "Secret123")

	require.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	// The exact same error value: nothing distinguishes the two causes.
	assert.Equal(t, errWrongPassword, errUnknownEmail)
}

func TestLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Login(ctx, "", "Secret123")
	require.ErrorIs(t, err, ErrMissingFields)
	_, _, err = f.svc.Login(ctx, "jane@example.com", "")
	require.ErrorIs(t, err, ErrMissingFields)
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	require.NoError(t, f.svc.SetUserActive(ctx, "jane@example.com", false))

	_, _, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogin_StampsLastLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")

	summary, _, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), summary.LastLogin)
}

func TestSessionExpiry_Boundary(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	_, token, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.NoError(t, err)

	f.clock.Advance(8*time.Hour - time.Second)
	email, err := f.svc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)

	f.clock.Advance(time.Second)
	_, err = f.svc.ResolveSession(ctx, token)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	_, token, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.NoError(t, err)

	f.svc.Logout(ctx, token)
	_, err = f.svc.ResolveSession(ctx, token)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	// Logging out again, or with no token at all, is harmless.
	f.svc.Logout(ctx, token)
	f.svc.Logout(ctx, "")
}

func TestRequestPasswordReset_IdenticalAcknowledgement(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "real@example.com", "Secret123")

	errExisting := f.svc.RequestPasswordReset(ctx, "real@example.com")
	errUnknown := f.svc.RequestPasswordReset(ctx, "nobody@example.com")

	// The caller-visible outcome must not depend on account existence.
	assert.Equal(t, errExisting, errUnknown)
	require.NoError(t, errExisting)

	// Only the real account got a mail.
	f.awaitMail(t)
	f.svc.Wait()
	f.mailer.mu.Lock()
	defer f.mailer.mu.Unlock()
	assert.Len(t, f.mailer.links, 1)
}

func TestRequestPasswordReset_RejectsMalformedEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "not-an-email")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResetPassword_FullFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "jane@example.com"))
	f.awaitMail(t)
	token := f.mailer.lastToken(t)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret1!", "NewSecret1!"))

	// Old password is gone, new one works.
	_, _, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "jane@example.com", "NewSecret1!")
	require.NoError(t, err)
}

func TestResetPassword_TokenIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "jane@example.com"))
	f.awaitMail(t)
	token := f.mailer.lastToken(t)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret1!", "NewSecret1!"))

	err := f.svc.ResetPassword(ctx, token, "OtherSecret1!", "OtherSecret1!")
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestResetPassword_RevokesOutstandingSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	_, session, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "jane@example.com"))
	f.awaitMail(t)
	token := f.mailer.lastToken(t)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret1!", "NewSecret1!"))

	_, err = f.svc.ResolveSession(ctx, session)
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestResetPassword_Failures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "jane@example.com"))
	f.awaitMail(t)
	token := f.mailer.lastToken(t)

	require.ErrorIs(t, f.svc.ResetPassword(ctx, "bogus", "NewSecret1!", "NewSecret1!"),
		ErrInvalidOrExpiredToken)
	require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "NewSecret1!", "Different1!"),
		ErrPasswordMismatch)
	require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "weak", "weak"),
		ErrWeakPassword)

	// The failed attempts did not burn the token.
	require.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret1!", "NewSecret1!"))
}

func TestResetTokenValid(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "jane@example.com"))
	f.awaitMail(t)
	token := f.mailer.lastToken(t)

	assert.True(t, f.svc.ResetTokenValid(ctx, token))
	assert.False(t, f.svc.ResetTokenValid(ctx, ""))
	assert.False(t, f.svc.ResetTokenValid(ctx, "bogus"))

	f.clock.Advance(time.Hour + time.Second)
	assert.False(t, f.svc.ResetTokenValid(ctx, token))
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "jane@example.com"))
	f.awaitMail(t)
	token := f.mailer.lastToken(t)

	f.clock.Advance(time.Hour + time.Second)
	err := f.svc.ResetPassword(ctx, token, "NewSecret1!", "NewSecret1!")
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")

	require.ErrorIs(t,
		f.svc.ChangePassword(ctx, "jane@example.com", "WrongPass1", "NewSecret1!", "NewSecret1!"),
		ErrCurrentPasswordIncorrect)
	require.ErrorIs(t,
		f.svc.ChangePassword(ctx, "jane@example.com", "Secret123", "NewSecret1!", "Different1!"),
		ErrPasswordMismatch)

	require.NoError(t,
		f.svc.ChangePassword(ctx, "jane@example.com", "Secret123", "NewSecret1!", "NewSecret1!"))
	_, _, err := f.svc.Login(ctx, "jane@example.com", "NewSecret1!")
	require.NoError(t, err)
}

func TestChangePassword_WeakPasswordLeavesHashUnchanged(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")

	err := f.svc.ChangePassword(ctx, "jane@example.com", "Secret123", "short", "short")
	require.ErrorIs(t, err, ErrWeakPassword)

	// The old password still works: the stored hash was not touched.
	_, _, err = f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")

	summary, err := f.svc.UpdateProfile(ctx, "jane@example.com", "Jane O. Doe", "Operations", "Oslo")
	require.NoError(t, err)
	assert.Equal(t, "Jane O. Doe", summary.Name)
	assert.Equal(t, "Operations", summary.Department)
	assert.Equal(t, "Oslo", summary.Location)

	// Profile edits enforce the strict name character set.
	_, err = f.svc.UpdateProfile(ctx, "jane@example.com", "Jane_99", "", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestUserBySession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "Jane Doe", "jane@example.com", "Secret123")
	_, token, err := f.svc.Login(ctx, "jane@example.com", "Secret123")
	require.NoError(t, err)

	user, err := f.svc.UserBySession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)

	// Deactivation invalidates the session on next access.
	require.NoError(t, f.svc.SetUserActive(ctx, "jane@example.com", false))
	_, err = f.svc.UserBySession(ctx, token)
	require.ErrorIs(t, err, ErrAccountInactive)
}
