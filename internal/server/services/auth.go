// Package services contains the portal's business logic. AuthService
// orchestrates registration, login, session resolution, password reset
// and profile maintenance over the injected stores.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/helioview/portal/internal/common"
	"github.com/helioview/portal/internal/logging"
	"github.com/helioview/portal/internal/passhash"
	"github.com/helioview/portal/internal/server/mail"
	"github.com/helioview/portal/internal/server/models"
	"github.com/helioview/portal/internal/server/repositories/tokens"
	"github.com/helioview/portal/internal/server/repositories/users"
)

// AuthService implements the authentication and session core.
type AuthService struct {
	users        users.Repository
	sessions     tokens.Repository
	resets       tokens.Repository
	mailer       mail.Mailer
	logger       logging.Logger
	resetBaseURL string
	now          func() time.Time

	// background tracks reset-mail goroutines so shutdown can drain them.
	background sync.WaitGroup
}

// NewAuthService wires an AuthService over the given stores. resetBaseURL
// is the externally reachable prefix reset links are built from.
func NewAuthService(
	userRepo users.Repository,
	sessionRepo tokens.Repository,
	resetRepo tokens.Repository,
	mailer mail.Mailer,
	logger logging.Logger,
	resetBaseURL string,
) *AuthService {
	return &AuthService{
		users:        userRepo,
		sessions:     sessionRepo,
		resets:       resetRepo,
		mailer:       mailer,
		logger:       logger.With("module", "auth_service"),
		resetBaseURL: strings.TrimRight(resetBaseURL, "/"),
		now:          time.Now,
	}
}

// WithNow overrides the clock. Test seam.
func (s *AuthService) WithNow(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Wait blocks until all background deliveries in flight have finished.
func (s *AuthService) Wait() {
	s.background.Wait()
}

// Register creates a new staff account from the submitted credentials.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.UserSummary, error) {
	if err := validateName(name, false); err != nil {
		return nil, err
	}
	canonical := models.CanonicalEmail(email)
	if err := validateEmail(canonical); err != nil {
		return nil, err
	}
	if err := checkRegistrationPassword(password); err != nil {
		return nil, err
	}

	hash, err := passhash.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	created, err := s.users.Create(ctx, &models.User{
		Name:         strings.TrimSpace(name),
		Email:        canonical,
		PasswordHash: hash,
		Role:         models.RoleStaff,
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, ErrDuplicateEmail
		}
		s.logger.Error(ctx, "user creation failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "email", created.Email)
	summary := created.Summary()
	return &summary, nil
}

// Login verifies the credentials and, on success, issues a session token
// and stamps the user's last login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.UserSummary, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, "", ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, "", common.ErrorInternal
	}

	if !passhash.Verify(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.Active {
		return nil, "", ErrAccountInactive
	}

	token, err := s.sessions.Issue(ctx, user.Email)
	if err != nil {
		s.logger.Error(ctx, "session issue failed", "error", err)
		return nil, "", common.ErrorInternal
	}

	user.LastLogin = s.now()
	updated, err := s.users.Save(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "last-login update failed", "error", err)
		return nil, "", common.ErrorInternal
	}

	s.logger.Info(ctx, "user logged in", "email", updated.Email)
	summary := updated.Summary()
	return &summary, token, nil
}

// Logout invalidates the session token. It always succeeds: a blank or
// unknown token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		s.logger.Error(ctx, "session invalidation failed", "error", err)
	}
}

// ResolveSession maps a session token to the owning email, lazily
// evicting an expired one.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidOrExpiredToken
	}
	email, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", ErrInvalidOrExpiredToken
		}
		s.logger.Error(ctx, "session resolution failed", "error", err)
		return "", common.ErrorInternal
	}
	return email, nil
}

// UserBySession resolves a session token all the way to the user record.
// A token whose user has since been deactivated or removed counts as
// invalid.
func (s *AuthService) UserBySession(ctx context.Context, token string) (*models.User, error) {
	email, err := s.ResolveSession(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// RequestPasswordReset acknowledges immediately and identically whether
// or not the email belongs to an account; the lookup, token issue and
// mail delivery all happen in the background so neither the response
// nor its latency reveals which emails are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	canonical := models.CanonicalEmail(email)
	if err := validateEmail(canonical); err != nil {
		return err
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		// The request context ends with the HTTP response; delivery
		// continues on its own.
		bg := context.Background()

		user, err := s.users.GetByEmail(bg, canonical)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				s.logger.Error(bg, "user lookup failed", "error", err)
			}
			return
		}
		if !user.Active {
			return
		}

		token, err := s.resets.Issue(bg, user.Email)
		if err != nil {
			s.logger.Error(bg, "reset token issue failed", "error", err)
			return
		}

		link := fmt.Sprintf("%s/reset-password?token=%s", s.resetBaseURL, token)
		if err := s.mailer.SendPasswordReset(bg, user.Email, link); err != nil {
			s.logger.Error(bg, "reset mail delivery failed", "email", user.Email, "error", err)
		}
	}()

	return nil
}

// ResetTokenValid reports whether a reset token can still be redeemed,
// without exposing the owning account. Used to gate the reset form
// before the user types anything.
func (s *AuthService) ResetTokenValid(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, err := s.resets.Resolve(ctx, token)
	return err == nil
}

// ResetPassword redeems a reset token for a new password. The token is
// consumed atomically, so it works exactly once; all outstanding
// sessions for the account are invalidated as well.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	if _, err := s.resets.Resolve(ctx, token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidOrExpiredToken
		}
		s.logger.Error(ctx, "reset token resolution failed", "error", err)
		return common.ErrorInternal
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if err := checkChangePassword(newPassword); err != nil {
		return err
	}

	// Consume may still lose to a concurrent redeemer or to expiry; the
	// winner is whoever gets the email back.
	email, err := s.resets.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidOrExpiredToken
		}
		s.logger.Error(ctx, "reset token consume failed", "error", err)
		return common.ErrorInternal
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidOrExpiredToken
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return common.ErrorInternal
	}

	hash, err := passhash.Hash(newPassword)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return common.ErrorInternal
	}
	user.PasswordHash = hash
	if _, err := s.users.Save(ctx, user); err != nil {
		s.logger.Error(ctx, "password update failed", "error", err)
		return common.ErrorInternal
	}

	// A fresh credential revokes every session minted under the old one.
	if err := s.sessions.InvalidateAll(ctx, user.Email); err != nil {
		s.logger.Error(ctx, "session revocation failed", "email", user.Email, "error", err)
	}

	s.logger.Info(ctx, "password reset completed", "email", user.Email)
	return nil
}

// UpdateProfile changes the caller's display name and the optional
// department/location fields. The identity must already have been
// resolved from a live session.
func (s *AuthService) UpdateProfile(ctx context.Context, email, name, department, location string) (*models.UserSummary, error) {
	if err := validateName(name, true); err != nil {
		return nil, err
	}
	if err := validateOptionalText("department", department); err != nil {
		return nil, err
	}
	if err := validateOptionalText("location", location); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	user.Name = strings.TrimSpace(name)
	user.Department = department
	user.Location = location

	updated, err := s.users.Save(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "profile update failed", "error", err)
		return nil, common.ErrorInternal
	}
	summary := updated.Summary()
	return &summary, nil
}

// ChangePassword replaces the caller's password after re-verifying the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, email, current, newPassword, confirmPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return common.ErrorInternal
	}

	if !passhash.Verify(current, user.PasswordHash) {
		return ErrCurrentPasswordIncorrect
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if err := checkChangePassword(newPassword); err != nil {
		return err
	}

	hash, err := passhash.Hash(newPassword)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return common.ErrorInternal
	}
	user.PasswordHash = hash
	if _, err := s.users.Save(ctx, user); err != nil {
		s.logger.Error(ctx, "password update failed", "error", err)
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "password changed", "email", user.Email)
	return nil
}

// ListUsers returns summaries of every account, for role-gated
// administrative views.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error(ctx, "user listing failed", "error", err)
		return nil, common.ErrorInternal
	}
	out := make([]models.UserSummary, 0, len(all))
	for _, u := range all {
		out = append(out, u.Summary())
	}
	return out, nil
}

// SetUserActive toggles an account's active flag. Deactivation does not
// revoke outstanding sessions by itself; UserBySession refuses inactive
// accounts on the next access.
func (s *AuthService) SetUserActive(ctx context.Context, email string, active bool) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return common.ErrorInternal
	}
	user.Active = active
	if _, err := s.users.Save(ctx, user); err != nil {
		s.logger.Error(ctx, "activation toggle failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}
