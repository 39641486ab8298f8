package state

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/fixture"
	"github.com/utafrali/storefront/internal/tokenstore"
	"github.com/utafrali/storefront/internal/verify"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

const codeSentMessage = "验证码已发送到您的邮箱"

// CodeFlow names an emailed-code flow. Each flow has its own resend
// countdown per address.
type CodeFlow string

const (
	FlowRegister CodeFlow = "register"
	FlowLogin    CodeFlow = "login"
	FlowReset    CodeFlow = "reset"
)

type emailAddress struct {
	Email string `json:"email" validate:"required,email"`
}

// Session owns the signed-in user and the credential tokens. It is the only
// writer of the persisted tokens and serves them to the API client.
type Session struct {
	opts      Options
	api       SessionAPI
	store     tokenstore.Store
	cooldowns *verify.Cooldowns

	mu      sync.RWMutex
	user    *domain.User
	tokens  domain.TokenPair
	loading tracker
}

// NewSession creates a session and reads the persisted tokens once.
func NewSession(ctx context.Context, opts Options, client SessionAPI, store tokenstore.Store) *Session {
	s := &Session{
		opts:      opts,
		api:       client,
		store:     store,
		cooldowns: verify.NewCooldowns(verify.ResendInterval),
	}
	s.tokens.Access = s.readToken(ctx, tokenstore.KeyAccess)
	s.tokens.Refresh = s.readToken(ctx, tokenstore.KeyRefresh)
	return s
}

func (s *Session) readToken(ctx context.Context, key string) string {
	v, err := s.store.Get(ctx, key)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.opts.log().WarnContext(ctx, "failed to read persisted token",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return v
}

// IsAuthenticated reports whether an access token is held. Mock mode is
// always signed in.
func (s *Session) IsAuthenticated() bool {
	if s.opts.mock() {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != ""
}

// IsAdmin reports whether the signed-in user has the admin role.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

// User returns a copy of the profile, or nil before it was fetched.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

// Snapshot returns a copy of the whole session.
func (s *Session) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Session{User: s.user.Clone(), Tokens: s.tokens}
}

// Loading reports whether a profile fetch is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading.loading()
}

// Tokens implements api.TokenSource.
func (s *Session) Tokens() domain.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// StoreTokens persists both tokens and only then makes them current. When
// persisting fails the previous pair is written back and stays in memory.
// It implements api.TokenSource.
func (s *Session) StoreTokens(ctx context.Context, tokens domain.TokenPair) error {
	s.mu.RLock()
	prev := s.tokens
	s.mu.RUnlock()

	if err := s.persist(ctx, tokens); err != nil {
		if rbErr := s.persist(ctx, prev); rbErr != nil {
			s.opts.log().ErrorContext(ctx, "failed to restore persisted tokens", slog.String("error", rbErr.Error()))
		}
		return err
	}

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	return nil
}

// persist writes tokens to the store. An empty pair clears both keys.
func (s *Session) persist(ctx context.Context, tokens domain.TokenPair) error {
	if tokens == (domain.TokenPair{}) {
		return s.store.Delete(ctx, tokenstore.KeyAccess, tokenstore.KeyRefresh)
	}
	if err := s.store.Set(ctx, tokenstore.KeyAccess, tokens.Access); err != nil {
		return apperrors.Wrap(err, "persist access token")
	}
	if err := s.store.Set(ctx, tokenstore.KeyRefresh, tokens.Refresh); err != nil {
		return apperrors.Wrap(err, "persist refresh token")
	}
	return nil
}

// Login signs in with a username and password, persists the tokens and
// fetches the profile. Rejected credentials come back as an UNAUTHORIZED
// error and leave the session as it was.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if s.opts.mock() {
		return s.signIn(ctx, fixture.Tokens(), fixture.User())
	}

	creds := domain.Credentials{Username: username, Password: password}
	if err := validator.Check(creds); err != nil {
		return err
	}

	tokens, err := s.api.Login(ctx, creds)
	if err != nil {
		return authError(err)
	}
	return s.signIn(ctx, tokens, nil)
}

// signIn stores tokens and sets the user, fetching it when u is nil.
func (s *Session) signIn(ctx context.Context, tokens domain.TokenPair, u *domain.User) error {
	if err := s.StoreTokens(ctx, tokens); err != nil {
		return err
	}
	if u != nil {
		s.mu.Lock()
		s.user = u.Clone()
		s.mu.Unlock()
	}
	if u == nil || !s.opts.mock() {
		s.FetchProfile(ctx)
	}
	s.opts.log().InfoContext(ctx, "signed in", slog.Bool("mock", s.opts.mock()))
	return nil
}

// authError turns a rejected login into an UNAUTHORIZED error, keeping the
// server's message and body. Field errors stay validation errors.
func authError(err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || len(appErr.Fields) > 0 {
		return err
	}
	if appErr.Status != http.StatusBadRequest && appErr.Status != http.StatusUnauthorized {
		return err
	}
	return &apperrors.AppError{
		Code:    "UNAUTHORIZED",
		Message: appErr.Message,
		Status:  appErr.Status,
		Body:    appErr.Body,
		Err:     apperrors.ErrUnauthorized,
	}
}

// Register creates an account. It does not sign in: the emailed code must
// be confirmed with VerifyRegistration first.
func (s *Session) Register(ctx context.Context, in domain.RegisterInput) error {
	if err := validator.Check(in); err != nil {
		return err
	}
	cd := s.cooldown(FlowRegister, in.Email)
	if err := cd.TryResend(s.opts.now()); err != nil {
		return err
	}
	if s.opts.mock() {
		return nil
	}
	if _, err := s.api.Register(ctx, in); err != nil {
		cd.Reset()
		return err
	}
	return nil
}

// ResendVerification posts the registration again so the server mails a new
// code. It fails with RATE_LIMITED while the resend countdown runs.
func (s *Session) ResendVerification(ctx context.Context, in domain.RegisterInput) error {
	return s.Register(ctx, in)
}

// ResendRemaining returns the seconds left on the resend countdown of flow
// for email.
func (s *Session) ResendRemaining(flow CodeFlow, email string) int {
	return s.cooldown(flow, email).RemainingSeconds(s.opts.now())
}

func (s *Session) cooldown(flow CodeFlow, email string) *verify.Cooldown {
	return s.cooldowns.For(string(flow) + ":" + strings.TrimSpace(email))
}

// VerifyRegistration confirms a registration with its emailed code and signs
// the new account in.
func (s *Session) VerifyRegistration(ctx context.Context, email, code string) error {
	in, err := emailCode(email, code)
	if err != nil {
		return err
	}
	if s.opts.mock() {
		return s.signIn(ctx, fixture.Tokens(), fixture.User())
	}

	res, err := s.api.VerifyRegister(ctx, in)
	if err != nil {
		return err
	}
	return s.signIn(ctx, res.TokenPair, nil)
}

// SendLoginCode asks for a login code by email, subject to the login
// resend countdown.
func (s *Session) SendLoginCode(ctx context.Context, email string) (string, error) {
	if err := validator.Check(emailAddress{Email: email}); err != nil {
		return "", err
	}
	cd := s.cooldown(FlowLogin, email)
	if err := cd.TryResend(s.opts.now()); err != nil {
		return "", err
	}
	if s.opts.mock() {
		return codeSentMessage, nil
	}

	msg, err := s.api.SendEmailCode(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrRateLimited) {
			cd.Reset()
		}
		return "", err
	}
	return msg, nil
}

// LoginWithCode signs in with an emailed code.
func (s *Session) LoginWithCode(ctx context.Context, email, code string) error {
	in, err := emailCode(email, code)
	if err != nil {
		return err
	}
	if s.opts.mock() {
		u := fixture.User()
		u.Email = in.Email
		return s.signIn(ctx, fixture.Tokens(), u)
	}

	res, err := s.api.EmailLogin(ctx, in)
	if err != nil {
		return authError(err)
	}
	return s.signIn(ctx, res.TokenPair, nil)
}

func emailCode(email, code string) (domain.EmailCode, error) {
	normalized, err := verify.NormalizeCode(code)
	if err != nil {
		return domain.EmailCode{}, err
	}
	in := domain.EmailCode{Email: email, Code: normalized}
	if err := validator.Check(in); err != nil {
		return domain.EmailCode{}, err
	}
	return in, nil
}

// RequestPasswordReset mails a reset code, subject to the resend countdown.
func (s *Session) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if err := validator.Check(emailAddress{Email: email}); err != nil {
		return "", err
	}
	cd := s.cooldown(FlowReset, email)
	if err := cd.TryResend(s.opts.now()); err != nil {
		return "", err
	}
	if s.opts.mock() {
		return codeSentMessage, nil
	}
	msg, err := s.api.SendResetCode(ctx, email)
	if err != nil {
		cd.Reset()
		return "", err
	}
	return msg, nil
}

// ResetPassword sets a new password with an emailed reset code. It does not
// sign in.
func (s *Session) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	normalized, err := verify.NormalizeCode(code)
	if err != nil {
		return err
	}
	in := domain.PasswordReset{Email: email, Code: normalized, NewPassword: newPassword}
	if err := validator.Check(in); err != nil {
		return err
	}
	if s.opts.mock() {
		return nil
	}
	return s.api.ResetPassword(ctx, in)
}

// FetchProfile loads the profile. Failures are logged and the existing
// session is kept, so a transient error never signs the user out.
func (s *Session) FetchProfile(ctx context.Context) {
	s.mu.Lock()
	gen := s.loading.begin()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading.end()
		s.mu.Unlock()
	}()

	var (
		u   *domain.User
		err error
	)
	if s.opts.mock() {
		u = fixture.User()
	} else {
		u, err = s.api.Me(ctx)
	}
	if err != nil {
		s.opts.log().WarnContext(ctx, "failed to fetch profile", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading.current(gen) {
		s.user = u
	}
}

// UpdateProfile patches the profile and returns the updated copy.
func (s *Session) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (*domain.User, error) {
	if err := validator.Check(in); err != nil {
		return nil, err
	}

	var (
		u   *domain.User
		err error
	)
	if s.opts.mock() {
		u = s.User()
		if u == nil {
			u = fixture.User()
		}
		if in.Username != nil {
			u.Username = *in.Username
		}
	} else if u, err = s.api.UpdateMe(ctx, in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = u.Clone()
	s.mu.Unlock()
	return u, nil
}

// ChangePassword replaces the password of the signed-in user.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	in := domain.PasswordChange{OldPassword: oldPassword, NewPassword: newPassword}
	if err := validator.Check(in); err != nil {
		return err
	}
	if s.opts.mock() {
		return nil
	}
	return s.api.ChangePassword(ctx, in)
}

// Logout clears the in-memory session and both persisted tokens. It never
// fails; store errors are logged.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	var userID string
	if s.user != nil {
		userID = strconv.FormatInt(s.user.ID, 10)
	}
	s.user = nil
	s.tokens = domain.TokenPair{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, tokenstore.KeyAccess, tokenstore.KeyRefresh); err != nil {
		s.opts.log().ErrorContext(ctx, "failed to clear persisted tokens", slog.String("error", err.Error()))
	}
	s.opts.log().InfoContext(ctx, "signed out", slog.String("user_id", userID))
}
