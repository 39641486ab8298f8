package state

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/fixture"
	"github.com/utafrali/storefront/internal/tokenstore"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func seededStore(t *testing.T, access, refresh string) *tokenstore.MemoryStore {
	t.Helper()
	store := tokenstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, tokenstore.KeyAccess, access))
	require.NoError(t, store.Set(ctx, tokenstore.KeyRefresh, refresh))
	return store
}

func validRegistration() domain.RegisterInput {
	return domain.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"}
}

func TestNewSession_ReadsPersistedTokens(t *testing.T) {
	s := NewSession(context.Background(), liveOpts(), newMockAPI(t), seededStore(t, "a1", "r1"))

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, domain.TokenPair{Access: "a1", Refresh: "r1"}, s.Tokens())
}

func TestNewSession_EmptyStore(t *testing.T) {
	s := NewSession(context.Background(), liveOpts(), newMockAPI(t), tokenstore.NewMemoryStore())

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.AccessToken())
	assert.Nil(t, s.User())
}

func TestSession_MockModeIsAlwaysAuthenticated(t *testing.T) {
	s := NewSession(context.Background(), mockOpts(), newMockAPI(t), tokenstore.NewMemoryStore())
	assert.True(t, s.IsAuthenticated())
}

func TestSession_MockLogin(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	s := NewSession(ctx, mockOpts(), newMockAPI(t), store)

	require.NoError(t, s.Login(ctx, "", ""))

	assert.Equal(t, fixture.AccessToken, s.AccessToken())
	require.NotNil(t, s.User())
	assert.Equal(t, "testuser", s.User().Username)
	assert.False(t, s.IsAdmin())

	persisted, err := store.Get(ctx, tokenstore.KeyAccess)
	require.NoError(t, err)
	assert.Equal(t, fixture.AccessToken, persisted)
}

func TestSession_LiveLogin(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	store := tokenstore.NewMemoryStore()
	s := NewSession(ctx, liveOpts(), api, store)

	creds := domain.Credentials{Username: "alice", Password: "secret1"}
	api.On("Login", mock.Anything, creds).Return(domain.TokenPair{Access: "acc", Refresh: "ref"}, nil)
	api.On("Me", mock.Anything).Return(&domain.User{ID: 7, Username: "alice", Role: "admin"}, nil)

	require.NoError(t, s.Login(ctx, "alice", "secret1"))

	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.IsAdmin())
	assert.Equal(t, int64(7), s.User().ID)

	refresh, err := store.Get(ctx, tokenstore.KeyRefresh)
	require.NoError(t, err)
	assert.Equal(t, "ref", refresh)
}

func TestSession_LiveLogin_RejectedCredentials(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())

	rejected := &apperrors.AppError{
		Code:    "INVALID_INPUT",
		Message: "用户名或密码错误",
		Status:  http.StatusBadRequest,
		Body:    `{"detail":"用户名或密码错误"}`,
		Err:     apperrors.ErrInvalidInput,
	}
	api.On("Login", mock.Anything, mock.Anything).Return(domain.TokenPair{}, rejected)

	err := s.Login(ctx, "alice", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "用户名或密码错误", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Body, "detail")

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
}

func TestSession_LiveLogin_FieldErrorsStayValidation(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())

	fieldErr := apperrors.Validation("validation failed", map[string]string{"username": "This field may not be blank."})
	api.On("Login", mock.Anything, mock.Anything).Return(domain.TokenPair{}, fieldErr)

	err := s.Login(ctx, "alice", "pw")
	assert.Same(t, fieldErr, err)
}

func TestSession_LiveLogin_MissingFieldsNeverCallAPI(t *testing.T) {
	s := NewSession(context.Background(), liveOpts(), newMockAPI(t), tokenstore.NewMemoryStore())

	err := s.Login(context.Background(), "", "")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSession_ProfileFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, seededStore(t, "a1", "r1"))

	api.On("Me", mock.Anything).Return(nil, apperrors.Network(errors.New("connection refused"))).Once()
	s.FetchProfile(ctx)

	assert.True(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	assert.False(t, s.Loading())
}

func TestSession_Logout(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "a1", "r1")
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, store)
	api.On("Me", mock.Anything).Return(&domain.User{ID: 1, Username: "alice"}, nil)
	s.FetchProfile(ctx)
	require.NotNil(t, s.User())

	s.Logout(ctx)

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	assert.Equal(t, domain.TokenPair{}, s.Tokens())

	_, err := store.Get(ctx, tokenstore.KeyAccess)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Get(ctx, tokenstore.KeyRefresh)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSession_StoreTokensPersistsBoth(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	s := NewSession(ctx, liveOpts(), newMockAPI(t), store)

	require.NoError(t, s.StoreTokens(ctx, domain.TokenPair{Access: "new-a", Refresh: "new-r"}))

	access, _ := store.Get(ctx, tokenstore.KeyAccess)
	refresh, _ := store.Get(ctx, tokenstore.KeyRefresh)
	assert.Equal(t, "new-a", access)
	assert.Equal(t, "new-r", refresh)
	assert.Equal(t, "new-a", s.AccessToken())
}

// flakyStore refuses to store the listed values.
type flakyStore struct {
	*tokenstore.MemoryStore
	refuse map[string]bool
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if f.refuse == nil || f.refuse[value] {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestSession_LoginFailsWhenTokensCannotBePersisted(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, &flakyStore{MemoryStore: tokenstore.NewMemoryStore()})
	api.On("Login", mock.Anything, mock.Anything).Return(domain.TokenPair{Access: "acc", Refresh: "ref"}, nil)

	err := s.Login(ctx, "alice", "secret1")

	require.ErrorContains(t, err, "disk full")
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, domain.TokenPair{}, s.Tokens())
	api.AssertNotCalled(t, "Me", mock.Anything)
}

func TestSession_StoreTokensRestoresPreviousPairOnFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: seededStore(t, "a1", "r1"), refuse: map[string]bool{"r2": true}}
	s := NewSession(ctx, liveOpts(), newMockAPI(t), store)

	err := s.StoreTokens(ctx, domain.TokenPair{Access: "a2", Refresh: "r2"})

	require.ErrorContains(t, err, "persist refresh token")
	assert.Equal(t, domain.TokenPair{Access: "a1", Refresh: "r1"}, s.Tokens())
	access, _ := store.Get(ctx, tokenstore.KeyAccess)
	refresh, _ := store.Get(ctx, tokenstore.KeyRefresh)
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)
}

func TestSession_RegisterCooldown(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, mockOpts(), newMockAPI(t), tokenstore.NewMemoryStore())
	in := validRegistration()

	require.NoError(t, s.Register(ctx, in))
	assert.Equal(t, 60, s.ResendRemaining(FlowRegister, in.Email))

	err := s.ResendVerification(ctx, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRateLimited))
	assert.Contains(t, err.Error(), "60")

	// same mailbox, different case
	err = s.Register(ctx, domain.RegisterInput{Username: "alice", Email: "ALICE@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, apperrors.ErrRateLimited))
}

func TestSession_CodeFlowsCountDownSeparately(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx, mockOpts(), newMockAPI(t), tokenstore.NewMemoryStore())
	in := validRegistration()

	require.NoError(t, s.Register(ctx, in))
	_, err := s.RequestPasswordReset(ctx, in.Email)
	require.NoError(t, err)
	_, err = s.SendLoginCode(ctx, in.Email)
	require.NoError(t, err)

	for _, flow := range []CodeFlow{FlowRegister, FlowLogin, FlowReset} {
		assert.Equal(t, 60, s.ResendRemaining(flow, in.Email), flow)
	}
	_, err = s.RequestPasswordReset(ctx, in.Email)
	assert.True(t, errors.Is(err, apperrors.ErrRateLimited))
}

func TestSession_RegisterDoesNotSignIn(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())
	in := validRegistration()

	api.On("Register", mock.Anything, in).Return(&domain.User{ID: 9, Username: in.Username}, nil)

	require.NoError(t, s.Register(ctx, in))
	assert.False(t, s.IsAuthenticated())
}

func TestSession_RegisterFailureResetsCooldown(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())
	in := validRegistration()

	dup := apperrors.Validation("validation failed", map[string]string{"username": "已存在"})
	api.On("Register", mock.Anything, in).Return(nil, dup)

	assert.Same(t, dup, s.Register(ctx, in))
	assert.Zero(t, s.ResendRemaining(FlowRegister, in.Email))
}

func TestSession_SendLoginCode(t *testing.T) {
	ctx := context.Background()

	t.Run("mock", func(t *testing.T) {
		s := NewSession(ctx, mockOpts(), newMockAPI(t), tokenstore.NewMemoryStore())
		msg, err := s.SendLoginCode(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, "验证码已发送到您的邮箱", msg)
	})

	t.Run("invalid email", func(t *testing.T) {
		s := NewSession(ctx, liveOpts(), newMockAPI(t), tokenstore.NewMemoryStore())
		_, err := s.SendLoginCode(ctx, "not-an-email")
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("network failure resets countdown", func(t *testing.T) {
		api := newMockAPI(t)
		s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())
		api.On("SendEmailCode", mock.Anything, "bob@example.com").
			Return("", apperrors.Network(errors.New("reset by peer")))

		_, err := s.SendLoginCode(ctx, "bob@example.com")
		require.Error(t, err)
		assert.Zero(t, s.ResendRemaining(FlowLogin, "bob@example.com"))
	})

	t.Run("server throttle keeps countdown", func(t *testing.T) {
		api := newMockAPI(t)
		s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())
		api.On("SendEmailCode", mock.Anything, "bob@example.com").
			Return("", apperrors.RateLimited("请求过于频繁"))

		_, err := s.SendLoginCode(ctx, "bob@example.com")
		require.Error(t, err)
		assert.Equal(t, 60, s.ResendRemaining(FlowLogin, "bob@example.com"))
	})
}

func TestSession_LoginWithCode(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes pasted code", func(t *testing.T) {
		api := newMockAPI(t)
		s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())

		res := &domain.EmailLoginResult{TokenPair: domain.TokenPair{Access: "acc", Refresh: "ref"}}
		api.On("EmailLogin", mock.Anything, domain.EmailCode{Email: "bob@example.com", Code: "123456"}).Return(res, nil)
		api.On("Me", mock.Anything).Return(&domain.User{ID: 3, Username: "bob"}, nil)

		require.NoError(t, s.LoginWithCode(ctx, "bob@example.com", " 123-456 "))
		assert.True(t, s.IsAuthenticated())
		assert.Equal(t, "bob", s.User().Username)
	})

	t.Run("malformed code", func(t *testing.T) {
		s := NewSession(ctx, liveOpts(), newMockAPI(t), tokenstore.NewMemoryStore())
		err := s.LoginWithCode(ctx, "bob@example.com", "12ab56")
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Fields, "code")
	})

	t.Run("mock uses typed email", func(t *testing.T) {
		s := NewSession(ctx, mockOpts(), newMockAPI(t), tokenstore.NewMemoryStore())
		require.NoError(t, s.LoginWithCode(ctx, "carol@example.com", "000000"))
		assert.Equal(t, "carol@example.com", s.User().Email)
	})
}

func TestSession_VerifyRegistrationSignsIn(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())

	res := &domain.EmailLoginResult{TokenPair: domain.TokenPair{Access: "acc", Refresh: "ref"}}
	api.On("VerifyRegister", mock.Anything, domain.EmailCode{Email: "alice@example.com", Code: "654321"}).Return(res, nil)
	api.On("Me", mock.Anything).Return(&domain.User{ID: 10, Username: "alice"}, nil)

	require.NoError(t, s.VerifyRegistration(ctx, "alice@example.com", "654321"))
	assert.Equal(t, "acc", s.AccessToken())
}

func TestSession_ResetPassword(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, tokenstore.NewMemoryStore())

	want := domain.PasswordReset{Email: "alice@example.com", Code: "111222", NewPassword: "newpass1"}
	api.On("ResetPassword", mock.Anything, want).Return(nil)

	require.NoError(t, s.ResetPassword(ctx, "alice@example.com", "111 222", "newpass1"))
	assert.False(t, s.IsAuthenticated())
}

func TestSession_ChangePasswordMustDiffer(t *testing.T) {
	s := NewSession(context.Background(), liveOpts(), newMockAPI(t), tokenstore.NewMemoryStore())

	err := s.ChangePassword(context.Background(), "secret1", "secret1")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSession_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	s := NewSession(ctx, liveOpts(), api, seededStore(t, "a1", "r1"))

	name := "alice2"
	api.On("UpdateMe", mock.Anything, domain.ProfileUpdate{Username: &name}).
		Return(&domain.User{ID: 1, Username: name}, nil)

	u, err := s.UpdateProfile(ctx, domain.ProfileUpdate{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, name, u.Username)
	assert.Equal(t, name, s.User().Username)
}
