package api

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
)

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.TokenPair, error) {
	var pair domain.TokenPair
	err := c.do(ctx, request{
		method: http.MethodPost, path: "auth/login/", body: creds,
		resource: "auth/login", anonymous: true,
	}, &pair)
	return pair, err
}

// Register creates an account. The account is usable once the emailed code
// has been verified.
func (c *Client) Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error) {
	var u domain.User
	err := c.do(ctx, request{
		method: http.MethodPost, path: "auth/register/", body: in,
		resource: "auth/register", anonymous: true,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyRegister confirms a registration with its emailed code and returns
// the first token pair of the new account.
func (c *Client) VerifyRegister(ctx context.Context, in domain.EmailCode) (*domain.EmailLoginResult, error) {
	var res domain.EmailLoginResult
	err := c.do(ctx, request{
		method: http.MethodPost, path: "auth/verify_register/", body: in,
		resource: "auth/verify_register", anonymous: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SendEmailCode asks the server to email a login code.
func (c *Client) SendEmailCode(ctx context.Context, email string) (string, error) {
	var msg message
	err := c.do(ctx, request{
		method: http.MethodPost, path: "auth/send_email_code/", body: map[string]string{"email": email},
		resource: "auth/send_email_code", anonymous: true,
	}, &msg)
	return msg.Message, err
}

// EmailLogin signs in with an emailed code. The server creates the account
// on first use.
func (c *Client) EmailLogin(ctx context.Context, in domain.EmailCode) (*domain.EmailLoginResult, error) {
	var res domain.EmailLoginResult
	err := c.do(ctx, request{
		method: http.MethodPost, path: "auth/email_login/", body: in,
		resource: "auth/email_login", anonymous: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SendResetCode asks the server to email a password reset code.
func (c *Client) SendResetCode(ctx context.Context, email string) (string, error) {
	var msg message
	err := c.do(ctx, request{
		method: http.MethodPost, path: "auth/send_reset_code/", body: map[string]string{"email": email},
		resource: "auth/send_reset_code", anonymous: true,
	}, &msg)
	return msg.Message, err
}

// ResetPassword sets a new password using an emailed reset code.
func (c *Client) ResetPassword(ctx context.Context, in domain.PasswordReset) error {
	return c.do(ctx, request{
		method: http.MethodPost, path: "auth/reset_password/", body: in,
		resource: "auth/reset_password", anonymous: true,
	}, nil)
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	var pair domain.TokenPair
	err := c.do(ctx, request{
		method: http.MethodPost, path: "auth/refresh/", body: map[string]string{"refresh": refreshToken},
		resource: "auth/refresh", anonymous: true,
	}, &pair)
	if pair.Refresh == "" {
		pair.Refresh = refreshToken
	}
	return pair, err
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "auth/me/", resource: "auth/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe patches the signed-in user's profile.
func (c *Client) UpdateMe(ctx context.Context, in domain.ProfileUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, request{method: http.MethodPatch, path: "auth/me/", body: in, resource: "auth/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword replaces the password of the signed-in user.
func (c *Client) ChangePassword(ctx context.Context, in domain.PasswordChange) error {
	return c.do(ctx, request{
		method: http.MethodPut, path: "auth/password_change/", body: in, resource: "auth/password_change",
	}, nil)
}

// message is the {"message": "..."} acknowledgement body.
type message struct {
	Message string `json:"message"`
}
