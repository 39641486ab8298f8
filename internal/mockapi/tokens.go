package mockapi

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/middleware"
)

const issuer = "storefront-mockapi"

// Token types carried in the claims so a refresh token is never accepted as
// an access token and vice versa.
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Claims are the claims of both token kinds.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 token pairs.
type TokenIssuer struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewTokenIssuer creates an issuer with the given secret and lifetimes.
func NewTokenIssuer(secret string, accessExpiry, refreshExpiry time.Duration, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           now,
	}
}

// Issue creates an access and refresh token for u.
func (m *TokenIssuer) Issue(u *domain.User) (domain.TokenPair, error) {
	access, err := m.AccessToken(u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := m.sign(Claims{UserID: strconv.FormatInt(u.ID, 10), TokenType: tokenRefresh}, m.refreshExpiry)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

// AccessToken creates an access token for u.
func (m *TokenIssuer) AccessToken(u *domain.User) (string, error) {
	token, err := m.sign(Claims{
		UserID:    strconv.FormatInt(u.ID, 10),
		Username:  u.Username,
		Role:      u.Role,
		TokenType: tokenAccess,
	}, m.accessExpiry)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

func (m *TokenIssuer) sign(claims Claims, expiry time.Duration) (string, error) {
	now := m.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		Issuer:    issuer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateAccess implements middleware.TokenValidator.
func (m *TokenIssuer) ValidateAccess(token string) (*middleware.Claims, error) {
	claims, err := m.parse(token, tokenAccess)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

// ValidateRefresh returns the user id a refresh token was issued to.
func (m *TokenIssuer) ValidateRefresh(token string) (int64, error) {
	claims, err := m.parse(token, tokenRefresh)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid refresh token subject: %w", err)
	}
	return id, nil
}

func (m *TokenIssuer) parse(token, kind string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("parse %s token: %w", kind, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid %s token claims", kind)
	}
	if claims.TokenType != kind {
		return nil, errors.New("token has wrong type")
	}
	return claims, nil
}
