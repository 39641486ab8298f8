package domain

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the authenticated account profile returned by auth/me/.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	DateJoined  Time   `json:"date_joined"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a copy of u, or nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// TokenPair is the JWT pair issued on login and verification.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Session is the client's view of the signed-in user.
type Session struct {
	User   *User
	Tokens TokenPair
}

// IsAuthenticated holds exactly when an access token is present.
func (s Session) IsAuthenticated() bool {
	return s.Tokens.Access != ""
}

// Credentials is the username/password login payload.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the sign-up payload. Registration does not sign in; the
// account is activated through an emailed verification code.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// EmailCode identifies a six digit code sent to an address.
type EmailCode struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// EmailLoginResult is returned by the email code login endpoint.
type EmailLoginResult struct {
	TokenPair
	User *User `json:"user"`
}

// ProfileUpdate is a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=150"`
}

// PasswordChange is the body of auth/password_change/.
type PasswordChange struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128,nefield=OldPassword"`
}

// PasswordReset completes a reset started with a code sent by email.
type PasswordReset struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128"`
}
