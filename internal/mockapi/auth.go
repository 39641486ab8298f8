package mockapi

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
)

type emailRequest struct {
	Email string `json:"email"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *domain.User, status int) {
	pair, err := s.tokens.Issue(u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, domain.EmailLoginResult{TokenPair: pair, User: u})
}

// logCode stands in for the mail the real backend sends.
func (s *Server) logCode(r *http.Request, purpose, email, code string) {
	s.logger.InfoContext(r.Context(), "verification code issued",
		slog.String("purpose", purpose),
		slog.String("email", email),
		slog.String("code", code),
	)
}

// Login handles POST auth/login/
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !decode(w, r, &creds) {
		return
	}
	u, err := s.store.Login(creds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pair, err := s.tokens.Issue(u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

// Register handles POST auth/register/
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	u, code, err := s.store.Register(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logCode(r, PurposeRegister, in.Email, code)
	httputil.WriteJSON(w, http.StatusCreated, u)
}

// VerifyRegister handles POST auth/verify_register/
func (s *Server) VerifyRegister(w http.ResponseWriter, r *http.Request) {
	var in domain.EmailCode
	if !decode(w, r, &in) {
		return
	}
	u, err := s.store.VerifyRegister(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.signIn(w, r, u, http.StatusOK)
}

// Refresh handles POST auth/refresh/
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := s.tokens.ValidateRefresh(req.Refresh)
	if err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorBody{
			Detail: "Token is invalid or expired",
			Code:   "token_not_valid",
		})
		return
	}
	u, err := s.store.User(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	access, err := s.tokens.AccessToken(u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, domain.TokenPair{Access: access})
}

// Me handles GET auth/me/
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.User(userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// UpdateMe handles PATCH auth/me/
func (s *Server) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in domain.ProfileUpdate
	if !decode(w, r, &in) {
		return
	}
	u, err := s.store.UpdateUser(userID(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// ChangePassword handles PUT auth/password_change/
func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in domain.PasswordChange
	if !decode(w, r, &in) {
		return
	}
	if err := s.store.ChangePassword(userID(r), in); err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) sendCode(w http.ResponseWriter, r *http.Request, purpose, ack string) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	code, err := s.store.SendCode(purpose, req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logCode(r, purpose, req.Email, code)
	httputil.WriteMessage(w, http.StatusOK, ack)
}

// SendEmailCode handles POST auth/send_email_code/
func (s *Server) SendEmailCode(w http.ResponseWriter, r *http.Request) {
	s.sendCode(w, r, PurposeLogin, "验证码已发送到您的邮箱")
}

// SendResetCode handles POST auth/send_reset_code/
func (s *Server) SendResetCode(w http.ResponseWriter, r *http.Request) {
	s.sendCode(w, r, PurposeReset, "重置验证码已发送到您的邮箱")
}

// EmailLogin handles POST auth/email_login/
func (s *Server) EmailLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.EmailCode
	if !decode(w, r, &in) {
		return
	}
	u, err := s.store.EmailLogin(in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.signIn(w, r, u, http.StatusOK)
}

// ResetPassword handles POST auth/reset_password/
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in domain.PasswordReset
	if !decode(w, r, &in) {
		return
	}
	if err := s.store.ResetPassword(in); err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "密码重置成功")
}
