package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/common"
)

type Auth struct {
	s Sender
}

func NewAuth(s Sender) *Auth { return &Auth{s: s} }

// AuthResult is returned by login, signup and email verification. Token is
// empty when the backend wants the email verified first.
type AuthResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    *models.Identity `json:"user"`
}

type SignupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	AdminPasskey string `json:"adminPasskey"`
}

func (a *Auth) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	var out AuthResult
	if err := call(ctx, a.s, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges email and password for a credential. A 403 carrying
// requiresVerification means the account exists but is not verified; check
// it with gateway.RequiresVerification.
func (a *Auth) Login(ctx context.Context, email, password string, role models.Role) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password, "role": string(role)}

	var out AuthResult
	if err := call(ctx, a.s, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login: no token in response: %w", common.ErrorUnauthorized)
	}
	return &out, nil
}

// Verify asks the backend whether the current credential is still good.
func (a *Auth) Verify(ctx context.Context) (*models.Identity, error) {
	var out AuthResult
	if err := get(ctx, a.s, "/auth/verify", &out); err != nil {
		return nil, err
	}
	if !out.Success || out.User == nil {
		return nil, common.ErrorUnauthorized
	}
	return out.User, nil
}

func (a *Auth) SendOTP(ctx context.Context, email string) error {
	return call(ctx, a.s, http.MethodPost, "/auth/send-otp", map[string]string{"email": email}, nil)
}

func (a *Auth) VerifyEmail(ctx context.Context, email, otp string) (*AuthResult, error) {
	var out AuthResult
	if err := call(ctx, a.s, http.MethodPost, "/auth/verify-email", map[string]string{"email": email, "otp": otp}, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.Token == "" {
		return nil, fmt.Errorf("verify email: %w", common.ErrorUnauthorized)
	}
	return &out, nil
}

func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	return call(ctx, a.s, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (a *Auth) ResetPassword(ctx context.Context, token, password string) error {
	return call(ctx, a.s, http.MethodPost, "/auth/reset-password/"+url.PathEscape(token), map[string]string{"password": password}, nil)
}
