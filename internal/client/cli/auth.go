package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/common"
)

// getSimpleText, getPassword and getOTP are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getOTP        = GetOTP
	getConfirm    = GetConfirm
)

var errNoPendingEmail = errors.New("no email is waiting for verification; sign up or log in first")

// argOrPrompt returns args[0] when present, otherwise asks for it.
func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	v, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s: %w", strings.ToLower(prompt), common.ErrorValidation)
	}
	return v, nil
}

// Signup creates an account and continues straight into email
// verification. An admin passkey, when given, requests an admin account.
func (a *App) Signup(ctx context.Context, args []string) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	email, err := a.argOrPrompt(args, "Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	passkey, err := getSimpleText(a.reader, "Admin passkey (leave empty for a regular account)", a.out)
	if err != nil {
		return err
	}

	res, err := a.auth.Signup(ctx, api.SignupRequest{Name: name, Email: email, Password: password, AdminPasskey: passkey})
	if err != nil {
		return err
	}
	if res.Message != "" {
		a.printf("%s", res.Message)
	}
	return a.startVerification(ctx, email)
}

// Login authenticates with email and password. An unverified account is
// routed into the verification flow instead of failing.
func (a *App) Login(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, "Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	r, err := getSimpleText(a.reader, "Role (user/admin) [user]", a.out)
	if err != nil {
		return err
	}
	role := models.RoleUser
	if strings.EqualFold(r, string(models.RoleAdmin)) {
		role = models.RoleAdmin
	}

	res, err := a.auth.Login(ctx, email, password, role)
	if gateway.RequiresVerification(err) {
		a.printf("Your email is not verified yet")
		return a.startVerification(ctx, email)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return a.establish(ctx, res.Token)
}

// startVerification remembers email as pending and asks for the code.
func (a *App) startVerification(ctx context.Context, email string) error {
	if err := a.prefs.SetPendingEmail(ctx, email); err != nil {
		a.log.Warn(ctx, "remember pending email", "error", err)
	}
	a.printf("We sent a 6-digit code to %s (type 'resend' for a new one)", email)
	return a.verify(ctx, email)
}

// Verify asks for the OTP of the pending email, or of args[0].
func (a *App) Verify(ctx context.Context, args []string) error {
	email, err := a.pendingEmail(ctx, args)
	if err != nil {
		return err
	}
	return a.verify(ctx, email)
}

func (a *App) verify(ctx context.Context, email string) error {
	otp, err := getOTP(a.reader, a.out)
	if err != nil {
		return err
	}
	res, err := a.auth.VerifyEmail(ctx, email, otp)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if err := a.prefs.ClearPendingEmail(ctx); err != nil {
		a.log.Warn(ctx, "forget pending email", "error", err)
	}
	return a.establish(ctx, res.Token)
}

// Resend requests a fresh OTP for the pending email, or for args[0].
func (a *App) Resend(ctx context.Context, args []string) error {
	email, err := a.pendingEmail(ctx, args)
	if err != nil {
		return err
	}
	if err := a.auth.SendOTP(ctx, email); err != nil {
		return fmt.Errorf("failed to resend code: %w", err)
	}
	a.printf("A new code has been sent to %s", email)
	return nil
}

func (a *App) pendingEmail(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	email, err := a.prefs.PendingEmail(ctx)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", errNoPendingEmail
	}
	return email, nil
}

func (a *App) Forgot(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, "Enter email")
	if err != nil {
		return err
	}
	if err := a.auth.ForgotPassword(ctx, email); err != nil {
		return err
	}
	a.printf("If %s has an account, a reset link is on its way", email)
	return nil
}

// Reset sets a new password using the token from the reset link.
func (a *App) Reset(ctx context.Context, args []string) error {
	token, err := a.argOrPrompt(args, "Enter reset token")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	a.printf("Repeat the new password")
	again, err := getPassword(a.out)
	if err != nil {
		return err
	}
	if password != again {
		return fmt.Errorf("passwords do not match: %w", common.ErrorValidation)
	}
	if err := a.auth.ResetPassword(ctx, token, password); err != nil {
		return err
	}
	a.printf("Password updated, you can log in now")
	return nil
}

// establish hands the credential to the session controller.
func (a *App) establish(ctx context.Context, token string) error {
	if err := a.session.Login(ctx, token); err != nil {
		return fmt.Errorf("signed in, but your profile could not be loaded: %w", err)
	}
	s := a.session.Current()
	if s.Identity != nil {
		a.printf("Welcome, %s!", s.Identity.DisplayName)
	}
	return nil
}

// Logout ends the session. With --all it also wipes every locally stored
// entry, including the saved theme and a pending verification email.
func (a *App) Logout(ctx context.Context, args []string) error {
	a.unmount()
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.printf("Logged out")

	if len(args) > 0 && args[0] == "--all" {
		n, err := a.prefs.Reset(ctx)
		if err != nil {
			return fmt.Errorf("clear local data: %w", err)
		}
		a.printf("Removed %d local entries", n)
	}
	return nil
}

// Whoami confirms the credential with the backend and prints the signed-in
// user.
func (a *App) Whoami(ctx context.Context, _ []string) error {
	if err := a.session.CheckExpiry(ctx); err != nil {
		return err
	}
	if _, err := a.auth.Verify(ctx); err != nil {
		if a.rejected(ctx, err) {
			a.printf("Session is no longer valid, please log in again")
			return nil
		}
		return fmt.Errorf("verify session: %w", err)
	}

	s := a.session.Current()
	if !s.Authenticated() {
		a.printf("Not logged in")
		return nil
	}
	id := s.Identity
	a.printf("%s <%s> role=%s id=%s", id.DisplayName, id.Email, id.Role, id.ID)
	if a.creds != nil {
		if at, ok, err := a.creds.SavedAt(ctx); err == nil && ok {
			a.printf("Signed in since %s", at.Local().Format("2006-01-02 15:04"))
		}
	}
	if !s.ExpiresAt.IsZero() {
		a.printf("Session valid until %s", s.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// Refresh reloads the signed-in user from the backend.
func (a *App) Refresh(ctx context.Context, _ []string) error {
	id, err := a.session.RefreshIdentity(ctx)
	if err != nil {
		return err
	}
	if id == nil {
		a.printf("Session ended, please log in again")
		return nil
	}
	a.printf("Profile refreshed: %s <%s>", id.DisplayName, id.Email)
	return nil
}

// DeleteAccount removes the account on the backend, then signs out.
func (a *App) DeleteAccount(ctx context.Context, _ []string) error {
	ok, err := getConfirm(a.reader, "Delete your account and all its data?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Cancelled")
		return nil
	}
	if err := a.account.DeleteMe(ctx); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	a.unmount()
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.printf("Account deleted")
	return nil
}
