package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/client/gallery"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/client/prefs"
	"github.com/dmitrijs2005/mediax/internal/client/session"
	"github.com/dmitrijs2005/mediax/internal/client/upload"
	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/dmitrijs2005/mediax/internal/logging"
)

// Session is the part of *session.Controller the terminal client drives.
type Session interface {
	Current() session.Session
	Subscribe(fn func(session.Session)) (unsubscribe func())
	Login(ctx context.Context, credential string) error
	Logout(ctx context.Context) error
	RefreshIdentity(ctx context.Context) (*models.Identity, error)
	CheckExpiry(ctx context.Context) error
	HandleAuthFailure(ctx context.Context, err error) bool
}

// Authenticator is satisfied by *api.Auth.
type Authenticator interface {
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResult, error)
	Login(ctx context.Context, email, password string, role models.Role) (*api.AuthResult, error)
	SendOTP(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, otp string) (*api.AuthResult, error)
	Verify(ctx context.Context) (*models.Identity, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// Account is satisfied by *api.Users.
type Account interface {
	DeleteMe(ctx context.Context) error
	UpdateMe(ctx context.Context, name, dob string) (*models.Identity, error)
	UploadPhoto(ctx context.Context, fileName string, photo io.Reader) (*models.Identity, error)
	Profile(ctx context.Context, userID string) (*api.UserProfile, error)
}

// Library is satisfied by *api.Videos. It serves the per-user listings that
// do not go through the gallery view model.
type Library interface {
	List(ctx context.Context) ([]models.MediaItem, error)
	UserVideos(ctx context.Context) ([]models.MediaItem, error)
}

// Assistant is satisfied by *api.Chatbot.
type Assistant interface {
	Chat(ctx context.Context, message string, history []api.ChatMessage) (string, error)
}

// CredentialInfo is satisfied by *credentials.Store.
type CredentialInfo interface {
	SavedAt(ctx context.Context) (time.Time, bool, error)
}

// Gallery is satisfied by *gallery.ViewModel.
type Gallery interface {
	Activate(ctx context.Context) error
	Deactivate()
	Snapshot() gallery.State
	Subscribe(fn func(gallery.State)) (unsubscribe func())
	Refresh(ctx context.Context) error
	Select(id string) error
	Upload(ctx context.Context, title string, f upload.File, onProgress func(float64)) (*models.MediaItem, error)
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
}

// Preferences is satisfied by *prefs.Store.
type Preferences interface {
	PendingEmail(ctx context.Context) (string, error)
	SetPendingEmail(ctx context.Context, email string) error
	ClearPendingEmail(ctx context.Context) error
	Theme(ctx context.Context) (prefs.Theme, error)
	SetTheme(ctx context.Context, t prefs.Theme) error
	Reset(ctx context.Context) (int, error)
}

// BatchUploader is satisfied by *upload.Pipeline.
type BatchUploader interface {
	UploadAll(ctx context.Context, jobs []upload.Job, limit int, onProgress func(job int, v float64)) []upload.Result
}

// StatsWriter is satisfied by *metrics.Metrics.
type StatsWriter interface {
	WriteSummary(w io.Writer) error
}

// App is the terminal client. It plays the role of the routed views: the
// gallery is mounted by list/watch and unmounted by unwatch, logout or a
// session that ends on its own.
type App struct {
	session   Session
	auth      Authenticator
	account   Account
	library   Library
	assistant Assistant
	creds     CredentialInfo
	gallery   Gallery
	prefs     Preferences
	stats     StatsWriter
	log       logging.Logger

	batch      BatchUploader
	batchLimit int

	reader *bufio.Reader
	out    io.Writer

	mu      sync.Mutex
	mounted bool
	unwatch func()
	chat    []api.ChatMessage

	closers []func()
}

func (a *App) isLoggedIn() bool {
	return a.session.Current().Authenticated()
}

// holdsCredential is true from login until logout, including while the
// identity behind a kept credential could not be loaded yet.
func (a *App) holdsCredential() bool {
	switch a.session.Current().State {
	case session.Booting, session.Anonymous:
		return false
	}
	return true
}

func (a *App) isAdmin() bool {
	s := a.session.Current()
	return s.Authenticated() && s.Identity.IsAdmin()
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) status() string {
	s := a.session.Current()
	switch {
	case s.Authenticated():
		return fmt.Sprintf("(%s %s)", s.Identity.Email, s.Identity.Role)
	case s.State == session.Authenticating:
		return "(signing in)"
	default:
		return "(anonymous)"
	}
}

// Run starts the REPL and blocks until the user exits, then releases
// everything the app opened.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.printf("Welcome to mediax (type 'help' for commands)")
	if t, err := a.prefs.Theme(ctx); err == nil {
		a.printf("Theme: %s", t)
	}
	if s := a.session.Current(); s.Authenticated() {
		a.printf("Signed in as %s", s.Identity.DisplayName)
	}

	stop := a.session.Subscribe(a.onSession)
	defer stop()

	runREPL(ctx, a, a.status, a.reader)
}

// onSession unmounts the gallery when the session ends without a logout
// command, e.g. after the backend rejected the credential.
func (a *App) onSession(s session.Session) {
	switch s.State {
	case session.Expiring:
		a.printf("Your session has expired, please log in again")
	case session.Anonymous:
		a.unmount()
		a.forgetChat()
	}
}

// rejected ends the session when err says the backend no longer accepts
// the credential. It reports whether it did.
func (a *App) rejected(ctx context.Context, err error) bool {
	if errors.Is(err, common.ErrorUnauthorized) {
		_ = a.session.Logout(ctx)
		return true
	}
	return a.session.HandleAuthFailure(ctx, err)
}

// mount activates the gallery once; later calls re-fetch.
func (a *App) mount(ctx context.Context) error {
	a.mu.Lock()
	if a.mounted {
		a.mu.Unlock()
		return a.gallery.Refresh(ctx)
	}
	a.mounted = true
	a.mu.Unlock()
	return a.gallery.Activate(ctx)
}

func (a *App) unmount() {
	a.mu.Lock()
	mounted, unwatch := a.mounted, a.unwatch
	a.mounted, a.unwatch = false, nil
	a.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	if mounted {
		a.gallery.Deactivate()
	}
}

// Close unmounts the gallery and runs registered cleanups in reverse order.
func (a *App) Close() {
	a.unmount()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
