package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/common"
)

// Profile prints the signed-in account. "profile edit" changes the display
// name and date of birth.
func (a *App) Profile(ctx context.Context, args []string) error {
	id := a.session.Current().Identity
	if id == nil {
		return fmt.Errorf("profile: %w", common.ErrorUnauthorized)
	}
	if len(args) == 0 {
		a.printIdentity(*id)
		return nil
	}
	if args[0] != "edit" {
		return fmt.Errorf("usage: profile [edit]: %w", common.ErrorValidation)
	}

	name, err := getSimpleText(a.reader, fmt.Sprintf("Name [%s]", id.DisplayName), a.out)
	if err != nil {
		return err
	}
	if name == "" {
		name = id.DisplayName
	}
	dob, err := getSimpleText(a.reader, "Date of birth as YYYY-MM-DD (empty to clear)", a.out)
	if err != nil {
		return err
	}
	if dob != "" {
		if _, err := time.Parse(time.DateOnly, dob); err != nil {
			return fmt.Errorf("date of birth %q: %w", dob, common.ErrorValidation)
		}
	}

	if _, err := a.account.UpdateMe(ctx, name, dob); err != nil {
		return a.backendError(ctx, "update profile", err)
	}
	return a.reloadIdentity(ctx, "Profile updated")
}

// Photo replaces the profile photo. Usage: photo <path>
func (a *App) Photo(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, "Enter photo path")
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := a.account.UploadPhoto(ctx, filepath.Base(path), f); err != nil {
		return a.backendError(ctx, "upload photo", err)
	}
	return a.reloadIdentity(ctx, "Photo updated")
}

// User shows another user's public profile and the videos they uploaded.
// Usage: user <id>
func (a *App) User(ctx context.Context, args []string) error {
	userID, err := a.argOrPrompt(args, "Enter user id")
	if err != nil {
		return err
	}
	p, err := a.account.Profile(ctx, userID)
	if err != nil {
		return a.backendError(ctx, "load user", err)
	}

	role := "User"
	if p.Identity.IsAdmin() {
		role = "Admin"
	}
	a.printf("%s (%s)", p.Identity.DisplayName, role)
	if !p.Identity.CreatedAt.IsZero() {
		a.printf("  member since %s", p.Identity.CreatedAt.Local().Format("2006-01-02"))
	}
	a.printf("  %d video(s) uploaded", p.VideoCount)

	all, err := a.library.List(ctx)
	if err != nil {
		return a.backendError(ctx, "load videos", err)
	}
	var theirs []models.MediaItem
	for _, it := range all {
		if it.OwnerRef == userID {
			theirs = append(theirs, it)
		}
	}
	a.printItems(theirs, "This user hasn't uploaded any videos")
	return nil
}

// Mine lists the videos uploaded by the signed-in user.
func (a *App) Mine(ctx context.Context, _ []string) error {
	items, err := a.library.UserVideos(ctx)
	if err != nil {
		return a.backendError(ctx, "load your videos", err)
	}
	a.printItems(items, "You haven't uploaded any videos")
	return nil
}

func (a *App) printIdentity(id models.Identity) {
	a.printf("%s <%s> role=%s id=%s", id.DisplayName, id.Email, id.Role, id.ID)
	if id.PhotoRef != "" {
		a.printf("  photo: %s", id.PhotoRef)
	}
	if !id.CreatedAt.IsZero() {
		a.printf("  member since %s", id.CreatedAt.Local().Format("2006-01-02"))
	}
}

func (a *App) printItems(items []models.MediaItem, empty string) {
	if len(items) == 0 {
		a.printf("%s", empty)
		return
	}
	for i, it := range items {
		a.printf("%s", formatItem(i+1, it))
	}
}

// reloadIdentity refreshes the session after the account changed on the
// backend.
func (a *App) reloadIdentity(ctx context.Context, done string) error {
	id, err := a.session.RefreshIdentity(ctx)
	if err != nil {
		return err
	}
	if id == nil {
		a.printf("Session ended, please log in again")
		return nil
	}
	a.printf("%s: %s <%s>", done, id.DisplayName, id.Email)
	return nil
}

// backendError wraps err from a protected call, ending the session first if
// the backend rejected the credential.
func (a *App) backendError(ctx context.Context, op string, err error) error {
	if a.rejected(ctx, err) {
		return fmt.Errorf("%s: session ended, please log in again: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
