package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/mediax/internal/client/gallery"
	"github.com/dmitrijs2005/mediax/internal/client/livesync"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/client/prefs"
	"github.com/dmitrijs2005/mediax/internal/client/upload"
	"github.com/dmitrijs2005/mediax/internal/common"
)

// List mounts the gallery if needed and prints the collection in server
// order.
func (a *App) List(ctx context.Context, _ []string) error {
	err := a.mount(ctx)
	st := a.gallery.Snapshot()
	if st.Err != nil {
		return st.Err
	}
	if len(st.Items) == 0 {
		a.printf("No videos yet")
	}
	for i, it := range st.Items {
		a.printf("%s", formatItem(i+1, it))
	}
	if err != nil {
		// The collection loaded but the live channel did not.
		a.log.Warn(ctx, "gallery mounted with errors", "error", err)
	}
	return nil
}

func formatItem(n int, it models.MediaItem) string {
	line := fmt.Sprintf("%d. [%s] %s", n, it.ID, it.Title)
	if it.OwnerName != "" {
		line += " by " + it.OwnerName
	}
	if !it.CreatedAt.IsZero() {
		line += " (" + it.CreatedAt.Local().Format("2006-01-02") + ")"
	}
	return line
}

// Select shows one video. Without an id it clears the selection.
func (a *App) Select(_ context.Context, args []string) error {
	if len(args) == 0 {
		return a.gallery.Select("")
	}
	if err := a.gallery.Select(args[0]); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("no video with id %s in the list (try 'list' first)", args[0])
		}
		return err
	}
	it := a.gallery.Snapshot().Selected
	if it == nil {
		return nil
	}
	a.printf("%s", it.Title)
	a.printf("  url:      %s", it.MediaRef)
	if it.ThumbnailRef != "" {
		a.printf("  thumb:    %s", it.ThumbnailRef)
	}
	if it.OwnerName != "" {
		a.printf("  uploader: %s", it.OwnerName)
	}
	return nil
}

// Watch mounts the gallery and prints changes pushed by the server until
// unwatch.
func (a *App) Watch(ctx context.Context, _ []string) error {
	a.mu.Lock()
	if a.unwatch != nil {
		a.mu.Unlock()
		a.printf("Already watching")
		return nil
	}
	a.mu.Unlock()

	err := a.mount(ctx)

	st := a.gallery.Snapshot()
	w := &watcher{app: a, count: len(st.Items), live: st.Live}
	stop := a.gallery.Subscribe(w.onState)

	a.mu.Lock()
	a.unwatch = stop
	a.mu.Unlock()

	if st.Live != livesync.StateOpen {
		a.printf("Live updates are unavailable: %v", st.LiveErr)
	} else {
		a.printf("Watching for changes (type 'unwatch' to stop)")
	}
	return err
}

func (a *App) Unwatch(_ context.Context, _ []string) error {
	a.unmount()
	a.printf("Stopped watching")
	return nil
}

// watcher turns gallery states into one-line notices. Gallery subscribers
// are called one at a time, so its fields need no lock.
type watcher struct {
	app   *App
	count int
	live  livesync.State
}

func (w *watcher) onState(s gallery.State) {
	if s.Live != w.live {
		w.live = s.Live
		if s.Live == livesync.StateErrored {
			w.app.printf("[live] connection lost: %v", s.LiveErr)
		}
	}
	if s.Loading || s.Err != nil {
		return
	}
	if n := len(s.Items); n != w.count {
		w.app.printf("[live] gallery now has %d videos", n)
		w.count = n
	}
}

// Upload sends a local file to storage and registers it.
// Usage: upload <path> [title...]
func (a *App) Upload(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, "Enter file path")
	if err != nil {
		return err
	}
	title := ""
	if len(args) > 1 {
		title = strings.Join(args[1:], " ")
	} else if title, err = getSimpleText(a.reader, "Enter title", a.out); err != nil {
		return err
	}

	f, file, err := upload.OpenFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	p := &progressPrinter{app: a}
	item, err := a.gallery.Upload(ctx, title, f, p.report)
	if err != nil {
		return describeUploadError(err)
	}
	a.printf("Uploaded %q as %s", item.Title, item.ID)
	return nil
}

func describeUploadError(err error) error {
	var (
		cfgErr      *upload.ConfigError
		transferErr *upload.TransferError
		commitErr   *upload.CommitError
	)
	switch {
	case errors.As(err, &cfgErr):
		return fmt.Errorf("cannot upload: %w", err)
	case errors.As(err, &transferErr):
		return fmt.Errorf("upload to storage failed, nothing was saved: %w", err)
	case errors.As(err, &commitErr):
		return fmt.Errorf("the file reached storage but was not added to the gallery (%s): %w", commitErr.Object.SecureURL, err)
	case errors.Is(err, common.ErrorValidation):
		return fmt.Errorf("invalid upload: %w", err)
	}
	return err
}

// progressPrinter prints a line per 10% step and one per phase change.
type progressPrinter struct {
	app    *App
	step   int
	saving bool
}

func (p *progressPrinter) report(v float64) {
	if v >= upload.CommitIssued && !p.saving {
		p.saving = true
		p.app.printf("Saving video details...")
		return
	}
	if v >= upload.CommitConfirmed {
		p.app.printf("Done")
		return
	}
	if s := int(v * 10); s > p.step {
		p.step = s
		p.app.printf("Uploading... %d%%", s*10)
	}
}

// Rename changes a video title. Usage: rename <id> [title...]
func (a *App) Rename(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter video id")
	if err != nil {
		return err
	}
	title := ""
	if len(args) > 1 {
		title = strings.Join(args[1:], " ")
	} else if title, err = getSimpleText(a.reader, "Enter new title", a.out); err != nil {
		return err
	}
	if err := a.gallery.Rename(ctx, id, strings.TrimSpace(title)); err != nil {
		return err
	}
	a.printf("Renamed")
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, "Enter video id")
	if err != nil {
		return err
	}
	ok, err := getConfirm(a.reader, "Delete video "+id+"?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Cancelled")
		return nil
	}
	if err := a.gallery.Delete(ctx, id); err != nil {
		return err
	}
	a.printf("Deleted")
	return nil
}

// Theme prints, toggles or sets the saved theme.
// Usage: theme [light|dark|toggle]
func (a *App) Theme(ctx context.Context, args []string) error {
	cur, err := a.prefs.Theme(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		a.printf("Theme: %s", cur)
		return nil
	}

	next := cur.Toggle()
	if args[0] != "toggle" {
		if next, err = prefs.ParseTheme(args[0]); err != nil {
			return err
		}
	}
	if err := a.prefs.SetTheme(ctx, next); err != nil {
		return err
	}
	a.printf("Theme: %s", next)
	return nil
}

func (a *App) Stats(_ context.Context, _ []string) error {
	if a.stats == nil {
		a.printf("Metrics are disabled")
		return nil
	}
	return a.stats.WriteSummary(a.out)
}

// UploadMany uploads several files at once, titled after their file names.
// Usage: uploadmany <path>...
func (a *App) UploadMany(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: uploadmany <path>...: %w", common.ErrorValidation)
	}

	jobs := make([]upload.Job, 0, len(args))
	for _, path := range args {
		f, file, err := upload.OpenFile(path)
		if err != nil {
			a.printf("skip %s: %v", path, err)
			continue
		}
		defer file.Close()
		jobs = append(jobs, upload.Job{Title: titleFromName(f.Name), File: f})
	}
	if len(jobs) == 0 {
		return errors.New("nothing to upload")
	}

	if a.batchLimit > 0 {
		a.printf("Uploading %d files, %d at a time", len(jobs), a.batchLimit)
	} else {
		a.printf("Uploading %d files", len(jobs))
	}
	results := a.batch.UploadAll(ctx, jobs, a.batchLimit, nil)

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			a.printf("  %s: %v", r.Job.Title, describeUploadError(r.Err))
			continue
		}
		a.printf("  %s: uploaded as %s", r.Job.Title, r.Item.ID)
	}
	a.mu.Lock()
	mounted := a.mounted
	a.mu.Unlock()
	if mounted {
		if err := a.gallery.Refresh(ctx); err != nil {
			a.log.Warn(ctx, "refresh after batch upload", "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func titleFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
