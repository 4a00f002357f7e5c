package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/client/config"
	"github.com/dmitrijs2005/mediax/internal/client/credentials"
	"github.com/dmitrijs2005/mediax/internal/client/gallery"
	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/livesync"
	"github.com/dmitrijs2005/mediax/internal/client/localdb"
	"github.com/dmitrijs2005/mediax/internal/client/metrics"
	"github.com/dmitrijs2005/mediax/internal/client/prefs"
	"github.com/dmitrijs2005/mediax/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mediax/internal/client/session"
	"github.com/dmitrijs2005/mediax/internal/client/upload"
	"github.com/dmitrijs2005/mediax/internal/filex"
	"github.com/dmitrijs2005/mediax/internal/logging"
)

// NewApp wires the client from cfg and restores the previous session.
// The returned App owns the database and the metrics listener; Run (or
// Close) releases them.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	a := &App{
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	for _, p := range []string{cfg.DBPath, cfg.CredentialFile} {
		if err := filex.EnsureParentDir(p); err != nil {
			return nil, err
		}
	}

	db, err := localdb.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	store := credentials.NewStore(newPersister(cfg, db), log)
	if err := store.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load credential: %w", err)
	}

	m := metrics.New()
	a.stats = m
	if cfg.MetricsAddr != "" {
		a.closers = append(a.closers, serveMetrics(ctx, cfg.MetricsAddr, m, log))
	}

	hc := newHTTPClient(cfg.Tracing)
	gw := gateway.New(cfg.APIBaseURL, store,
		gateway.WithHTTPClient(hc),
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithLogger(log),
		gateway.WithObserver(m.ObserveRequest),
	)

	users := api.NewUsers(gw)
	videos := api.NewVideos(gw)
	a.auth = api.NewAuth(gw)
	a.account = users
	a.library = videos
	a.assistant = api.NewChatbot(gw)
	a.creds = store

	sess := session.New(store, users, session.Policy{RevertOnLoginFailure: cfg.RevertOnLoginFailure}, log)
	a.session = sess

	storage, err := newStorage(ctx, cfg, hc)
	if err != nil {
		a.Close()
		return nil, err
	}
	pipe := upload.New(storage, videos,
		upload.WithLogger(log),
		upload.WithTimeouts(cfg.TransferTimeout, cfg.CommitTimeout),
		upload.WithOutcomeHook(m.ObserveUpload),
	)
	a.batch = pipe
	a.batchLimit = cfg.UploadConcurrency

	a.gallery = gallery.New(gallery.Deps{
		Videos:   videos,
		Uploader: pipe,
		Streamer: gw,
		Session:  sess,
		Log:      log,
		SyncOptions: []livesync.Option{
			livesync.WithConnectTimeout(cfg.StreamConnectTimeout),
			livesync.WithEventHook(m.ObserveSyncEvent),
		},
	})
	a.prefs = prefs.New(metadata.NewSQLiteRepository(db))

	if err := sess.Bootstrap(ctx); err != nil {
		log.Warn(ctx, "session bootstrap", "error", err)
	}
	return a, nil
}

func newPersister(cfg *config.Config, db *sql.DB) credentials.Persister {
	if cfg.CredentialBackend == config.CredentialBackendFile {
		return credentials.NewFilePersister(cfg.CredentialFile)
	}
	return credentials.NewSQLitePersister(db)
}

// newHTTPClient returns the client shared by the gateway and the storage
// providers. It carries no Client.Timeout: the live stream must stay open
// and every other call is bounded by its context.
func newHTTPClient(tracing bool) *http.Client {
	if !tracing {
		return &http.Client{}
	}
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

func newStorage(ctx context.Context, cfg *config.Config, hc *http.Client) (upload.StorageProvider, error) {
	switch cfg.StorageProvider {
	case config.StorageS3:
		s, err := upload.NewS3(ctx, upload.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Folder:    cfg.UploadFolder,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, hc)
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		return s, nil
	case config.StorageCloudinary, "":
		return upload.NewCloudinary(upload.CloudinaryConfig{
			BaseURL:   cfg.StorageBaseURL,
			CloudName: cfg.CloudName,
			Preset:    cfg.UploadPreset,
			Folder:    cfg.UploadFolder,
		}, hc), nil
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
}

// serveMetrics exposes m on addr until the returned stop func is called.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log logging.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server", "addr", addr, "error", err)
		}
	}()
	log.Info(ctx, "metrics listening", "addr", addr)

	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
}
