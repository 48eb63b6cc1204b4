package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"geostream/app/controllers"
	"geostream/app/media"
	"geostream/app/middleware"
	"geostream/app/repositories"
	"geostream/app/routes"
	"geostream/app/services"
	"geostream/config"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App is a fully wired geostream server.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db       *badger.DB
	store    *repositories.Store
	media    *media.LocalStore
	posts    *services.PostService
	comments *services.CommentService
	flags    *services.FlagService
	handler  http.Handler
}

// NewApp opens storage and builds the services and router described by cfg.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := repositories.OpenDB(repositories.Options{
		Path:       cfg.Storage.Path,
		InMemory:   cfg.Storage.InMemory,
		SyncWrites: cfg.Storage.SyncWrites,
	}, logger)
	if err != nil {
		return nil, err
	}
	store, err := repositories.NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	mediaStore, err := media.NewLocalStore(cfg.Media.Dir, cfg.Media.BaseURL, cfg.MaxUploadBytes(), logger)
	if err != nil {
		store.Close()
		db.Close()
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, db: db, store: store, media: mediaStore}
	a.posts = services.NewPostService(store, store, mediaStore, nil, logger)
	a.comments = services.NewCommentService(store, store, a.posts.Sweeper(), nil, logger)
	a.flags = services.NewFlagService(store, a.posts.Sweeper(), nil, logger)

	mediaPrefix := cfg.Media.BaseURL + "/"
	deps := routes.Deps{
		Posts:       controllers.NewPostController(a.posts, mediaStore, cfg.MaxUploadBytes(), logger),
		Comments:    controllers.NewCommentController(a.comments, logger),
		Flags:       controllers.NewFlagController(a.flags, logger),
		Media:       mediaStore.Handler(mediaPrefix),
		MediaPrefix: mediaPrefix,
		Logger:      logger,
	}
	if cfg.Security.CheckUserAgent {
		deps.AllowedUserAgents = cfg.Security.AllowedUserAgents
	}
	if cfg.Security.RateLimitPerMinute > 0 {
		deps.CreateLimiter = middleware.NewRateLimiter(cfg.Security.RateLimitPerMinute)
	}
	a.handler = routes.SetupRoutes(deps)
	return a, nil
}

// Handler returns the HTTP handler of the app.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Sweep runs a single expiry sweep.
func (a *App) Sweep(ctx context.Context) (int, error) {
	n, err := a.posts.Sweeper().Sweep(ctx)
	a.posts.Wait()
	return n, err
}

// Serve runs the HTTP server on ln and the background sweeper until ctx is
// cancelled, then shuts both down gracefully.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  a.cfg.GetReadTimeout(),
		WriteTimeout: a.cfg.GetWriteTimeout(),
		ErrorLog:     zap.NewStdLog(a.logger.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if interval := a.cfg.GetSweepInterval(); interval > 0 {
		g.Go(func() error {
			return a.posts.Sweeper().Run(gctx, interval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GetShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close waits for background media releases and closes storage.
func (a *App) Close() error {
	a.posts.Wait()
	return errors.Join(a.store.Close(), a.db.Close())
}

// RunAppServer serves the configured app until ctx is cancelled.
func RunAppServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	return app.Serve(ctx, ln)
}
