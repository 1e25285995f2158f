package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authhandler "climatecentre/internal/auth/handler"
	"climatecentre/internal/auth/provider"
	authservice "climatecentre/internal/auth/service"
	sessionstore "climatecentre/internal/auth/store/session"
	userstore "climatecentre/internal/auth/store/user"
	"climatecentre/internal/auth/token"
	"climatecentre/internal/chat"
	contenthandler "climatecentre/internal/content/handler"
	contentmodels "climatecentre/internal/content/models"
	contentservice "climatecentre/internal/content/service"
	contentstore "climatecentre/internal/content/store"
	"climatecentre/internal/platform/config"
	"climatecentre/internal/platform/httpserver"
	"climatecentre/internal/platform/logger"
	"climatecentre/internal/platform/postgres"
	platformredis "climatecentre/internal/platform/redis"
	"climatecentre/internal/ratelimit"
	"climatecentre/internal/session"
	"climatecentre/internal/storage"
	httptransport "climatecentre/internal/transport/http"
	dErrors "climatecentre/pkg/domain-errors"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the feature packages under internal/.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, contentStore, registrar, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Error("store setup failed", "error", err)
		os.Exit(1)
	}

	sessions, closeRedis, err := buildSessionStore(cfg, log)
	if err != nil {
		log.Error("session store setup failed", "error", err)
		os.Exit(1)
	}
	defer closeRedis()

	authSvc := authservice.New(users, sessions, token.NewSigner(cfg.SessionSigningKey), cfg.SessionTTL, log)
	contentSvc := contentservice.New(contentStore, log)

	if err := bootstrapAdmin(ctx, cfg, authSvc, users, registrar, log); err != nil {
		log.Error("admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	media, err := storage.NewFS(cfg.MediaDir, cfg.MediaBaseURL, log)
	if err != nil {
		log.Error("media store setup failed", "error", err)
		os.Exit(1)
	}

	chatClient := chat.NewClient(cfg.Chat, log)
	chatSvc := chat.NewService(chatClient, contentSvc, cfg.Chat, log)

	limiter := ratelimit.NewSlidingWindow(cfg.ChatRateLimit, cfg.ChatRateWindow)
	go pruneLoop(ctx, limiter, cfg.ChatRateWindow)

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:          authhandler.New(authSvc, contentSvc, log),
		Content:       contenthandler.New(contentSvc, log),
		Chat:          chat.NewHandler(chatSvc, log),
		Guard:         session.NewGuard(provider.NewResolver(authSvc), contentSvc, log),
		Media:         storage.NewHandler(media, log),
		MediaFS:       media.FileServer(),
		MediaBasePath: cfg.MediaBaseURL,
		ChatLimiter:   limiter,
		Logger:        log,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("server error", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// adminRegistrar marks users as admins. Grant paths stay out of the
// content service on purpose; bootstrap is the only writer.
type adminRegistrar interface {
	PutAdminUser(ctx context.Context, admin contentmodels.AdminUser) error
}

func buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (authservice.UserStore, contentservice.Store, adminRegistrar, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, content and users are in memory")
		store := contentstore.New()
		return userstore.New(), store, store, nil
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	store := contentstore.NewPostgres(pool)
	return userstore.NewPostgres(pool), store, store, nil
}

func buildSessionStore(cfg config.Server, log *slog.Logger) (authservice.SessionStore, func(), error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("no redis configured, sessions are in memory")
		return sessionstore.New(), func() {}, nil
	}
	return sessionstore.NewRedis(client.Client), func() { _ = client.Close() }, nil
}

// bootstrapAdmin creates the configured admin account and marks it in
// the admin registry. Re-running against an existing account is fine.
func bootstrapAdmin(ctx context.Context, cfg config.Server, authSvc *authservice.Service, users authservice.UserStore, registrar adminRegistrar, log *slog.Logger) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}

	user, err := authSvc.CreateUser(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		// An already-registered email reports invalid input; reuse the
		// existing account in that case.
		if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return err
		}
		user, err = users.FindByEmail(ctx, cfg.BootstrapAdminEmail)
		if err != nil {
			return err
		}
	}

	if err := registrar.PutAdminUser(ctx, contentmodels.AdminUser{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	log.Info("bootstrap admin ready", "email", cfg.BootstrapAdminEmail)
	return nil
}

func pruneLoop(ctx context.Context, limiter *ratelimit.SlidingWindow, window time.Duration) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune()
		}
	}
}
