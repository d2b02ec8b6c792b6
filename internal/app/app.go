// Package app initializes and runs the taskhub server: configuration,
// logging, database and migrations, the service graph, and the HTTP
// listener with graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/authz"
	"github.com/otabek-dev/taskhub/internal/config"
	"github.com/otabek-dev/taskhub/internal/dbx"
	"github.com/otabek-dev/taskhub/internal/httpapi"
	"github.com/otabek-dev/taskhub/internal/logging"
	"github.com/otabek-dev/taskhub/internal/mail"
	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/repositories/memberships"
	"github.com/otabek-dev/taskhub/internal/repositories/repomanager"
	"github.com/otabek-dev/taskhub/internal/services"
	"github.com/otabek-dev/taskhub/internal/storage"
	"github.com/otabek-dev/taskhub/internal/token"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	db     *sql.DB
	repos  repomanager.RepositoryManager
	server *httpapi.Server
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	log := logger.Sugar()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	tokens := token.NewManager(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.EmailChangeTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	mailer, err := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	if err != nil {
		return nil, fmt.Errorf("mailer init: %w", err)
	}
	mailSvc := mail.NewService(mailer, cfg.FrontendURL, cfg.BackendURL)

	files, err := storage.NewS3FileStore(ctx, storage.S3Config{
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("file store init: %w", err)
	}

	az := authz.NewEngine(db, func(tx dbx.DBTX) memberships.Repository {
		return repos.Memberships(tx)
	})

	accounts := services.NewAccountService(db, repos, tokens, mailSvc, cfg.ActionTokenTTL, log)

	server := httpapi.NewServer(httpapi.Deps{
		Sessions:    services.NewSessionService(db, repos, tokens),
		Accounts:    accounts,
		Users:       services.NewUserService(db, repos, accounts, files),
		Projects:    services.NewProjectService(db, repos, az, files, log),
		Tasks:       services.NewTaskService(db, repos, az, files),
		Subtasks:    services.NewSubtaskService(db, repos, az),
		Comments:    services.NewCommentService(db, repos, az),
		Tags:        services.NewTagService(db, repos),
		Attachments: services.NewAttachmentService(db, repos, az, files),
		Tokens:      tokens,
		Log:         log,

		SecureCookies: cfg.CookieSecure,
	})

	app := &App{cfg: cfg, log: log, db: db, repos: repos, server: server}

	if err := app.seedSuperAdmin(ctx); err != nil {
		return nil, fmt.Errorf("super admin seed: %w", err)
	}
	return app, nil
}

// seedSuperAdmin creates the configured SUPER_ADMIN account at boot when it
// does not exist yet. The seeded account is verified and active, skipping
// the email flow.
func (a *App) seedSuperAdmin(ctx context.Context) error {
	if a.cfg.SuperAdminEmail == "" || a.cfg.SuperAdminPassword == "" {
		return nil
	}
	repo := a.repos.Users(a.db)

	_, err := repo.GetByEmail(ctx, a.cfg.SuperAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.cfg.SuperAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = repo.Create(ctx, &models.User{
		FirstName:    "Super",
		LastName:     "Admin",
		Email:        a.cfg.SuperAdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
		IsVerified:   true,
	})
	if err != nil {
		return err
	}
	a.log.Infow("super admin seeded", "email", a.cfg.SuperAdminEmail)
	return nil
}

// Run serves HTTP until the context is cancelled or SIGINT/SIGTERM
// arrives, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    a.cfg.HTTPAddr,
		Handler: a.server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("http server listening", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return a.db.Close()
}
