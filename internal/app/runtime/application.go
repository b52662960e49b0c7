// Package runtime assembles the configured SIRA process: persistence,
// integrations, domain services and the HTTP server.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"

	app "github.com/R3E-Network/sira_platform/internal/app"
	"github.com/R3E-Network/sira_platform/internal/app/httpapi"
	"github.com/R3E-Network/sira_platform/internal/app/services/alerts"
	"github.com/R3E-Network/sira_platform/internal/app/services/auth"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/services/notifications"
	"github.com/R3E-Network/sira_platform/internal/app/services/realtime"
	"github.com/R3E-Network/sira_platform/internal/app/storage/postgres"
	"github.com/R3E-Network/sira_platform/internal/config"
	"github.com/R3E-Network/sira_platform/internal/logging"
	"github.com/R3E-Network/sira_platform/internal/platform/migrations"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

const (
	dbPingTimeout          = 5 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	handler http.Handler
	server  *http.Server
	db      *sql.DB
	audit   *os.File
	cancel  context.CancelFunc
}

// NewApplication loads configuration from the environment and builds the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return New(cfg)
}

// New builds the application described by cfg. A DATABASE_URL selects
// PostgreSQL; without one every store lives in memory.
func New(cfg *config.Config) (*Application, error) {
	log := NewLogger(cfg, "sira")
	a := &Application{cfg: cfg, log: log}

	stores := app.Stores{}
	var pinger httpapi.Pinger
	if cfg.Database.DSN != "" {
		db, err := OpenDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		if cfg.Database.AutoMigrate {
			if err := Migrate(db, log); err != nil {
				db.Close()
				return nil, err
			}
		}
		store := postgres.New(db)
		stores = app.StoresFrom(store)
		pinger = store
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	rules, err := alerts.LoadRulesConfig(cfg.Jobs.AlertRulesFile)
	if err != nil {
		a.closeDB()
		return nil, err
	}

	opts := app.Options{
		Auth: auth.Settings{
			SecretKey:  cfg.Auth.SecretKey,
			Issuer:     cfg.Auth.Issuer,
			AccessTTL:  cfg.AccessTokenTTL(),
			RefreshTTL: cfg.RefreshTokenTTL(),
		},
		AllowedOrigins: cfg.AllowedOrigins(),
		Rules:          rules,
		UploadDir:      cfg.Uploads.Dir,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		Mailer: notifications.NewSMTPMailer(notifications.SMTPSettings{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, NewLogger(cfg, "mailer")),
		AppURL:         cfg.SMTP.AppURL,
		SLASchedule:    cfg.Jobs.SLACheckSchedule,
		DigestSchedule: cfg.Jobs.DigestSchedule,
	}
	if cfg.AMQP.URL != "" {
		opts.Bus = eventbus.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, NewLogger(cfg, "eventbus"))
	}
	if cfg.Redis.URL != "" {
		bridge, err := realtime.NewRedisBridge(cfg.Redis.URL, cfg.Redis.Channel, NewLogger(cfg, "realtime-redis"))
		if err != nil {
			a.closeDB()
			return nil, err
		}
		opts.Bridge = bridge
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("build application: %w", err)
	}
	a.app = application

	httpOpts := httpapi.Options{
		Version:        cfg.Version,
		AllowedOrigins: cfg.AllowedOrigins(),
		RateLimit:      float64(cfg.RateLimit.RequestsPerSecond),
		RateBurst:      cfg.RateLimit.Burst,
		DB:             pinger,
		Logger:         logging.FromLogger("httpapi", NewLogger(cfg, "httpapi")),
	}
	if cfg.Audit.File != "" {
		f, err := openAuditFile(cfg.Audit.File)
		if err != nil {
			a.closeDB()
			return nil, err
		}
		a.audit = f
		httpOpts.AuditSink = f
	}
	bg, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	httpOpts.Context = bg
	a.handler = httpapi.NewHandler(application, httpOpts)
	a.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler { return a.handler }

// Services returns the domain application.
func (a *Application) Services() *app.Application { return a.app }

// Run starts the background services and the HTTP server and blocks until ctx
// is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.cfg.Server.Addr).Infof("%s %s listening", a.cfg.AppName, a.cfg.Version)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server, stops the services and releases the
// database and audit file.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.cancel()
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop services: %w", err))
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.log.WithError(err).Warn("error closing audit log")
		}
	}
	a.closeDB()
	return errors.Join(errs...)
}

func (a *Application) closeDB() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("error closing database connection")
	}
	a.db = nil
}

// NewLogger builds a component logger from the logging configuration. With
// file output each component writes its own dated file.
func NewLogger(cfg *config.Config, name string) *logger.Logger {
	return logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: name,
	})
}

// OpenDatabase opens and pings a PostgreSQL pool.
func OpenDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies every pending schema migration.
func Migrate(db *sql.DB, log *logger.Logger) error {
	m, err := migrations.New(db, log)
	if err != nil {
		return err
	}
	return m.Up()
}

func openAuditFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return f, nil
}
