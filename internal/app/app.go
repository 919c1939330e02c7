package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"notes-go/internal/auth"
	"notes-go/internal/backup"
	"notes-go/internal/config"
	"notes-go/internal/database"
	"notes-go/internal/encryption"
	"notes-go/internal/httpapi"
	"notes-go/internal/model"
	"notes-go/internal/notes"
	"notes-go/internal/notify"
	"notes-go/internal/vault"
)

// shutdownTimeout bounds how long in-flight requests may run after Serve is cancelled.
const shutdownTimeout = 10 * time.Second

// App is the application layer between the CLI and the notes service.
// It constructs all dependencies from config and manages the DB lifecycle on Close.
type App struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	service *notes.Service
	logger  notes.Logger
	clock   notes.Clock
	op      *Operation
	logFile *os.File

	backups *backup.Service
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "serve", "user add").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock := notes.RealClock{}
	op := NewOperation(operation, clock.Now())

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	sl, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date (run `notes db migrate`): %w", err)
	}

	notifier, err := notify.NewNotifierFromConfig(cfg.Notifier, logger)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	svc := notes.NewService(db, auth.NewBcryptHasher(), notifier, logger, clock,
		notes.UUIDGenerator{}, notes.RandomTokenGenerator{})

	logger.Debug("operation started", "operation", operation)
	return &App{
		cfg:     cfg,
		db:      db,
		service: svc,
		logger:  logger,
		clock:   clock,
		op:      op,
		logFile: logFile,
	}, nil
}

// MigrateDatabase applies pending schema migrations to the configured database.
func MigrateDatabase(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// Service returns the wired notes service.
func (a *App) Service() *notes.Service {
	return a.service
}

// Authenticator builds the bearer credential authenticator from the server config.
func (a *App) Authenticator() (*auth.TokenAuthenticator, error) {
	secret := a.cfg.Server.Secret()
	if secret == "" {
		return nil, fmt.Errorf("no jwt secret configured: set server.jwt_secret or %s", config.JWTSecretEnv)
	}
	return auth.NewTokenAuthenticator(secret, a.cfg.Server.TokenTTL.Duration, a.service, a.clock)
}

// AddUser registers an account from the command line.
func (a *App) AddUser(email, password string, admin bool) (*model.User, error) {
	role := model.RoleUser
	if admin {
		role = model.RoleAdmin
	}
	user, err := a.service.RegisterUser(email, password, role)
	return user, a.op.Fail(err)
}

// IssueToken mints a bearer credential for the user registered under email.
func (a *App) IssueToken(email string) (string, error) {
	authn, err := a.Authenticator()
	if err != nil {
		return "", a.op.Fail(err)
	}
	user, err := a.service.FindUserByEmail(email)
	if err != nil {
		return "", a.op.Fail(err)
	}
	token, err := authn.Issue(user)
	return token, a.op.Fail(err)
}

func (a *App) sweeper() *notes.LinkSweeper {
	r := a.cfg.Links.Retry
	policy := notes.RetryPolicy{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay.Duration,
		MaxDelay:     r.MaxDelay.Duration,
		Multiplier:   r.Multiplier,
		Jitter:       true,
	}
	return notes.NewLinkSweeper(a.db, a.logger, a.clock, notes.UUIDGenerator{}, policy, a.cfg.Links.CleanupInterval.Duration)
}

// CleanupLinks runs a single expired link sweep and returns the number of links removed.
func (a *App) CleanupLinks(ctx context.Context) (int64, error) {
	n, err := a.sweeper().RunOnce(ctx)
	return n, a.op.Fail(err)
}

// Handler builds the HTTP handler for the configured service.
func (a *App) Handler() (http.Handler, error) {
	authn, err := a.Authenticator()
	if err != nil {
		return nil, err
	}
	return httpapi.NewHandler(a.service, authn, a.clock, a.logger).Router(), nil
}

// Serve runs the HTTP server and the link sweeper until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	handler, err := a.Handler()
	if err != nil {
		return a.op.Fail(err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweepDone := make(chan error, 1)
	go func() { sweepDone <- a.sweeper().Run(sweepCtx) }()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.Server.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
		if serr := <-serveErr; !errors.Is(serr, http.ErrServerClosed) && err == nil {
			err = serr
		}
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	stopSweep()
	if serr := <-sweepDone; serr != nil && err == nil {
		err = serr
	}

	a.logger.Info("http server stopped")
	return a.op.Fail(err)
}

// backupService lazily wires the vault and encryptor used for database snapshots.
func (a *App) backupService(ctx context.Context) (*backup.Service, error) {
	if a.backups != nil {
		return a.backups, nil
	}

	v, err := vault.NewVaultFromConfig(ctx, a.cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	a.backups = backup.NewService(a.db, v, enc, a.clock, a.logger)
	return a.backups, nil
}

// Backup snapshots the database into the vault and returns the snapshot name.
func (a *App) Backup(ctx context.Context) (string, error) {
	svc, err := a.backupService(ctx)
	if err != nil {
		return "", a.op.Fail(err)
	}
	name, err := svc.Backup()
	return name, a.op.Fail(err)
}

// ListBackups returns the snapshot names stored in the vault.
func (a *App) ListBackups(ctx context.Context) ([]string, error) {
	svc, err := a.backupService(ctx)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	names, err := svc.List()
	return names, a.op.Fail(err)
}

// RestoreBackup writes the named snapshot to dest.
func (a *App) RestoreBackup(ctx context.Context, name, passphrase, dest string) error {
	svc, err := a.backupService(ctx)
	if err != nil {
		return a.op.Fail(err)
	}
	return a.op.Fail(svc.Restore(name, passphrase, dest))
}

// InitKeys generates the backup encryption key pair, sealing the private key with passphrase.
func InitKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled (encryption.type = %q)", cfg.Encryption.Type)
	}
	return enc.Setup(passphrase)
}

// Close logs the operation outcome and closes all resources.
func (a *App) Close() error {
	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", a.clock.Now().Sub(a.op.StartedAt).Truncate(time.Millisecond))

	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
