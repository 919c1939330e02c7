package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"notes-go/internal/app"
	"notes-go/internal/backup"
	"notes-go/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads .env files and reads the config file.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	if err := app.LoadEnv(".env", defaults["env_file"]); err != nil {
		return nil, err
	}

	// .env may have pointed us at a different config file.
	defaults, err = app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "serve", "user add").
func newApp(operation string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// promptSecret reads a secret without echo when stdin is a terminal,
// and a single line otherwise.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}

// promptNewSecret asks twice and requires both entries to match.
func promptNewSecret(label string) (string, error) {
	first, err := promptSecret(label)
	if err != nil {
		return "", err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return first, nil
	}
	second, err := promptSecret("Confirm " + strings.ToLower(label))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("entries do not match")
	}
	return first, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:          "notes",
	Short:        "Notes server with soft-delete folders and shared links",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Server.JWTSecret = uuid.New().String()

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		secret := "(unset)"
		if cfg.Server.Secret() != "" {
			secret = "(set)"
		}

		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Log Level:   %s\n", cfg.LogLevel)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Listen:      %s\n", cfg.Server.Addr)
		fmt.Printf("JWT Secret:  %s\n", secret)
		fmt.Printf("Token TTL:   %s\n", cfg.Server.TokenTTL.Duration)
		fmt.Printf("Link Sweep:  every %s\n", cfg.Links.CleanupInterval.Duration)
		fmt.Printf("Notifier:    %s %s\n", cfg.Notifier.Type, cfg.Notifier.BaseURL)
		fmt.Printf("Vault:       %s\n", cfg.Vault.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the expired link sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("serve")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()
		return a.Serve(ctx)
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, _ := cmd.Flags().GetBool("admin")

		password, err := promptNewSecret("Password")
		if err != nil {
			return err
		}

		a, err := newApp("user add")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.AddUser(args[0], password, admin)
		if err != nil {
			return fmt.Errorf("adding user: %w", err)
		}

		fmt.Printf("Registered %s (%s) id=%s\n", user.Email, user.Role, user.ID)
		return nil
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token EMAIL",
	Short: "Issue a bearer token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("user token")
		if err != nil {
			return err
		}
		defer a.Close()

		token, err := a.IssueToken(args[0])
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}

		fmt.Println(token)
		return nil
	},
}

// links command
var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage shared links",
}

var linksCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired shared links",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("links cleanup")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		n, err := a.CleanupLinks(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Removed %d expired link(s)\n", n)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := app.MigrateDatabase(cfg); err != nil {
			return err
		}

		fmt.Println("Database is up to date")
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the database into the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("db backup")
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.Backup(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Stored snapshot %s\n", name)
		return nil
	},
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List database snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("db list")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListBackups(cmd.Context())
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No snapshots stored.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore SNAPSHOT",
	Short: "Restore a database snapshot to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("to")

		a, err := newApp("db restore")
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if backup.IsSealed(args[0]) {
			if passphrase, err = promptSecret("Passphrase"); err != nil {
				return err
			}
		}

		absDest, err := filepath.Abs(dest)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		if err := a.RestoreBackup(cmd.Context(), args[0], passphrase, absDest); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %s to %s\n", args[0], absDest)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the backup key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase, err := promptNewSecret("Passphrase")
		if err != nil {
			return err
		}
		if err := app.InitKeys(cfg, passphrase); err != nil {
			return fmt.Errorf("initializing keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// user subcommands
	userCmd.AddCommand(userAddCmd)
	userAddCmd.Flags().Bool("admin", false, "Register the user with the ADMIN role")
	userCmd.AddCommand(userTokenCmd)

	// links subcommands
	linksCmd.AddCommand(linksCleanupCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbBackupCmd)
	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbRestoreCmd)
	dbRestoreCmd.Flags().String("to", "notes-restored.db", "Destination file for the restored database")

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(keysCmd)
}
