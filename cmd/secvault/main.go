package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arlenn/secvault/internal/commands"
	"github.com/arlenn/secvault/internal/config"
	"github.com/arlenn/secvault/internal/keystore"
	"github.com/arlenn/secvault/internal/logging"
	"github.com/arlenn/secvault/internal/vault"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	cfg *config.Config

	configPath string
	verbose    bool
	format     string

	openedVault   *vault.Vault
	openedKeyring *keystore.FileKeyring
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "secvault",
	Short: "Secvault - an on-device encrypted vault",
	Long: `Secvault stores website credentials, payment cards, identities and
secure notes in a locally encrypted database. Sensitive fields are
additionally encrypted with a key protected by your vault password.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("verbose") {
			cfg.Verbose = verbose
		}
		if cmd.Flags().Changed("format") {
			cfg.Format = format
		}

		if err := cfg.ValidateFormat(); err != nil {
			return err
		}

		if cfg.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
			if err := logging.Initialize("development"); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}

		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
			DisableColors:    false,
		})

		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}

		logrus.Debugf("Configuration loaded: db=%s, format=%s", cfg.DatabasePath, cfg.Format)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if openedVault != nil {
			if err := openedVault.Close(); err != nil {
				logrus.Debugf("failed to close vault: %v", err)
			}
		}
		if openedKeyring != nil {
			if err := openedKeyring.Close(); err != nil {
				logrus.Debugf("failed to close keyring: %v", err)
			}
		}
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: $HOME/.secvault/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format (text, json, yaml)")

	rootCmd.PersistentFlags().Lookup("format").Usage = "Output format [env: SECVAULT_FORMAT]"

	addCommands()
}

// openVault opens the vault lazily so commands like version and help
// never touch the keystore.
func openVault() (*vault.Vault, error) {
	if openedVault != nil {
		return openedVault, nil
	}

	keyring, err := keystore.NewFileKeyring(cfg.KeystoreDir, cfg.KeystorePassphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	v, err := vault.Open(vault.Options{
		DatabasePath:       cfg.DatabasePath,
		SharedDatabasePath: cfg.SharedDatabasePath,
		Keyring:            keyring,
		SessionTTL:         cfg.SessionTTL,
	})
	if err != nil {
		keyring.Close()
		return nil, err
	}

	openedKeyring = keyring
	openedVault = v
	return v, nil
}

// addCommands adds all subcommands to the root command
func addCommands() {
	rootCmd.AddCommand(commands.NewAddCommand(openVault))
	rootCmd.AddCommand(commands.NewGetCommand(openVault))
	rootCmd.AddCommand(commands.NewListCommand(openVault))
	rootCmd.AddCommand(commands.NewRmCommand(openVault))
	rootCmd.AddCommand(commands.NewNeverCommand(openVault))
	rootCmd.AddCommand(commands.NewNoteCommands(openVault))
	rootCmd.AddCommand(commands.NewCardCommands(openVault))
	rootCmd.AddCommand(commands.NewIdentityCommands(openVault))
	rootCmd.AddCommand(commands.NewUnlockCommand(openVault))
	rootCmd.AddCommand(commands.NewSetPasswordCommand(openVault))
	rootCmd.AddCommand(commands.NewCleanupCommand(openVault))
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, buildDate))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
