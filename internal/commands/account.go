package commands

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arlenn/secvault/internal/storage"
	"github.com/arlenn/secvault/internal/vault"
)

// NewAddCommand creates the add command.
func NewAddCommand(getVault GetVault) *cobra.Command {
	var (
		title    string
		username string
		password string
		domain   string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save website credentials",
		Long:  "Save a username and password for a website",
		RunE: func(cmd *cobra.Command, args []string) error {
			if domain == "" || password == "" {
				return fmt.Errorf("--domain and --password are required")
			}

			v, err := getVault()
			if err != nil {
				return err
			}

			id, err := v.SaveWebsiteCredentials(cmd.Context(), &vault.WebsiteCredentials{
				Account: storage.Account{
					Title:    title,
					Username: username,
					Domain:   domain,
					Notes:    notes,
				},
				Password: password,
			})
			if err != nil {
				return err
			}

			logrus.Debugf("account %d saved", id)
			printOK("Saved credentials for %s (id %d)", domain, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Website domain")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(getVault GetVault) *cobra.Command {
	var showPassword bool

	cmd := &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show one account",
		Long:  "Show a saved account; --show-password decrypts and prints the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}

			creds, err := v.WebsiteCredentialsFor(cmd.Context(), id)
			if err != nil {
				return err
			}

			printField("Domain", creds.Account.Domain)
			printField("Username", creds.Account.Username)
			if creds.Account.Title != "" {
				printField("Title", creds.Account.Title)
			}
			if showPassword {
				printField("Password", creds.Password)
			}
			if err := v.UpdateLastUsed(cmd.Context(), id); err != nil {
				logrus.Debugf("failed to bump last used: %v", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPassword, "show-password", false, "Print the decrypted password")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(getVault GetVault) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved accounts",
		Long:  "List saved accounts, optionally restricted to one website",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}

			var accounts []storage.Account
			if domain != "" {
				accounts, err = v.AccountsFor(cmd.Context(), domain)
			} else {
				accounts, err = v.Accounts(cmd.Context())
			}
			if err != nil {
				return err
			}

			if len(accounts) == 0 {
				printWarn("No accounts found")
				return nil
			}
			for _, a := range accounts {
				fmt.Printf("%4d  %-30s %s\n", a.ID, a.Domain, a.Username)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Restrict to accounts matching this website")

	return cmd
}

// NewRmCommand creates the rm command.
func NewRmCommand(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <account-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			if err := v.DeleteAccount(cmd.Context(), id); err != nil {
				return err
			}
			printOK("Account %d deleted", id)
			return nil
		},
	}
}
