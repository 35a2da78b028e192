package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewUnlockCommand creates the unlock command.
func NewUnlockCommand(getVault GetVault) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Authenticate with the vault password",
		Long:  "Verify the vault password and start an authenticated session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			if err := v.AuthWith([]byte(password)); err != nil {
				return err
			}
			printOK("Vault unlocked")
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Vault password")

	return cmd
}

// NewSetPasswordCommand creates the set-password command.
func NewSetPasswordCommand(getVault GetVault) *cobra.Command {
	var (
		oldPassword string
		newPassword string
	)

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Set or change the vault password",
		Long: `Set or change the vault password.

Omit --old on a vault that has never had a password; the device-held
password is used and removed, so the new password is required from then
on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if newPassword == "" {
				return fmt.Errorf("--new is required")
			}

			v, err := getVault()
			if err != nil {
				return err
			}

			var old []byte
			if oldPassword != "" {
				old = []byte(oldPassword)
			}
			if err := v.ResetL2Password(old, []byte(newPassword)); err != nil {
				return err
			}
			printOK("Vault password updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&oldPassword, "old", "", "Current vault password")
	cmd.Flags().StringVar(&newPassword, "new", "", "New vault password")

	return cmd
}
