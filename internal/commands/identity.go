package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arlenn/secvault/internal/storage"
)

// NewIdentityCommands returns the identity command group.
func NewIdentityCommands(getVault GetVault) *cobra.Command {
	identityCmd := &cobra.Command{
		Use:     "identity",
		Short:   "Manage autofill identities",
		Aliases: []string{"identities"},
	}

	identityCmd.AddCommand(newIdentityAddCmd(getVault))
	identityCmd.AddCommand(newIdentityGetCmd(getVault))
	identityCmd.AddCommand(newIdentityListCmd(getVault))
	identityCmd.AddCommand(newIdentityRmCmd(getVault))

	return identityCmd
}

func newIdentityAddCmd(getVault GetVault) *cobra.Command {
	var identity storage.Identity

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if identity.Title == "" {
				return fmt.Errorf("--title is required")
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			id, err := v.SaveIdentity(cmd.Context(), &identity)
			if err != nil {
				return err
			}
			printOK("Identity %d saved", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity.Title, "title", "", "Display title")
	cmd.Flags().StringVar(&identity.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&identity.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&identity.AddressStreet, "street", "", "Street address")
	cmd.Flags().StringVar(&identity.AddressCity, "city", "", "City")
	cmd.Flags().StringVar(&identity.AddressState, "state", "", "State")
	cmd.Flags().StringVar(&identity.AddressZip, "zip", "", "Postal code")
	cmd.Flags().StringVar(&identity.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&identity.Email, "email", "", "Email address")

	return cmd
}

func newIdentityGetCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "get <identity-id>",
		Short: "Show one identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid identity id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			identity, err := v.IdentityByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			printField("Title", identity.Title)
			printField("Name", identity.FirstName+" "+identity.LastName)
			if identity.Email != "" {
				printField("Email", identity.Email)
			}
			if identity.Phone != "" {
				printField("Phone", identity.Phone)
			}
			return nil
		},
	}
}

func newIdentityListCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}
			identities, err := v.Identities(cmd.Context())
			if err != nil {
				return err
			}
			if len(identities) == 0 {
				printWarn("No identities found")
				return nil
			}
			for _, i := range identities {
				fmt.Printf("%4d  %s\n", i.ID, i.Title)
			}
			return nil
		},
	}
}

func newIdentityRmCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <identity-id>",
		Short: "Delete an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid identity id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			if err := v.DeleteIdentity(cmd.Context(), id); err != nil {
				return err
			}
			printOK("Identity %d deleted", id)
			return nil
		},
	}
}
