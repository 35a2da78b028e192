package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNeverCommand creates the never command group: the list of domains
// the user never wants save prompts for.
func NewNeverCommand(getVault GetVault) *cobra.Command {
	neverCmd := &cobra.Command{
		Use:   "never",
		Short: "Manage the never-save list",
		Long:  "Manage the list of websites that never prompt to save credentials",
	}

	neverCmd.AddCommand(newNeverAddCmd(getVault))
	neverCmd.AddCommand(newNeverListCmd(getVault))
	neverCmd.AddCommand(newNeverClearCmd(getVault))

	return neverCmd
}

func newNeverAddCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "add <domain>",
		Short: "Never prompt to save for a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}
			if err := v.AddNeverPromptSite(cmd.Context(), args[0]); err != nil {
				return err
			}
			printOK("Added %s to the never-save list", args[0])
			return nil
		},
	}
}

func newNeverListCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List never-save domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}
			sites, err := v.NeverPromptSites(cmd.Context())
			if err != nil {
				return err
			}
			if len(sites) == 0 {
				printWarn("Never-save list is empty")
				return nil
			}
			for _, s := range sites {
				fmt.Println(s.Domain)
			}
			return nil
		},
	}
}

func newNeverClearCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the never-save list",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}
			if err := v.DeleteAllNeverPromptSites(cmd.Context()); err != nil {
				return err
			}
			printOK("Never-save list cleared")
			return nil
		},
	}
}
