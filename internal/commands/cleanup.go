package commands

import (
	"github.com/spf13/cobra"

	"github.com/arlenn/secvault/internal/jobs"
)

// NewCleanupCommand creates the cleanup command: a manual tombstone
// cleanup pass.
func NewCleanupCommand(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge sync tombstones",
		Long:  "Remove sync metadata rows whose records were deleted and already observed by sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}

			cleaner := jobs.NewTombstoneCleaner(v.Store(), nil, nil, jobs.DefaultConfig())
			count := cleaner.RunPass(cmd.Context(), true)
			printOK("Removed %d tombstones", count)
			return nil
		},
	}
}
