package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arlenn/secvault/internal/storage"
)

// NewNoteCommands returns the note command group.
func NewNoteCommands(getVault GetVault) *cobra.Command {
	noteCmd := &cobra.Command{
		Use:     "note",
		Short:   "Manage secure notes",
		Aliases: []string{"notes"},
	}

	noteCmd.AddCommand(newNoteAddCmd(getVault))
	noteCmd.AddCommand(newNoteGetCmd(getVault))
	noteCmd.AddCommand(newNoteListCmd(getVault))
	noteCmd.AddCommand(newNoteRmCmd(getVault))

	return noteCmd
}

func newNoteAddCmd(getVault GetVault) *cobra.Command {
	var (
		title  string
		text   string
		domain string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a secure note",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			id, err := v.SaveNote(cmd.Context(), &storage.Note{
				Title:            title,
				Text:             text,
				AssociatedDomain: domain,
			})
			if err != nil {
				return err
			}
			printOK("Note %d saved", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&text, "text", "", "Note body")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "Associated website")

	return cmd
}

func newNoteGetCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "get <note-id>",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid note id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			note, err := v.NoteByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			printField("Title", note.Title)
			if note.AssociatedDomain != "" {
				printField("Domain", note.AssociatedDomain)
			}
			fmt.Println(note.Text)
			return nil
		},
	}
}

func newNoteListCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}
			notes, err := v.Notes(cmd.Context())
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				printWarn("No notes found")
				return nil
			}
			for _, n := range notes {
				fmt.Printf("%4d  %s\n", n.ID, n.Title)
			}
			return nil
		},
	}
}

func newNoteRmCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid note id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			if err := v.DeleteNote(cmd.Context(), id); err != nil {
				return err
			}
			printOK("Note %d deleted", id)
			return nil
		},
	}
}
