package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arlenn/secvault/internal/vault"
)

// NewCardCommands returns the card command group.
func NewCardCommands(getVault GetVault) *cobra.Command {
	cardCmd := &cobra.Command{
		Use:     "card",
		Short:   "Manage payment cards",
		Aliases: []string{"cards"},
	}

	cardCmd.AddCommand(newCardAddCmd(getVault))
	cardCmd.AddCommand(newCardGetCmd(getVault))
	cardCmd.AddCommand(newCardListCmd(getVault))
	cardCmd.AddCommand(newCardRmCmd(getVault))

	return cardCmd
}

func newCardAddCmd(getVault GetVault) *cobra.Command {
	var (
		title    string
		number   string
		holder   string
		code     string
		expMonth int
		expYear  int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a payment card",
		RunE: func(cmd *cobra.Command, args []string) error {
			if number == "" {
				return fmt.Errorf("--number is required")
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			id, err := v.SaveCreditCard(cmd.Context(), &vault.CreditCard{
				Title:           title,
				CardNumber:      number,
				CardholderName:  holder,
				SecurityCode:    code,
				ExpirationMonth: expMonth,
				ExpirationYear:  expYear,
			})
			if err != nil {
				return err
			}
			printOK("Card %d saved", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title")
	cmd.Flags().StringVar(&number, "number", "", "Card number")
	cmd.Flags().StringVar(&holder, "holder", "", "Cardholder name")
	cmd.Flags().StringVar(&code, "code", "", "Security code")
	cmd.Flags().IntVar(&expMonth, "exp-month", 0, "Expiration month")
	cmd.Flags().IntVar(&expYear, "exp-year", 0, "Expiration year")

	return cmd
}

func newCardGetCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "get <card-id>",
		Short: "Show one card with its decrypted number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid card id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			card, err := v.CreditCardByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			printField("Title", card.Title)
			printField("Number", card.CardNumber)
			if card.CardholderName != "" {
				printField("Holder", card.CardholderName)
			}
			if card.ExpirationMonth != 0 {
				printField("Expires", fmt.Sprintf("%02d/%d", card.ExpirationMonth, card.ExpirationYear))
			}
			return nil
		},
	}
}

func newCardListCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cards by suffix, no authentication needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getVault()
			if err != nil {
				return err
			}
			cards, err := v.CreditCards(cmd.Context())
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				printWarn("No cards found")
				return nil
			}
			for _, c := range cards {
				fmt.Printf("%4d  %-20s ····%s\n", c.ID, c.Title, c.CardSuffix)
			}
			return nil
		},
	}
}

func newCardRmCmd(getVault GetVault) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <card-id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid card id %q", args[0])
			}

			v, err := getVault()
			if err != nil {
				return err
			}
			if err := v.DeleteCreditCard(cmd.Context(), id); err != nil {
				return err
			}
			printOK("Card %d deleted", id)
			return nil
		},
	}
}
