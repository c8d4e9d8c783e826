package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/creativeprojects/imapfetch/storage"
	"github.com/creativeprojects/imapfetch/term"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display a message from a mailbox",
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if len(args) < 3 {
		return errors.New("needs an account name, a mailbox and a message ID")
	}
	accountName := args[0]
	account, ok := config.Accounts[accountName]
	if !ok {
		return fmt.Errorf("account not found: %s", accountName)
	}
	id, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid message ID %q: %w", args[2], err)
	}
	backend, err := NewBackend(account, nil)
	if err != nil {
		return fmt.Errorf("cannot open backend: %w", err)
	}
	defer backend.Close()

	viewer, ok := backend.(storage.Viewer)
	if !ok {
		return fmt.Errorf("cannot display a single message from a %q account", account.Type)
	}

	_, err = backend.SelectMailbox(mailbox.Info{Name: args[1], Delimiter: backend.Delimiter()})
	if err != nil {
		return fmt.Errorf("cannot select mailbox %q: %w", args[1], err)
	}
	defer backend.UnselectMailbox()

	envelope, err := viewer.FetchEnvelope(uint32(id))
	if err != nil {
		return fmt.Errorf("cannot load message %d: %w", id, err)
	}
	displayEnvelope(envelope)

	email, err := viewer.FetchEmail(uint32(id), "")
	if err != nil {
		return fmt.Errorf("cannot load message %d: %w", id, err)
	}
	switch {
	case email.Text != "":
		fmt.Println(email.Text)
	case email.HTML != "":
		fmt.Println(email.HTML)
	default:
		term.Warn("this message has no text to display")
	}
	if len(email.Attachments) > 0 {
		term.Infof("attachments: %s", strings.Join(email.Attachments, ", "))
	}
	return nil
}

func displayEnvelope(envelope *mailbox.Envelope) {
	table := pterm.DefaultTable.WithData(pterm.TableData{
		{"Date", envelope.Date},
		{"From", displayAddresses(envelope.From)},
		{"To", displayAddresses(envelope.To)},
		{"Subject", envelope.Subject},
	})
	_ = table.Render()
}

func displayAddresses(addresses []mailbox.Address) string {
	list := make([]string, len(addresses))
	for i, address := range addresses {
		list[i] = address.String()
	}
	return strings.Join(list, ", ")
}
