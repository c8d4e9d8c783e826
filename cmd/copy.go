package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/creativeprojects/imapfetch/storage"
	"github.com/creativeprojects/imapfetch/term"
	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy an account mailboxes to another one",
	RunE:  runCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account names (source and destination)")
	} else if len(args) < 2 {
		return errors.New("missing destination account name")
	}

	source := args[0]
	accountSource, ok := config.Accounts[source]
	if !ok {
		return fmt.Errorf("source account not found: %s", source)
	}
	backendSource, err := NewBackend(accountSource, nil)
	if err != nil {
		return fmt.Errorf("cannot open source backend: %w", err)
	}
	defer backendSource.Close()

	destination := args[1]
	accountDest, ok := config.Accounts[destination]
	if !ok {
		return fmt.Errorf("destination account not found: %s", destination)
	}
	backendDest, err := NewBackend(accountDest, nil)
	if err != nil {
		return fmt.Errorf("cannot open destination backend: %w", err)
	}
	defer backendDest.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sourceID := backendSource.AccountID()

	mailboxes, err := backendSource.ListMailbox()
	if err != nil {
		return fmt.Errorf("cannot list source account mailbox: %w", err)
	}

	for _, mbox := range mailboxes {
		status, err := backendSource.SelectMailbox(mbox)
		if err != nil {
			continue
		}
		if status.Messages == 0 {
			// it's empty so don't bother
			continue
		}
		since := findCopyStart(sourceID, backendDest, mbox)
		if since != nil {
			term.Debugf("mailbox %s: resuming copy from %s", mbox.Name, since.Format(dateFormat))
		}
		term.Infof("copying mailbox %s", mbox.Name)
		pbar := startProgress(status.Messages)
		entries, err := storage.CopyMessages(ctx, backendSource, backendDest, mbox, pbar, since)
		pbar.Stop()
		if err != nil {
			term.Error(err.Error())
		}
		if len(entries) == 0 {
			continue
		}
		err = backendDest.AddToHistory(mbox, mailbox.HistoryAction{
			SourceAccountTag: sourceID,
			Date:             time.Now(),
			Action:           mailbox.ActionCopy,
			UidValidity:      status.UidValidity,
			Entries:          entries,
		})
		if err != nil {
			term.Errorf("cannot save copy history: %s", err)
		}
	}
	return nil
}

// findCopyStart returns the date to restart an incremental copy from,
// or nil to copy the whole mailbox again.
func findCopyStart(sourceID string, backendDest storage.Backend, mbox mailbox.Info) *time.Time {
	history, err := backendDest.GetHistory(mbox)
	if err != nil {
		// the mailbox may not exist yet at the destination
		return nil
	}
	latest := mailbox.FindLatestInternalDateFromHistory(sourceID, history)
	if latest.IsZero() {
		return nil
	}
	return &latest
}
