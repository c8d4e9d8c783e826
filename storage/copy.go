package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/creativeprojects/imapfetch/term"
)

// CopyMessages transfers a whole mailbox between two backends.
// A non-nil since date restricts the copy to the messages received after it.
// It returns one entry per copied message so the caller can keep a record
// of the operation in the destination history.
func CopyMessages(ctx context.Context, backendSource, backendDest Backend, mbox mailbox.Info, pbar Progresser, since *time.Time) ([]mailbox.HistoryEntry, error) {
	err := backendDest.CreateMailbox(mbox)
	if err != nil {
		return nil, fmt.Errorf("cannot create mailbox at destination: %w", err)
	}

	fetchSince := time.Time{}
	if since != nil {
		fetchSince = *since
	}

	// an incremental copy fetches the messages around the restart date
	// again: the ones recorded in the destination history are skipped,
	// when the source IDs are stable enough to trust
	var history *mailbox.History
	if since != nil && backendSource.SupportMessageID() {
		history, _ = backendDest.GetHistory(mbox)
	}

	receiver := make(chan *mailbox.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- backendSource.FetchMessages(ctx, fetchSince, receiver)
	}()

	entries := make([]mailbox.HistoryEntry, 0)
	for msg := range receiver {
		if pbar != nil {
			pbar.Increment()
		}
		if entry := mailbox.FindHistoryEntryFromSourceID(history, msg.Uid); entry != nil {
			_ = msg.Body.Close()
			continue
		}
		messageID, err := backendDest.PutMessage(mbox, msg.MessageProperties, msg.Body)
		_ = msg.Body.Close()
		if err != nil {
			// display error but keep going
			term.Errorf("error saving message: %s", err)
			continue
		}
		entries = append(entries, mailbox.HistoryEntry{
			SourceID:     msg.Uid,
			InternalDate: msg.InternalDate,
			MessageID:    messageID,
		})
	}
	// wait until all the messages arrived
	err = <-done
	_ = backendSource.UnselectMailbox()
	if err != nil {
		return entries, fmt.Errorf("error loading messages: %w", err)
	}
	return entries, nil
}
