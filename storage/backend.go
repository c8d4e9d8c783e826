package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/creativeprojects/imapfetch/cfg"
	"github.com/creativeprojects/imapfetch/lib"
	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/creativeprojects/imapfetch/mdir"
	"github.com/creativeprojects/imapfetch/mem"
	"github.com/creativeprojects/imapfetch/remote"
	"github.com/creativeprojects/imapfetch/rfc822"
	"github.com/creativeprojects/imapfetch/store"
)

type Backend interface {
	// DebugLogger sets a logger to send debug information to
	DebugLogger(logger lib.Logger)
	// AccountID identifies the account in the copy history
	AccountID() string
	// Delimiter used to construct a path of mailboxes with its children
	Delimiter() string
	// SupportMessageID indicates if the backend returns the ID of a message saved by PutMessage
	SupportMessageID() bool
	// SupportMessageHash indicates if the backend keeps a hash of the message content
	SupportMessageHash() bool
	// Close the backend
	Close() error
	CreateMailbox(info mailbox.Info) error
	ListMailbox() ([]mailbox.Info, error)
	DeleteMailbox(info mailbox.Info) error
	// SelectMailbox opens the current mailbox for fetching messages
	SelectMailbox(info mailbox.Info) (*mailbox.Status, error)
	PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error)
	// FetchMessages needs a mailbox to be selected first.
	// A zero since value sends every message of the mailbox to the channel.
	FetchMessages(ctx context.Context, since time.Time, messages chan *mailbox.Message) error
	// UnselectMailbox after fetching messages
	UnselectMailbox() error
	AddToHistory(info mailbox.Info, actions ...mailbox.HistoryAction) error
	GetHistory(info mailbox.Info) (*mailbox.History, error)
}

// Viewer can display a single message without downloading the whole mailbox
type Viewer interface {
	FetchEnvelope(id uint32) (*mailbox.Envelope, error)
	FetchEmail(id uint32, section string) (*rfc822.Email, error)
}

// Progresser advertises the progress of a long operation
type Progresser interface {
	Increment()
}

// verify interface
var (
	_ Backend = &remote.Imap{}
	_ Backend = &store.BoltStore{}
	_ Backend = &mdir.Maildir{}
	_ Backend = &mem.Backend{}
	_ Viewer  = &remote.Imap{}
)

func NewBackend(config cfg.Account, logger lib.Logger) (Backend, error) {
	switch config.Type {
	case cfg.IMAP:
		return remote.NewImap(remote.Config{
			ServerURL:           config.ServerURL,
			Username:            config.Username,
			Password:            config.Password,
			CacheDir:            config.CacheDir,
			DebugLogger:         logger,
			NoTLS:               config.NoTLS,
			SkipTLSVerification: config.SkipTLSVerification,
			BandwidthLimit:      config.BandwidthLimit,
		})
	case cfg.LOCAL:
		return store.NewBoltStoreWithLogger(config.File, logger)
	case cfg.MAILDIR:
		return mdir.NewWithLogger(config.Root, logger)
	default:
		return nil, fmt.Errorf("unsupported account type %q", config.Type)
	}
}
