package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creativeprojects/imapfetch/lib"
	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/creativeprojects/imapfetch/protocol"
	"github.com/creativeprojects/imapfetch/rfc822"
)

type Config struct {
	ServerURL           string
	Username            string
	Password            string
	CacheDir            string
	DebugLogger         lib.Logger
	NoTLS               bool
	SkipTLSVerification bool
	// BandwidthLimit in bytes per second (0 = unlimited)
	BandwidthLimit float64
}

type Imap struct {
	client    *protocol.Client
	log       lib.Logger
	delimiter string
	selected  *mailbox.Status
	tag       string
	cacheDir  string
}

func NewImap(cfg Config) (*Imap, error) {
	log := cfg.DebugLogger
	if log == nil {
		log = &lib.NoLog{}
	}
	if cfg.ServerURL == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("missing information from Config object")
	}

	host, port, err := splitServerURL(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", cfg.ServerURL, err)
	}

	log.Printf("Connecting to server %s...", cfg.ServerURL)
	client, err := protocol.NewClient(protocol.Config{
		Host:                host,
		Port:                port,
		Secure:              !cfg.NoTLS,
		SkipTLSVerification: cfg.SkipTLSVerification,
		DebugLogger:         cfg.DebugLogger,
		BandwidthLimit:      cfg.BandwidthLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to server %s: %w", cfg.ServerURL, err)
	}
	log.Print("Connected")

	if err := client.Login(cfg.Username, cfg.Password); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("authentication failure: %w", err)
	}
	log.Printf("Logged in as %s", cfg.Username)

	// cache dir
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		wd, _ := os.Getwd()
		cacheDir = filepath.Join(wd, ".cache")
	}

	return &Imap{
		client:   client,
		log:      log,
		tag:      mailbox.AccountTag(cfg.ServerURL, cfg.Username),
		cacheDir: cacheDir,
	}, nil
}

// splitServerURL accepts "host:port" or a bare host name.
func splitServerURL(serverURL string) (string, uint16, error) {
	if !strings.Contains(serverURL, ":") {
		return serverURL, 0, nil
	}
	host, portValue, err := net.SplitHostPort(serverURL)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portValue, 10, 16)
	if err != nil {
		return "", 0, err
	}
	return host, uint16(port), nil
}

func (i *Imap) DebugLogger(logger lib.Logger) {
	i.log = logger
}

func (i *Imap) AccountID() string {
	return i.tag
}

func (i *Imap) Close() error {
	i.log.Print("Closing connection")
	return i.client.Close()
}

func (i *Imap) Delimiter() string {
	if i.delimiter == "" {
		_, _ = i.ListMailbox()
	}
	return i.delimiter
}

func (i *Imap) SupportMessageID() bool {
	return false
}

func (i *Imap) SupportMessageHash() bool {
	return false
}

func (i *Imap) ListMailbox() ([]mailbox.Info, error) {
	entries, err := i.client.ListMailboxes()
	if err != nil {
		return nil, err
	}

	i.log.Print("Listing mailboxes:")
	info := make([]mailbox.Info, 0, len(entries))
	for _, entry := range entries {
		i.log.Printf("* %q: %+v (delimiter = %q)", entry.Name, entry.Flags, entry.Delimiter)
		info = append(info, mailbox.Info{
			Delimiter: entry.Delimiter,
			Name:      entry.Name,
		})
		// sets the delimiter (if not already set)
		if i.delimiter == "" {
			i.delimiter = entry.Delimiter
		}
	}
	return info, nil
}

func (i *Imap) CreateMailbox(info mailbox.Info) error {
	name := info.Name
	mailboxes, err := i.ListMailbox()
	if err != nil {
		return err
	}
	if len(mailboxes) > 0 {
		for _, mailbox := range mailboxes {
			if mailbox.Name == name {
				// already existing
				return nil
			}
		}
		name = lib.VerifyDelimiter(name, info.Delimiter, i.Delimiter())
	}

	i.log.Printf("Creating mailbox %q using delimiter %q", name, i.Delimiter())
	return i.client.CreateMailbox(name)
}

func (i *Imap) DeleteMailbox(info mailbox.Info) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, i.Delimiter())
	i.log.Printf("Deleting mailbox %q using delimiter %q", name, i.Delimiter())
	return i.client.DeleteMailbox(name)
}

func (i *Imap) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, i.Delimiter())
	i.log.Printf("Selecting mailbox %q using delimiter %q", name, i.Delimiter())
	status, err := i.client.SelectMailbox(name)
	if err != nil {
		return nil, err
	}
	i.selected = status
	return i.selected, nil
}

// PutMessage is not available: the IMAP backend only reads from the server.
func (i *Imap) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	return mailbox.EmptyMessageID, lib.ErrReadOnly
}

func (i *Imap) FetchMessages(ctx context.Context, since time.Time, messages chan *mailbox.Message) error {
	defer close(messages)

	if i.selected == nil {
		return lib.ErrNotSelected
	}

	var ids []uint32
	var err error
	if !since.IsZero() {
		// removes a day
		since = lib.SafePadding(since)
		i.log.Printf("searching for emails after %s", since)
		ids, err = i.client.SearchSince(since)
	} else {
		ids, err = i.client.SearchAll()
	}
	if err != nil {
		return fmt.Errorf("cannot search for messages: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		props, err := i.client.FetchProperties(id)
		if err != nil {
			return fmt.Errorf("cannot fetch properties of message %d: %w", id, err)
		}
		body, err := i.client.FetchRawMessage(id)
		if err != nil {
			return fmt.Errorf("cannot fetch message %d: %w", id, err)
		}
		i.log.Printf("Received message uid=%d flags=%+v date=%q", id, props.Flags, props.InternalDate)
		message := &mailbox.Message{
			MessageProperties: mailbox.MessageProperties{
				Flags:        mailbox.StripRecentFlag(props.Flags),
				InternalDate: props.InternalDate,
				Size:         uint32(len(body)),
			},
			Uid:  mailbox.NewMessageIDFromUint(id),
			Body: io.NopCloser(strings.NewReader(body)),
		}
		select {
		case messages <- message:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	i.log.Print("All messages received")
	return nil
}

// FetchEnvelope returns the message summary without downloading its body.
func (i *Imap) FetchEnvelope(id uint32) (*mailbox.Envelope, error) {
	if i.selected == nil {
		return nil, lib.ErrNotSelected
	}
	return i.client.FetchEnvelope(id)
}

// FetchEmail downloads a single message section and parses it.
func (i *Imap) FetchEmail(id uint32, section string) (*rfc822.Email, error) {
	if i.selected == nil {
		return nil, lib.ErrNotSelected
	}
	return i.client.FetchEmail(id, section)
}

func (i *Imap) UnselectMailbox() error {
	i.selected = nil
	return nil
}

func (i *Imap) AddToHistory(info mailbox.Info, actions ...mailbox.HistoryAction) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, i.Delimiter())
	history, err := i.GetHistory(info)
	if err != nil {
		// just create a new file instead of failing
		history = &mailbox.History{
			Actions: make([]mailbox.HistoryAction, 0),
		}
	}
	history.Actions = append(history.Actions, actions...)

	return mailbox.SaveHistoryToFile(i.historyFile(name), history)
}

func (i *Imap) GetHistory(info mailbox.Info) (*mailbox.History, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, i.Delimiter())
	return mailbox.GetHistoryFromFile(i.historyFile(name))
}

func (i *Imap) historyFile(name string) string {
	filename := filepath.Join(i.cacheDir, i.tag)
	_ = os.MkdirAll(filename, 0700)
	return filepath.Join(filename, name+".history.json")
}
