package protocol

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/creativeprojects/imapfetch/lib"
	"github.com/creativeprojects/imapfetch/limitio"
	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/creativeprojects/imapfetch/rfc822"
)

const (
	imapPort    = 143
	imapTLSPort = 993

	// searchDateFormat is the day format of SEARCH SINCE and friends.
	searchDateFormat = "2-Jan-2006"

	// rate limited connections allow a burst of this many bytes.
	burstSize = 16 * 1024
)

// Config is the connection configuration of a Client.
type Config struct {
	Host string
	// Port is optional: 0 selects the standard port for the connection type.
	Port uint16
	// Secure wraps the connection in TLS.
	Secure bool
	// SkipTLSVerification accepts any certificate presented by the server.
	SkipTLSVerification bool
	// DebugLogger traces the protocol exchange. Optional.
	DebugLogger lib.Logger
	// BandwidthLimit in bytes per second, 0 means unlimited.
	BandwidthLimit float64
}

// Addr returns the host:port to dial, applying the default IMAP port.
func (c Config) Addr() string {
	port := int(c.Port)
	if port == 0 {
		if c.Secure {
			port = imapTLSPort
		} else {
			port = imapPort
		}
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Client speaks the client side of the IMAP4 protocol over a single
// connection. Each operation sends one command and blocks until the server
// answered it; operations issued while another is in flight are queued and
// answered in submission order.
type Client struct {
	conn     net.Conn
	pipeline *pipeline
	log      lib.Logger
}

// NewClient connects to the server and starts the response reader. The
// server greeting is absorbed by the reader before the first command.
func NewClient(config Config) (*Client, error) {
	if config.Host == "" {
		return nil, errors.New("missing server host name")
	}
	log := config.DebugLogger
	if log == nil {
		log = &lib.NoLog{}
	}
	addr := config.Addr()
	var conn net.Conn
	var err error
	if config.Secure {
		conn, err = tls.Dial("tcp", addr, &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerification,
		})
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", addr, err)
	}
	var reader io.Reader = conn
	var writer io.Writer = conn
	if config.BandwidthLimit > 0 {
		limitReader := limitio.NewReader(conn)
		limitReader.SetRateLimit(config.BandwidthLimit, burstSize)
		reader = limitReader

		limitWriter := limitio.NewWriter(conn)
		limitWriter.SetRateLimit(config.BandwidthLimit, burstSize)
		writer = limitWriter
	}
	client := &Client{
		conn:     conn,
		pipeline: newPipeline(writer, log),
		log:      log,
	}
	go client.read(reader)
	return client, nil
}

// read pumps the connection into the pipeline until the stream ends.
func (c *Client) read(reader io.Reader) {
	framer := &lineFramer{}
	buffer := make([]byte, 4096)
	for {
		n, err := reader.Read(buffer)
		if n > 0 {
			for _, line := range framer.feed(buffer[:n]) {
				c.pipeline.receive(line)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Printf("connection lost: %v", err)
			}
			c.pipeline.closed()
			return
		}
	}
}

// Login authenticates with the plaintext LOGIN command.
func (c *Client) Login(username, password string) error {
	_, err := c.pipeline.execute("LOGIN "+quoteString(username)+" "+quoteString(password), false)
	if err != nil {
		return fmt.Errorf("cannot login: %w", err)
	}
	return nil
}

// ListMailboxes returns every mailbox of the account.
func (c *Client) ListMailboxes() ([]ListEntry, error) {
	body, err := c.pipeline.execute(`LIST "" "*"`, true)
	if err != nil {
		return nil, fmt.Errorf("cannot list mailboxes: %w", err)
	}
	return parseList(body), nil
}

// SelectMailbox opens a mailbox and returns its status.
func (c *Client) SelectMailbox(name string) (*mailbox.Status, error) {
	body, err := c.pipeline.execute("SELECT "+quoteString(name), true)
	if err != nil {
		return nil, fmt.Errorf("cannot select mailbox %q: %w", name, err)
	}
	status := parseSelect(body)
	status.Name = name
	return status, nil
}

// SearchAll returns the sequence numbers of all messages in the selected
// mailbox.
func (c *Client) SearchAll() ([]uint32, error) {
	body, err := c.pipeline.execute("SEARCH ALL", false)
	if err != nil {
		return nil, fmt.Errorf("cannot search messages: %w", err)
	}
	return parseSearch(body), nil
}

// SearchSince returns the sequence numbers of the messages received on or
// after the given day.
func (c *Client) SearchSince(since time.Time) ([]uint32, error) {
	body, err := c.pipeline.execute("SEARCH SINCE "+since.Format(searchDateFormat), false)
	if err != nil {
		return nil, fmt.Errorf("cannot search messages: %w", err)
	}
	return parseSearch(body), nil
}

// Count returns the number of messages in the selected mailbox.
func (c *Client) Count() (int, error) {
	ids, err := c.SearchAll()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// FetchEnvelope returns the envelope of one message.
func (c *Client) FetchEnvelope(id uint32) (*mailbox.Envelope, error) {
	body, err := c.pipeline.execute(fmt.Sprintf("FETCH %d ENVELOPE", id), false)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch envelope of message %d: %w", id, err)
	}
	envelopes := parseEnvelope(body)
	if len(envelopes) == 0 {
		return nil, fmt.Errorf("no envelope in the reply for message %d", id)
	}
	return &envelopes[0], nil
}

// FetchProperties returns the flags and internal date of one message.
func (c *Client) FetchProperties(id uint32) (*mailbox.MessageProperties, error) {
	body, err := c.pipeline.execute(fmt.Sprintf("FETCH %d (FLAGS INTERNALDATE)", id), false)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch properties of message %d: %w", id, err)
	}
	props := parseFetchProperties(body)
	return &props, nil
}

// FetchEmail returns one message fetched and parsed. The section selects
// which part of the message to fetch, the empty string for the whole of
// it. Soft line breaks and common quoted-printable leftovers are repaired
// before parsing; a reply carrying a bare html document is returned as is.
func (c *Client) FetchEmail(id uint32, section string) (*rfc822.Email, error) {
	body, err := c.pipeline.execute(fmt.Sprintf("FETCH %d BODY[%s]", id, section), true)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch message %d: %w", id, err)
	}
	text, ok := reconstructLiteral(body)
	if !ok {
		text = stripFetchWrapper(body)
	}
	text = repairText(text)
	if html, found := extractHTML(text); found {
		return &rfc822.Email{HTML: html}, nil
	}
	email, err := rfc822.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("cannot parse message %d: %w", id, err)
	}
	return email, nil
}

// FetchRawMessage returns the exact octets of one message. The {n} byte
// count of the literal marker cuts the line split content back to the
// original bytes.
func (c *Client) FetchRawMessage(id uint32) (string, error) {
	body, err := c.pipeline.execute(fmt.Sprintf("FETCH %d BODY[]", id), true)
	if err != nil {
		return "", fmt.Errorf("cannot fetch message %d: %w", id, err)
	}
	if content, ok := reconstructLiteral(body); ok {
		return content, nil
	}
	return stripFetchWrapper(body), nil
}

// CreateMailbox creates a new mailbox.
func (c *Client) CreateMailbox(name string) error {
	_, err := c.pipeline.execute("CREATE "+quoteString(name), false)
	if err != nil {
		return fmt.Errorf("cannot create mailbox %q: %w", name, err)
	}
	return nil
}

// DeleteMailbox removes a mailbox and the messages it contains.
func (c *Client) DeleteMailbox(name string) error {
	_, err := c.pipeline.execute("DELETE "+quoteString(name), false)
	if err != nil {
		return fmt.Errorf("cannot delete mailbox %q: %w", name, err)
	}
	return nil
}

// Noop pings the server, keeping the connection alive.
func (c *Client) Noop() error {
	_, err := c.pipeline.execute("NOOP", false)
	if err != nil {
		return fmt.Errorf("cannot ping the server: %w", err)
	}
	return nil
}

// Close logs out and closes the connection.
func (c *Client) Close() error {
	_, err := c.pipeline.execute("LOGOUT", false)
	c.pipeline.closed()
	if err != nil && !errors.Is(err, ErrConnectionClosed) && !errors.Is(err, ErrNotConnected) {
		_ = c.conn.Close()
		return fmt.Errorf("logout: %w", err)
	}
	return c.conn.Close()
}

// quoteString returns the value as an IMAP quoted string.
func quoteString(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return "\"" + value + "\""
}
