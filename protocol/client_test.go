package protocol

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/creativeprojects/imapfetch/lib"
	compress "github.com/emersion/go-imap-compress"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

// the message preloaded in the INBOX of the test server
const sampleMessage = "From: contact@example.org\r\n" +
	"To: contact@example.org\r\n" +
	"Subject: A little message, just for you\r\n" +
	"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
	"Message-ID: <0000000@localhost/>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Hi there :)"

// startServer runs an in-process IMAP server loaded with one test account
// ("username"/"password") and returns the configuration to reach it.
func startServer(t *testing.T) (Config, func()) {
	t.Helper()

	be := memory.New()
	imapServer := server.New(be)
	// testing only: allow plain text authentication over a non-encrypted
	// connection
	imapServer.AllowInsecureAuth = true
	imapServer.Enable(compress.NewExtension())

	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)

	t.Logf("Starting IMAP server at %s", listener.Addr().String())
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = imapServer.Serve(listener)
	}()

	time.Sleep(100 * time.Millisecond)

	host, portValue, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portValue, 10, 16)
	require.NoError(t, err)

	config := Config{
		Host:        host,
		Port:        uint16(port),
		DebugLogger: lib.NewTestLogger(t, "client"),
	}
	return config, func() {
		_ = imapServer.Close()
		wg.Wait()
	}
}

func TestClientAgainstLiveServer(t *testing.T) {
	config, stop := startServer(t)
	defer stop()

	client, err := NewClient(config)
	require.NoError(t, err)

	t.Run("LoginFailure", func(t *testing.T) {
		err := client.Login("username", "wrong password")
		assert.ErrorIs(t, err, ErrCommandFailed)
	})

	t.Run("Login", func(t *testing.T) {
		err := client.Login("username", "password")
		require.NoError(t, err)
	})

	t.Run("ListMailboxes", func(t *testing.T) {
		entries, err := client.ListMailboxes()
		require.NoError(t, err)
		assert.Contains(t, entries, ListEntry{Delimiter: "/", Name: "INBOX"})
	})

	t.Run("SelectMailbox", func(t *testing.T) {
		status, err := client.SelectMailbox("INBOX")
		require.NoError(t, err)
		assert.Equal(t, "INBOX", status.Name)
		assert.Equal(t, uint32(1), status.Messages)
		assert.Equal(t, uint32(1), status.UidValidity)
		assert.Equal(t, uint32(7), status.UidNext)
		assert.Contains(t, status.Flags, "\\Seen")
	})

	t.Run("SelectMailboxDoesNotExist", func(t *testing.T) {
		_, err := client.SelectMailbox("Does Not Exist")
		assert.ErrorIs(t, err, ErrCommandFailed)

		// reselect the inbox for the rest of the tests
		_, err = client.SelectMailbox("INBOX")
		require.NoError(t, err)
	})

	t.Run("SearchAll", func(t *testing.T) {
		ids, err := client.SearchAll()
		require.NoError(t, err)
		assert.Equal(t, []uint32{1}, ids)
	})

	t.Run("Count", func(t *testing.T) {
		count, err := client.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("SearchSince", func(t *testing.T) {
		ids, err := client.SearchSince(time.Now().Add(-24 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []uint32{1}, ids)

		ids, err = client.SearchSince(time.Now().Add(48 * time.Hour))
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("FetchEnvelope", func(t *testing.T) {
		envelope, err := client.FetchEnvelope(1)
		require.NoError(t, err)
		assert.Equal(t, "A little message, just for you", envelope.Subject)
		assert.Equal(t, "Wed, 11 May 2016 14:31:59 +0000", envelope.Date)
		require.Len(t, envelope.From, 1)
		assert.Equal(t, "contact", envelope.From[0].Mailbox)
		assert.Equal(t, "example.org", envelope.From[0].Host)
		assert.Equal(t, "contact@example.org", envelope.From[0].String())
		assert.Equal(t, "<0000000@localhost/>", envelope.MessageID)
	})

	t.Run("FetchProperties", func(t *testing.T) {
		props, err := client.FetchProperties(1)
		require.NoError(t, err)
		assert.Equal(t, []string{"\\Seen"}, props.Flags)
		assert.WithinDuration(t, time.Now(), props.InternalDate, time.Minute)
	})

	t.Run("FetchRawMessage", func(t *testing.T) {
		raw, err := client.FetchRawMessage(1)
		require.NoError(t, err)
		assert.Equal(t, sampleMessage, raw)
	})

	t.Run("FetchEmail", func(t *testing.T) {
		email, err := client.FetchEmail(1, "")
		require.NoError(t, err)
		assert.Equal(t, "A little message, just for you", email.Subject)
		assert.Equal(t, "Hi there :)", email.Text)
		require.Len(t, email.From, 1)
		assert.Equal(t, "contact", email.From[0].Mailbox)
	})

	t.Run("CreateAndDeleteMailbox", func(t *testing.T) {
		err := client.CreateMailbox("Work")
		require.NoError(t, err)

		entries, err := client.ListMailboxes()
		require.NoError(t, err)
		assert.Contains(t, entries, ListEntry{Delimiter: "/", Name: "Work"})

		status, err := client.SelectMailbox("Work")
		require.NoError(t, err)
		assert.Equal(t, uint32(0), status.Messages)

		err = client.DeleteMailbox("Work")
		require.NoError(t, err)

		err = client.DeleteMailbox("Work")
		assert.ErrorIs(t, err, ErrCommandFailed)
	})

	t.Run("Noop", func(t *testing.T) {
		assert.NoError(t, client.Noop())
	})

	t.Run("PipelinedCommands", func(t *testing.T) {
		_, err := client.SelectMailbox("INBOX")
		require.NoError(t, err)

		first, err := client.pipeline.submit("SEARCH ALL", false)
		require.NoError(t, err)
		second, err := client.pipeline.submit("FETCH 1 ENVELOPE", false)
		require.NoError(t, err)

		firstReply := <-first
		require.NoError(t, firstReply.err)
		assert.Contains(t, firstReply.body, "* SEARCH")

		secondReply := <-second
		require.NoError(t, secondReply.err)
		assert.Contains(t, secondReply.body, "ENVELOPE")
	})

	t.Run("Close", func(t *testing.T) {
		err := client.Close()
		assert.NoError(t, err)

		err = client.Noop()
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestClientWithBandwidthLimit(t *testing.T) {
	config, stop := startServer(t)
	defer stop()

	config.BandwidthLimit = 1024 * 1024
	client, err := NewClient(config)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	require.NoError(t, client.Login("username", "password"))

	_, err = client.SelectMailbox("INBOX")
	require.NoError(t, err)

	raw, err := client.FetchRawMessage(1)
	require.NoError(t, err)
	assert.Equal(t, sampleMessage, raw)
}

func TestConfigAddr(t *testing.T) {
	testCases := []struct {
		config   Config
		expected string
	}{
		{Config{Host: "mail.example.com"}, "mail.example.com:143"},
		{Config{Host: "mail.example.com", Secure: true}, "mail.example.com:993"},
		{Config{Host: "mail.example.com", Port: 1143}, "mail.example.com:1143"},
		{Config{Host: "mail.example.com", Port: 1993, Secure: true}, "mail.example.com:1993"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.expected, func(t *testing.T) {
			assert.Equal(t, testCase.expected, testCase.config.Addr())
		})
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}
