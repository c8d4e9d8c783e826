package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creativeprojects/imapfetch/cfg"
	"github.com/creativeprojects/imapfetch/lib"
	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/creativeprojects/imapfetch/mdir"
	"github.com/creativeprojects/imapfetch/mem"
	"github.com/creativeprojects/imapfetch/remote"
	"github.com/creativeprojects/imapfetch/store"
	compress "github.com/emersion/go-imap-compress"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

var sampleMessage = "From: contact@example.org\r\n" +
	"To: contact@example.org\r\n" +
	"Subject: A little message, just for you\r\n" +
	"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
	"Message-ID: <0000000@localhost/>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Hi there :)"

func TestImapBackend(t *testing.T) {
	// Create a memory backend
	be := memory.New()

	// Create a new server
	server := server.New(be)
	// Since we will use this server for testing only, we can allow plain text
	// authentication over non-encrypted connections
	server.AllowInsecureAuth = true
	server.Enable(compress.NewExtension())

	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)

	t.Logf("Starting IMAP server at %s", listener.Addr().String())
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = server.Serve(listener)
	}()

	time.Sleep(100 * time.Millisecond)

	backend, err := remote.NewImap(remote.Config{
		ServerURL:   listener.Addr().String(),
		Username:    "username",
		Password:    "password",
		NoTLS:       true,
		CacheDir:    t.TempDir(),
		DebugLogger: lib.NewTestLogger(t, "client"),
	})
	require.NoError(t, err)

	// the server is the source of the copy: the IMAP backend cannot save messages
	t.Run("CopyInbox", func(t *testing.T) {
		info := mailbox.Info{Name: "INBOX", Delimiter: backend.Delimiter()}
		status, err := backend.SelectMailbox(info)
		require.NoError(t, err)
		require.NotZero(t, status.Messages)

		memBackend := mem.NewWithLogger(lib.NewTestLogger(t, "mem"))
		progress := &testProgress{}
		entries, err := CopyMessages(context.Background(), backend, memBackend, info, progress, nil)
		require.NoError(t, err)

		assert.Equal(t, status.Messages, progress.count)
		assert.Equal(t, int(status.Messages), len(entries))

		copied, err := memBackend.SelectMailbox(info)
		require.NoError(t, err)
		assert.Equal(t, status.Messages, copied.Messages)

		// the message arrived in one piece
		receiver := make(chan *mailbox.Message, 10)
		done := make(chan error, 1)
		go func() {
			done <- memBackend.FetchMessages(context.Background(), time.Time{}, receiver)
		}()
		for msg := range receiver {
			content, err := io.ReadAll(msg.Body)
			assert.NoError(t, err)
			msg.Body.Close()
			assert.Equal(t, sampleMessage, string(content))
		}
		assert.NoError(t, <-done)
	})

	err = backend.Close()
	assert.NoError(t, err)

	// close the server
	err = server.Close()
	assert.NoError(t, err)
	wg.Wait()
}

func TestMaildirBackend(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("maildir is not supported on Windows")
		return
	}
	root := t.TempDir()
	backend, err := mdir.NewWithLogger(root, lib.NewTestLogger(t, "client"))
	require.NoError(t, err)

	defer backend.Close()

	RunIntegrationTestsOnBackend(t, backend)
}

func TestStoreBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := store.NewBoltStoreWithLogger(filepath.Join(dir, "store.db"), lib.NewTestLogger(t, "client"))
	require.NoError(t, err)

	defer backend.Close()

	RunIntegrationTestsOnBackend(t, backend)
}

func TestMemoryBackend(t *testing.T) {
	backend := mem.NewWithLogger(lib.NewTestLogger(t, "client"))

	defer backend.Close()

	RunIntegrationTestsOnBackend(t, backend)
}

func TestIncrementalCopySkipsRecordedMessages(t *testing.T) {
	source := mem.NewWithLogger(lib.NewTestLogger(t, "source"))
	dest := mem.NewWithLogger(lib.NewTestLogger(t, "dest"))

	info := mailbox.Info{Name: "Incremental", Delimiter: "."}
	require.NoError(t, source.CreateMailbox(info))

	base := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	for day := 0; day < 3; day++ {
		body := fmt.Sprintf("From: sender@example.com\r\n\r\nmessage number %d", day)
		_, err := source.PutMessage(info, mailbox.MessageProperties{
			InternalDate: base.AddDate(0, 0, day),
			Size:         uint32(len(body)),
		}, strings.NewReader(body))
		require.NoError(t, err)
	}

	status, err := source.SelectMailbox(info)
	require.NoError(t, err)

	entries, err := CopyMessages(context.Background(), source, dest, info, nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	err = dest.AddToHistory(info, mailbox.HistoryAction{
		SourceAccountTag: source.AccountID(),
		Date:             time.Now(),
		Action:           mailbox.ActionCopy,
		UidValidity:      status.UidValidity,
		Entries:          entries,
	})
	require.NoError(t, err)

	// restart the copy from the date of the second message: the safety
	// padding fetches it again but the history knows it already
	_, err = source.SelectMailbox(info)
	require.NoError(t, err)

	since := base.AddDate(0, 0, 1)
	progress := &testProgress{}
	entries, err = CopyMessages(context.Background(), source, dest, info, progress, &since)
	require.NoError(t, err)

	assert.Equal(t, uint32(2), progress.count)
	assert.Empty(t, entries)

	copied, err := dest.SelectMailbox(info)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), copied.Messages)
}

func TestBackendFromConfig(t *testing.T) {
	wd, err := os.Getwd()
	assert.NoError(t, err)

	filename := filepath.Join(wd, "test.yaml")
	config, err := cfg.LoadFromFile(filename)
	if err != nil {
		t.Skip(err)
		return
	}

	for name, account := range config.Accounts {
		if account.Type == cfg.MAILDIR && runtime.GOOS == "windows" {
			t.Log("maildir is not supported on Windows")
			continue
		}
		backend, err := NewBackend(account, lib.NewTestLogger(t, "client"))
		require.NoError(t, err)
		defer backend.Close()

		if account.Type == cfg.IMAP {
			// remote accounts are read from, not written to
			t.Run(name, func(t *testing.T) {
				list, err := backend.ListMailbox()
				require.NoError(t, err)
				assert.NotEmpty(t, list)
			})
			continue
		}

		t.Run(name, func(t *testing.T) {
			RunIntegrationTestsOnBackend(t, backend)
		})
	}
}

func RunIntegrationTestsOnBackend(t *testing.T, backend Backend) {
	require.NotNil(t, backend)

	t.Run("CopyMailbox", func(t *testing.T) {
		var total uint32 = 23
		info := mailbox.Info{Name: "Mailbox Copy", Delimiter: "."}

		memBackend := mem.New()
		memBackend.GenerateFakeEmails(info, total, 100, 100000)

		_, err := memBackend.SelectMailbox(info)
		assert.NoError(t, err)

		progress := &testProgress{}
		entries, err := CopyMessages(context.Background(), memBackend, backend, info, progress, nil)
		assert.NoError(t, err)

		assert.Equal(t, total, progress.count)
		assert.Equal(t, int(total), len(entries))

		// Verify the mailbox shows the right number of messages
		status, err := backend.SelectMailbox(info)
		require.NoError(t, err)

		assert.Equal(t, info.Name, status.Name)
		assert.Equal(t, total, status.Messages)

		// record the operation the way the copy command does
		err = backend.AddToHistory(info, mailbox.HistoryAction{
			SourceAccountTag: memBackend.AccountID(),
			Date:             time.Now(),
			Action:           mailbox.ActionCopy,
			UidValidity:      status.UidValidity,
			Entries:          entries,
		})
		assert.NoError(t, err)

		history, err := backend.GetHistory(info)
		require.NoError(t, err)
		require.Len(t, history.Actions, 1)
		assert.Len(t, history.Actions[0].Entries, int(total))

		err = backend.UnselectMailbox()
		assert.NoError(t, err)
		err = backend.DeleteMailbox(info)
		assert.NoError(t, err)
	})
}

type testProgress struct {
	count uint32
}

func (p *testProgress) Increment() {
	p.count++
}
