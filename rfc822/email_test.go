package rfc822

import (
	"strings"
	"testing"
	"time"

	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleMessage(t *testing.T) {
	message := "From: John Doe <contact@example.org>\r\n" +
		"To: you@example.org\r\n" +
		"Subject: A little message, just for you\r\n" +
		"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
		"Message-ID: <0000000@localhost/>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Hi there :)"

	email, err := Parse(strings.NewReader(message))
	require.NoError(t, err)

	assert.Equal(t, "A little message, just for you", email.Subject)
	assert.True(t, email.Date.Equal(time.Date(2016, 5, 11, 14, 31, 59, 0, time.UTC)))
	assert.Equal(t, []mailbox.Address{{Name: "John Doe", Mailbox: "contact", Host: "example.org"}}, email.From)
	assert.Equal(t, []mailbox.Address{{Mailbox: "you", Host: "example.org"}}, email.To)
	assert.Equal(t, "Hi there :)", email.Text)
	assert.Empty(t, email.HTML)
	assert.Empty(t, email.Attachments)
}

func TestParseMultipartAlternative(t *testing.T) {
	message := "From: contact@example.org\r\n" +
		"To: contact@example.org\r\n" +
		"Subject: multipart\r\n" +
		"Content-Type: multipart/alternative; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain text version\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><body>html version</body></html>\r\n" +
		"--frontier--\r\n"

	email, err := Parse(strings.NewReader(message))
	require.NoError(t, err)

	assert.Equal(t, "multipart", email.Subject)
	assert.Contains(t, email.Text, "plain text version")
	assert.Contains(t, email.HTML, "html version")
}

func TestParseQuotedPrintableBody(t *testing.T) {
	message := "From: contact@example.org\r\n" +
		"Subject: encoded\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"votre confirmation d=27inscription"

	email, err := Parse(strings.NewReader(message))
	require.NoError(t, err)

	assert.Equal(t, "votre confirmation d'inscription", email.Text)
}

func TestParseAttachment(t *testing.T) {
	message := "From: contact@example.org\r\n" +
		"Subject: with attachment\r\n" +
		"Content-Type: multipart/mixed; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"see attachment\r\n" +
		"--frontier\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=report.txt\r\n" +
		"\r\n" +
		"data\r\n" +
		"--frontier--\r\n"

	email, err := Parse(strings.NewReader(message))
	require.NoError(t, err)

	assert.Contains(t, email.Text, "see attachment")
	assert.Equal(t, []string{"report.txt"}, email.Attachments)
}

func TestParseGarbageFails(t *testing.T) {
	_, err := Parse(strings.NewReader("* 1 FETCH (BODY[] {12}"))
	assert.Error(t, err)
}
