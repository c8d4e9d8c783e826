package rfc822

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Email is a parsed message: the header fields of interest and the
// decoded text and html bodies.
type Email struct {
	Subject     string
	Date        time.Time
	From        []mailbox.Address
	To          []mailbox.Address
	Cc          []mailbox.Address
	Text        string
	HTML        string
	Attachments []string
}

// Parse reads a full message, header included. Messages with an unknown
// charset are decoded on a best effort basis instead of failing.
func Parse(r io.Reader) (*Email, error) {
	reader, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("cannot read message: %w", err)
	}
	email := &Email{}
	email.Subject, _ = reader.Header.Subject()
	email.Date, _ = reader.Header.Date()
	email.From = addressList(reader.Header, "From")
	email.To = addressList(reader.Header, "To")
	email.Cc = addressList(reader.Header, "Cc")

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("cannot read message part: %w", err)
		}
		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, _ := header.ContentType()
			content, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("cannot read message body: %w", err)
			}
			if mediaType == "text/html" {
				email.HTML += string(content)
			} else if mediaType == "" || strings.HasPrefix(mediaType, "text/") {
				email.Text += string(content)
			}
		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			email.Attachments = append(email.Attachments, filename)
		}
	}
	return email, nil
}

func addressList(header mail.Header, key string) []mailbox.Address {
	list, err := header.AddressList(key)
	if err != nil || len(list) == 0 {
		return nil
	}
	addresses := make([]mailbox.Address, 0, len(list))
	for _, address := range list {
		user, host := splitAddress(address.Address)
		addresses = append(addresses, mailbox.Address{
			Name:    address.Name,
			Mailbox: user,
			Host:    host,
		})
	}
	return addresses
}

// splitAddress cuts user@host at the last @.
func splitAddress(address string) (string, string) {
	index := strings.LastIndexByte(address, '@')
	if index < 0 {
		return address, ""
	}
	return address[:index], address[index+1:]
}
