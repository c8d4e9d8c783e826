package mailbox

import (
	"io"
	"time"
)

// MessageProperties travel with the message body through a copy: the
// metadata the destination needs to save the message the way it was on
// the source.
type MessageProperties struct {
	// The message flags.
	Flags []string
	// The date the message was received by the server.
	InternalDate time.Time
	// The message size.
	Size uint32
	// The message Hash (if available)
	Hash []byte
}

// Message is one message moving between backends.
type Message struct {
	MessageProperties
	// The message unique identifier.
	Uid MessageID
	// The message body.
	Body io.ReadCloser
}
