package mailbox

// Address is a single mail address from an envelope.
type Address struct {
	// Personal name.
	Name string
	// SMTP at-domain-list (source route), rarely used.
	SourceRoute string
	// Mailbox name (the part before the @).
	Mailbox string
	// Host name (the part after the @).
	Host string
}

// String returns the address in the usual "name <mailbox@host>" form.
func (a Address) String() string {
	addr := a.Mailbox + "@" + a.Host
	if a.Name == "" {
		return addr
	}
	return a.Name + " <" + addr + ">"
}

// Envelope is the message envelope as reported by the server.
type Envelope struct {
	// The message date, verbatim from the header.
	Date string
	// The message subject.
	Subject string
	// The From header addresses.
	From []Address
	// The Sender header addresses.
	Sender []Address
	// The Reply-To header addresses.
	ReplyTo []Address
	// The To header addresses.
	To []Address
	// The Cc header addresses.
	Cc []Address
	// The Bcc header addresses.
	Bcc []Address
	// The In-Reply-To header.
	InReplyTo string
	// The Message-ID header.
	MessageID string
}
