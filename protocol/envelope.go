package protocol

import (
	"strings"

	"github.com/creativeprojects/imapfetch/mailbox"
)

const envelopeKeyword = " ENVELOPE "

// parseEnvelope decodes every ENVELOPE bearing line of a FETCH reply into
// its ten positional fields: date, subject, six address lists, in-reply-to
// and message-id. NIL decodes to an empty value at every nesting level.
// Lines without the full ten fields are skipped.
func parseEnvelope(body string) []mailbox.Envelope {
	var envelopes []mailbox.Envelope
	for _, line := range strings.Split(body, "\n") {
		index := strings.Index(line, envelopeKeyword)
		if index < 0 {
			continue
		}
		start := strings.IndexByte(line[index:], '(')
		if start < 0 {
			continue
		}
		group, ok := balancedGroup(line, index+start)
		if !ok {
			continue
		}
		fields := splitFields(group)
		if len(fields) < 10 {
			continue
		}
		envelopes = append(envelopes, mailbox.Envelope{
			Date:      decodeString(fields[0]),
			Subject:   decodeString(fields[1]),
			From:      parseAddressList(fields[2]),
			Sender:    parseAddressList(fields[3]),
			ReplyTo:   parseAddressList(fields[4]),
			To:        parseAddressList(fields[5]),
			Cc:        parseAddressList(fields[6]),
			Bcc:       parseAddressList(fields[7]),
			InReplyTo: decodeString(fields[8]),
			MessageID: decodeString(fields[9]),
		})
	}
	return envelopes
}

// parseAddressList decodes an address list field: NIL, or a parenthesized
// list of (name source-route mailbox host) groups.
func parseAddressList(field string) []mailbox.Address {
	if len(field) < 2 || field[0] != '(' || field[len(field)-1] != ')' {
		return nil
	}
	var addresses []mailbox.Address
	for _, group := range splitGroups(field[1 : len(field)-1]) {
		parts := splitFields(group[1 : len(group)-1])
		if len(parts) < 4 {
			continue
		}
		addresses = append(addresses, mailbox.Address{
			Name:        decodeString(parts[0]),
			SourceRoute: decodeString(parts[1]),
			Mailbox:     decodeString(parts[2]),
			Host:        decodeString(parts[3]),
		})
	}
	return addresses
}

// splitFields cuts a parenthesized list body into its top level fields.
// The scanner tracks quoting state and nesting depth: spaces inside quoted
// strings or nested groups do not end a field, an escaped quote does not
// terminate the quote, and parentheses are retained in the field.
func splitFields(input string) []string {
	fields := make([]string, 0, 10)
	token := strings.Builder{}
	inQuotes := false
	escaped := false
	depth := 0
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inQuotes {
			token.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inQuotes = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuotes = true
			token.WriteByte(ch)
		case '(':
			depth++
			token.WriteByte(ch)
		case ')':
			depth--
			token.WriteByte(ch)
		case ' ':
			if depth > 0 {
				token.WriteByte(ch)
			} else if token.Len() > 0 {
				fields = append(fields, token.String())
				token.Reset()
			}
		default:
			token.WriteByte(ch)
		}
	}
	if token.Len() > 0 {
		fields = append(fields, token.String())
	}
	return fields
}

// splitGroups cuts the input into its top level parenthesized groups,
// with or without separating spaces.
func splitGroups(input string) []string {
	var groups []string
	depth := 0
	inQuotes := false
	escaped := false
	start := -1
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inQuotes {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inQuotes = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuotes = true
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start >= 0 {
				groups = append(groups, input[start:i+1])
				start = -1
			}
		}
	}
	return groups
}

// balancedGroup returns the content of the balanced parenthesized group
// starting at input[start], which must be an opening parenthesis.
func balancedGroup(input string, start int) (string, bool) {
	depth := 0
	inQuotes := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inQuotes {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inQuotes = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuotes = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return input[start+1 : i], true
			}
		}
	}
	return "", false
}

// decodeString removes the quotes around a quoted field and resolves the
// escape sequences. The NIL sentinel decodes to the empty string.
func decodeString(field string) string {
	if field == "NIL" {
		return ""
	}
	if len(field) < 2 || field[0] != '"' || field[len(field)-1] != '"' {
		return field
	}
	inner := field[1 : len(field)-1]
	if !strings.Contains(inner, "\\") {
		return inner
	}
	value := strings.Builder{}
	escaped := false
	for i := 0; i < len(inner); i++ {
		ch := inner[i]
		if escaped {
			value.WriteByte(ch)
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		value.WriteByte(ch)
	}
	return value.String()
}
