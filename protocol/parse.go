package protocol

import (
	"strconv"
	"strings"
	"time"

	"github.com/creativeprojects/imapfetch/mailbox"
)

// internalDateFormat is the date-time format of the INTERNALDATE item.
// Single digit days are space padded by the server, trim before parsing.
const internalDateFormat = "2-Jan-2006 15:04:05 -0700"

// ListEntry is one mailbox from a LIST reply.
type ListEntry struct {
	// The mailbox flags (attributes).
	Flags []string
	// The server's path separator.
	Delimiter string
	// The mailbox name.
	Name string
}

// parseList decodes the untagged lines of a LIST reply. Lines not matching
// the expected shape are skipped. Mailbox names can be quoted strings or
// bare atoms, the delimiter a quoted string or NIL.
func parseList(body string) []ListEntry {
	var entries []ListEntry
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "* LIST ") {
			continue
		}
		rest := strings.TrimLeft(line[len("* LIST "):], " ")
		if !strings.HasPrefix(rest, "(") {
			continue
		}
		closing := strings.IndexByte(rest, ')')
		if closing < 0 {
			continue
		}
		entry := ListEntry{}
		flags := strings.TrimSpace(rest[1:closing])
		if flags != "" {
			entry.Flags = strings.Split(flags, " ")
		}
		delimiter, rest, ok := readToken(rest[closing+1:])
		if !ok {
			continue
		}
		name, _, ok := readToken(rest)
		if !ok || name == "" {
			continue
		}
		entry.Delimiter = delimiter
		entry.Name = name
		entries = append(entries, entry)
	}
	return entries
}

// readToken reads the next space delimited token: a quoted string with
// escapes honoured, or a bare atom. NIL decodes to the empty string.
func readToken(input string) (string, string, bool) {
	input = strings.TrimLeft(input, " ")
	if input == "" {
		return "", "", false
	}
	if input[0] == '"' {
		value := strings.Builder{}
		escaped := false
		for i := 1; i < len(input); i++ {
			ch := input[i]
			if escaped {
				value.WriteByte(ch)
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				return value.String(), input[i+1:], true
			default:
				value.WriteByte(ch)
			}
		}
		// unterminated quoted string
		return "", "", false
	}
	end := strings.IndexByte(input, ' ')
	if end < 0 {
		end = len(input)
	}
	token := input[:end]
	if token == "NIL" {
		return "", input[end:], true
	}
	return token, input[end:], true
}

// parseSelect folds the untagged lines of a SELECT reply into a mailbox
// status. Each keyword sets exactly one field, later lines overwrite
// earlier ones, unrecognized lines are ignored.
func parseSelect(body string) *mailbox.Status {
	status := &mailbox.Status{}
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "* ") {
			continue
		}
		fields := strings.Fields(line)
		for i, field := range fields {
			switch strings.Trim(field, "[]") {
			case "EXISTS":
				if value, ok := numberAt(fields, i-1); ok {
					status.Messages = value
				}
			case "RECENT":
				if value, ok := numberAt(fields, i-1); ok {
					status.Recent = value
				}
			case "UNSEEN":
				if value, ok := numberAt(fields, i+1); ok {
					status.Unseen = value
				}
			case "UIDVALIDITY":
				if value, ok := numberAt(fields, i+1); ok {
					status.UidValidity = value
				}
			case "UIDNEXT":
				if value, ok := numberAt(fields, i+1); ok {
					status.UidNext = value
				}
			case "FLAGS":
				if flags := flagList(line); flags != nil {
					status.Flags = flags
				}
			case "PERMANENTFLAGS":
				if flags := flagList(line); flags != nil {
					status.PermanentFlags = flags
				}
			}
		}
	}
	return status
}

// numberAt parses the field at the given position, response code brackets
// stripped, as an unsigned number.
func numberAt(fields []string, index int) (uint32, bool) {
	if index < 0 || index >= len(fields) {
		return 0, false
	}
	value, err := strconv.ParseUint(strings.Trim(fields[index], "[]"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(value), true
}

// flagList extracts the first parenthesized flag list of the line.
func flagList(line string) []string {
	open := strings.IndexByte(line, '(')
	end := strings.IndexByte(line, ')')
	if open < 0 || end < open {
		return nil
	}
	inner := strings.TrimSpace(line[open+1 : end])
	if inner == "" {
		return []string{}
	}
	return strings.Split(inner, " ")
}

// parseSearch decodes the id list of a SEARCH reply. Non numeric tokens
// are filtered out. A reply with no match yields an empty list.
func parseSearch(body string) []uint32 {
	ids := make([]uint32, 0)
	for _, line := range strings.Split(body, "\n") {
		if line != "* SEARCH" && !strings.HasPrefix(line, "* SEARCH ") {
			continue
		}
		for _, token := range strings.Fields(line)[2:] {
			id, err := strconv.ParseUint(token, 10, 32)
			if err != nil {
				continue
			}
			ids = append(ids, uint32(id))
		}
	}
	return ids
}

// parseFetchProperties decodes the FLAGS, INTERNALDATE and RFC822.SIZE
// items of a FETCH reply.
func parseFetchProperties(body string) mailbox.MessageProperties {
	props := mailbox.MessageProperties{}
	for _, line := range strings.Split(body, "\n") {
		index := strings.Index(line, " FETCH ")
		if index < 0 || !strings.HasPrefix(line, "* ") {
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
		for i := 0; i+1 < len(fields); i += 2 {
			switch fields[i] {
			case "FLAGS":
				props.Flags = parseFlags(fields[i+1])
			case "INTERNALDATE":
				date, err := time.Parse(internalDateFormat, strings.TrimSpace(decodeString(fields[i+1])))
				if err == nil {
					props.InternalDate = date
				}
			case "RFC822.SIZE":
				if size, ok := numberAt(fields, i+1); ok {
					props.Size = size
				}
			}
		}
	}
	return props
}

// parseFlags decodes a parenthesized flag list field.
func parseFlags(field string) []string {
	field = strings.TrimSpace(field)
	if len(field) < 2 || field[0] != '(' || field[len(field)-1] != ')' {
		return nil
	}
	inner := strings.TrimSpace(field[1 : len(field)-1])
	if inner == "" {
		return nil
	}
	return strings.Split(inner, " ")
}
