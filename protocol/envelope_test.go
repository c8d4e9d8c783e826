package protocol

import (
	"testing"

	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	body := `* 1 FETCH (ENVELOPE ("Wed, 11 May 2016 14:31:59 +0000" "A little message, just for you" ((NIL NIL "contact" "example.org")) ((NIL NIL "contact" "example.org")) ((NIL NIL "contact" "example.org")) ((NIL NIL "you" "example.org")) NIL NIL NIL "<0000000@localhost/>"))`
	envelopes := parseEnvelope(body)
	require.Len(t, envelopes, 1)

	envelope := envelopes[0]
	assert.Equal(t, "Wed, 11 May 2016 14:31:59 +0000", envelope.Date)
	assert.Equal(t, "A little message, just for you", envelope.Subject)
	assert.Equal(t, []mailbox.Address{{Mailbox: "contact", Host: "example.org"}}, envelope.From)
	assert.Equal(t, []mailbox.Address{{Mailbox: "contact", Host: "example.org"}}, envelope.Sender)
	assert.Equal(t, []mailbox.Address{{Mailbox: "contact", Host: "example.org"}}, envelope.ReplyTo)
	assert.Equal(t, []mailbox.Address{{Mailbox: "you", Host: "example.org"}}, envelope.To)
	assert.Nil(t, envelope.Cc)
	assert.Nil(t, envelope.Bcc)
	assert.Equal(t, "", envelope.InReplyTo)
	assert.Equal(t, "<0000000@localhost/>", envelope.MessageID)
}

func TestParseEnvelopeWithDisplayNames(t *testing.T) {
	body := `* 2 FETCH (ENVELOPE ("Mon, 2 Jan 2017 10:00:00 +0100" "Re: status" (("John Doe" NIL "john" "example.org")("Jane" NIL "jane" "example.org")) (("John Doe" NIL "john" "example.org")) NIL ((NIL NIL "team" "example.org")) NIL NIL "<parent@example.org>" "<child@example.org>"))`
	envelopes := parseEnvelope(body)
	require.Len(t, envelopes, 1)

	envelope := envelopes[0]
	assert.Equal(t, []mailbox.Address{
		{Name: "John Doe", Mailbox: "john", Host: "example.org"},
		{Name: "Jane", Mailbox: "jane", Host: "example.org"},
	}, envelope.From)
	assert.Nil(t, envelope.ReplyTo)
	assert.Equal(t, "<parent@example.org>", envelope.InReplyTo)
	assert.Equal(t, "<child@example.org>", envelope.MessageID)
}

// a NIL in an address tuple decodes to an empty value, never to the text "NIL"
func TestNilNeverDecodesToText(t *testing.T) {
	body := `* 1 FETCH (ENVELOPE (NIL NIL ((NIL NIL "contact" "example.org")) NIL NIL NIL NIL NIL NIL NIL))`
	envelopes := parseEnvelope(body)
	require.Len(t, envelopes, 1)

	envelope := envelopes[0]
	assert.Equal(t, "", envelope.Date)
	assert.Equal(t, "", envelope.Subject)
	require.Len(t, envelope.From, 1)
	assert.Equal(t, "", envelope.From[0].Name)
	assert.Equal(t, "", envelope.From[0].SourceRoute)
	assert.NotEqual(t, "NIL", envelope.From[0].Name)
}

func TestParseEnvelopeEscapedQuote(t *testing.T) {
	body := `* 1 FETCH (ENVELOPE ("date" "a\"b" NIL NIL NIL NIL NIL NIL NIL "<id>"))`
	envelopes := parseEnvelope(body)
	require.Len(t, envelopes, 1)
	assert.Equal(t, `a"b`, envelopes[0].Subject)
}

func TestParseEnvelopeSubjectWithParentheses(t *testing.T) {
	body := `* 1 FETCH (ENVELOPE ("date" "not (a nested) group" NIL NIL NIL NIL NIL NIL NIL "<id>"))`
	envelopes := parseEnvelope(body)
	require.Len(t, envelopes, 1)
	assert.Equal(t, "not (a nested) group", envelopes[0].Subject)
}

// the parser always returns a sequence, one element per envelope line
func TestParseEnvelopeMultipleLines(t *testing.T) {
	body := `* 1 FETCH (ENVELOPE ("d1" "first" NIL NIL NIL NIL NIL NIL NIL "<1>"))` + "\n" +
		`* 2 FETCH (ENVELOPE ("d2" "second" NIL NIL NIL NIL NIL NIL NIL "<2>"))`
	envelopes := parseEnvelope(body)
	require.Len(t, envelopes, 2)
	assert.Equal(t, "first", envelopes[0].Subject)
	assert.Equal(t, "second", envelopes[1].Subject)
}

func TestParseEnvelopeSkipsMalformedLines(t *testing.T) {
	body := `* 1 FETCH (ENVELOPE ("only" "three" "fields"))` + "\n" +
		`* 2 FETCH (ENVELOPE ("d2" "kept" NIL NIL NIL NIL NIL NIL NIL "<2>"))`
	envelopes := parseEnvelope(body)
	require.Len(t, envelopes, 1)
	assert.Equal(t, "kept", envelopes[0].Subject)
}

func TestSplitFields(t *testing.T) {
	testCases := []struct {
		input    string
		expected []string
	}{
		{`"a" "b"`, []string{`"a"`, `"b"`}},
		{`"a b" c`, []string{`"a b"`, "c"}},
		{`(a b) c`, []string{"(a b)", "c"}},
		{`((a b) (c d)) e`, []string{"((a b) (c d))", "e"}},
		{`"a\"b" c`, []string{`"a\"b"`, "c"}},
		{`"(not nested)" x`, []string{`"(not nested)"`, "x"}},
		{`NIL NIL "x"`, []string{"NIL", "NIL", `"x"`}},
		{`  spaced   out  `, []string{"spaced", "out"}},
		{``, []string{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			assert.Equal(t, testCase.expected, splitFields(testCase.input))
		})
	}
}

func TestSplitGroupsWithoutSpaces(t *testing.T) {
	groups := splitGroups(`(NIL NIL "a" "h")(NIL NIL "b" "h")`)
	assert.Equal(t, []string{`(NIL NIL "a" "h")`, `(NIL NIL "b" "h")`}, groups)
}

func TestDecodeString(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`NIL`, ""},
		{`atom`, "atom"},
		{`"a\"b"`, `a"b`},
		{`"back\\slash"`, `back\slash`},
		{`""`, ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			assert.Equal(t, testCase.expected, decodeString(testCase.input))
		})
	}
}
