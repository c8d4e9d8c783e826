package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairText(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"soft=\r\nbreak", "softbreak"},
		{"soft=\nbreak", "softbreak"},
		{"a =3D b", "a = b"},
		{"style=3D=22color=22", `style="color"`},
		{"col1=09col2", "col1\tcol2"},
		// the = produced by =3D does not combine with the text after it
		{"a=3D22", "a=22"},
		{"untouched text", "untouched text"},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, repairText(testCase.input))
	}
}

func TestLiteralSize(t *testing.T) {
	testCases := []struct {
		line     string
		expected int
	}{
		{"* 1 FETCH (BODY[] {167}", 167},
		{"* 1 FETCH (BODY[] {0}", 0},
		{"* 1 FETCH (BODY[] {167} ", 167},
		{"* 1 FETCH (BODY[] NIL)", -1},
		{"* 1 FETCH (BODY[] {xyz}", -1},
		{"{12", -1},
		{"", -1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.line, func(t *testing.T) {
			assert.Equal(t, testCase.expected, literalSize(testCase.line))
		})
	}
}

func TestReconstructLiteral(t *testing.T) {
	// the content is 16 bytes: the server's closing parenthesis glued to
	// the last line falls off the cut
	body := "* 1 FETCH (BODY[] {16}\nline one\nline 2)"
	content, ok := reconstructLiteral(body)
	assert.True(t, ok)
	assert.Equal(t, "line one\r\nline 2", content)
}

func TestReconstructLiteralClosingOnOwnLine(t *testing.T) {
	body := "* 1 FETCH (BODY[] {16}\nline one\nline 2\n)"
	content, ok := reconstructLiteral(body)
	assert.True(t, ok)
	assert.Equal(t, "line one\r\nline 2", content)
}

func TestReconstructLiteralTruncatedContent(t *testing.T) {
	body := "* 1 FETCH (BODY[] {500}\nnot enough data)"
	_, ok := reconstructLiteral(body)
	assert.False(t, ok)
}

func TestReconstructLiteralWithoutMarker(t *testing.T) {
	body := "* 1 FETCH (BODY[] \"inline\")"
	_, ok := reconstructLiteral(body)
	assert.False(t, ok)
}

func TestStripFetchWrapper(t *testing.T) {
	body := "* 1 FETCH (BODY[] {24}\nSubject: hello\n\nworld\n)"
	assert.Equal(t, "Subject: hello\n\nworld", stripFetchWrapper(body))
}

func TestStripFetchWrapperPlainText(t *testing.T) {
	body := "Subject: hello\n\nworld"
	assert.Equal(t, "Subject: hello\n\nworld", stripFetchWrapper(body))
}

func TestExtractHTML(t *testing.T) {
	text := "Content-Type: text/html {123}\n<html><body>hello</body></html>)"
	payload, ok := extractHTML(text)
	assert.True(t, ok)
	assert.Equal(t, "<html><body>hello</body></html>", payload)
}

func TestExtractHTMLWithoutClosingTag(t *testing.T) {
	text := "{57}\n<html><body>broken document)"
	payload, ok := extractHTML(text)
	assert.True(t, ok)
	assert.Equal(t, "<html><body>broken document", payload)
}

func TestExtractHTMLRequiresLiteralMarker(t *testing.T) {
	_, ok := extractHTML("<html><body>no marker</body></html>")
	assert.False(t, ok)

	_, ok = extractHTML("plain text, no document at all")
	assert.False(t, ok)
}
