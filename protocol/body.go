package protocol

import (
	"strconv"
	"strings"
)

// repairText undoes the quoted-printable artifacts commonly left in
// message text fetched as plain lines: soft line breaks and a few escaped
// characters. The =3D escape is resolved last so it cannot produce new
// escape sequences.
func repairText(text string) string {
	text = strings.ReplaceAll(text, "=\r\n", "")
	text = strings.ReplaceAll(text, "=\n", "")
	text = strings.ReplaceAll(text, "=22", "\"")
	text = strings.ReplaceAll(text, "=09", "\t")
	text = strings.ReplaceAll(text, "=3D", "=")
	return text
}

// literalSize reads the {n} byte count ending an IMAP line, -1 when the
// line carries no literal marker.
func literalSize(line string) int {
	line = strings.TrimRight(line, " ")
	if !strings.HasSuffix(line, "}") {
		return -1
	}
	open := strings.LastIndexByte(line, '{')
	if open < 0 {
		return -1
	}
	size, err := strconv.Atoi(line[open+1 : len(line)-1])
	if err != nil || size < 0 {
		return -1
	}
	return size
}

// reconstructLiteral rebuilds the exact octets of a literal from a FETCH
// reply: the wrapper line ends with the {n} byte count, the lines after it
// are the content split on CRLF. Joining them back and cutting at n bytes
// recovers the identical content, leaving out the closing parenthesis of
// the FETCH response.
func reconstructLiteral(body string) (string, bool) {
	lines := strings.Split(body, "\n")
	if len(lines) < 2 {
		return "", false
	}
	size := literalSize(lines[0])
	if size < 0 {
		return "", false
	}
	content := strings.Join(lines[1:], "\r\n")
	if len(content) < size {
		return "", false
	}
	return content[:size], true
}

// stripFetchWrapper removes the "* n FETCH (…" line and the closing
// parenthesis line around the returned payload.
func stripFetchWrapper(body string) string {
	lines := strings.Split(body, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "* ") && strings.Contains(lines[0], "FETCH") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == ")" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// extractHTML returns the html document found behind a literal marker in
// the payload, when there is one. Anything after the closing html tag,
// like the stray parenthesis closing the FETCH response, is dropped.
func extractHTML(text string) (string, bool) {
	htmlStart := strings.Index(text, "<html")
	if htmlStart < 0 {
		return "", false
	}
	markerEnd := strings.LastIndex(text[:htmlStart], "}")
	if markerEnd < 0 {
		return "", false
	}
	markerStart := strings.LastIndexByte(text[:markerEnd], '{')
	if markerStart < 0 {
		return "", false
	}
	if _, err := strconv.Atoi(text[markerStart+1 : markerEnd]); err != nil {
		return "", false
	}
	payload := text[htmlStart:]
	if end := strings.LastIndex(payload, "</html>"); end >= 0 {
		payload = payload[:end+len("</html>")]
	} else {
		payload = strings.TrimSuffix(strings.TrimSpace(payload), ")")
	}
	return strings.TrimSpace(payload), true
}
