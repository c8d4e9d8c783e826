package protocol

import "bytes"

var crlf = []byte("\r\n")

// lineFramer splits the incoming byte stream into CRLF delimited lines,
// keeping a trailing partial line until the rest of it arrives.
type lineFramer struct {
	tail []byte
}

// feed appends the chunk to the buffered tail and returns the complete
// lines in arrival order, stripped of their line ending. A chunk with no
// delimiter returns no lines and only grows the tail.
func (f *lineFramer) feed(chunk []byte) []string {
	f.tail = append(f.tail, chunk...)
	var lines []string
	for {
		index := bytes.Index(f.tail, crlf)
		if index < 0 {
			break
		}
		lines = append(lines, string(f.tail[:index]))
		f.tail = f.tail[index+len(crlf):]
	}
	if len(f.tail) == 0 {
		f.tail = nil
	}
	return lines
}
