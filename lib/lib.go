package lib

import "strings"

// VerifyDelimiter translates a mailbox path from one hierarchy delimiter
// to another. A name already using the expected delimiter is returned
// unchanged; occurrences of the expected delimiter inside a path element
// are escaped before the translation.
func VerifyDelimiter(name, currentDelimiter, expectedDelimiter string) string {
	if currentDelimiter == expectedDelimiter {
		return name
	}
	name = strings.ReplaceAll(name, expectedDelimiter, "\\"+expectedDelimiter)
	// TODO: verify we're not replacing \currentDelimiter (escaped delimiter)
	name = strings.ReplaceAll(name, currentDelimiter, expectedDelimiter)
	return name
}
