package mdir

import (
	"github.com/creativeprojects/imapfetch/mailbox"
	"github.com/emersion/go-maildir"
)

func toFlags(source []string) []maildir.Flag {
	flags := make([]maildir.Flag, 0, len(source))
	for _, sourceFlag := range source {
		switch sourceFlag {
		case mailbox.FlagSeen:
			flags = append(flags, maildir.FlagSeen)

		case mailbox.FlagAnswered:
			flags = append(flags, maildir.FlagReplied)

		case mailbox.FlagFlagged:
			flags = append(flags, maildir.FlagFlagged)

		case mailbox.FlagDeleted:
			flags = append(flags, maildir.FlagTrashed)

		case mailbox.FlagDraft:
			flags = append(flags, maildir.FlagDraft)
		}
	}
	return flags
}

func flagsToStrings(source []maildir.Flag) []string {
	flags := make([]string, 0, len(source))
	for _, sourceFlag := range source {
		switch sourceFlag {
		case maildir.FlagSeen:
			flags = append(flags, mailbox.FlagSeen)

		case maildir.FlagReplied:
			flags = append(flags, mailbox.FlagAnswered)

		case maildir.FlagFlagged:
			flags = append(flags, mailbox.FlagFlagged)

		case maildir.FlagTrashed:
			flags = append(flags, mailbox.FlagDeleted)

		case maildir.FlagDraft:
			flags = append(flags, mailbox.FlagDraft)
		}
	}
	return flags
}
