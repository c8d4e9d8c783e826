package mailbox

// Standard message flags, as defined in RFC 3501 section 2.3.2.
const (
	FlagSeen     = "\\Seen"
	FlagAnswered = "\\Answered"
	FlagFlagged  = "\\Flagged"
	FlagDeleted  = "\\Deleted"
	FlagDraft    = "\\Draft"
	FlagRecent   = "\\Recent"
)

// StripRecentFlag removes the Recent flag from the list:
// this flag is managed by the server and cannot be set on a new message
func StripRecentFlag(source []string) []string {
	output := make([]string, 0, len(source))
	for _, flag := range source {
		if flag == FlagRecent {
			continue
		}
		output = append(output, flag)
	}
	return output
}
