package mailbox

import (
	"encoding/json"
	"fmt"
	"strconv"
)

var (
	EmptyMessageID MessageID
)

// MessageID identifies a message inside its backend: IMAP and bolt
// backends use a uint32 UID, maildir uses a filename key.
type MessageID struct {
	uid uint32
	key string
}

func NewMessageIDFromUint(uid uint32) MessageID {
	return MessageID{
		uid: uid,
	}
}

func NewMessageIDFromString(key string) MessageID {
	return MessageID{
		key: key,
	}
}

func (i MessageID) IsZero() bool {
	return i.uid == 0 && i.key == ""
}

func (i MessageID) IsUint() bool {
	return i.uid > 0
}

func (i MessageID) IsString() bool {
	return i.key != ""
}

func (i MessageID) AsUint() uint32 {
	return i.uid
}

func (i MessageID) AsString() string {
	return i.key
}

func (i MessageID) String() string {
	if i.IsUint() {
		return strconv.FormatUint(uint64(i.uid), 10)
	}
	return i.key
}

// MarshalBinary encodes the message ID with a one character prefix
// keeping the uint and string variants apart.
func (i MessageID) MarshalBinary() ([]byte, error) {
	if i.IsUint() {
		return []byte("u" + strconv.FormatUint(uint64(i.uid), 10)), nil
	}
	return []byte("s" + i.key), nil
}

func (i *MessageID) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		*i = MessageID{}
		return nil
	}
	switch data[0] {
	case 'u':
		uid, err := strconv.ParseUint(string(data[1:]), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid message ID %q: %w", string(data), err)
		}
		*i = MessageID{uid: uint32(uid)}

	case 's':
		*i = MessageID{key: string(data[1:])}

	default:
		return fmt.Errorf("invalid message ID %q", string(data))
	}
	return nil
}

type messageIDJSON struct {
	Uid uint32 `json:"uid,omitempty"`
	Key string `json:"key,omitempty"`
}

func (i MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageIDJSON{Uid: i.uid, Key: i.key})
}

func (i *MessageID) UnmarshalJSON(data []byte) error {
	var id messageIDJSON
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*i = MessageID{uid: id.Uid, key: id.Key}
	return nil
}
