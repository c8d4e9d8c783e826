package store

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

func SerializeInt(value int) ([]byte, error) {
	buffer := &bytes.Buffer{}
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(value)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func DeserializeInt(data []byte) (int, error) {
	var value int
	decoder := gob.NewDecoder(bytes.NewReader(data))
	err := decoder.Decode(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func SerializeObject[T any](object *T) ([]byte, error) {
	if object == nil {
		return nil, errors.New("cannot serialize nil object")
	}
	buffer := &bytes.Buffer{}
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(object)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func DeserializeObject[T any](data []byte) (*T, error) {
	object := new(T)
	decoder := gob.NewDecoder(bytes.NewReader(data))
	err := decoder.Decode(object)
	if err != nil {
		return nil, err
	}
	return object, nil
}

// SerializeUID encodes a message ID into a key. The fixed width keeps the
// keys in message order inside the bucket.
func SerializeUID(prefix string, uid uint64) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefix, uid))
}

func DeserializeUID(prefix string, key []byte) uint64 {
	uid, err := strconv.ParseUint(strings.TrimPrefix(string(key), prefix), 10, 64)
	if err != nil {
		return 0
	}
	return uid
}
