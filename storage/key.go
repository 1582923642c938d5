package storage

import (
	"fmt"
	"strings"
)

// Key identifies one stored SIRI object. Codespace is the dataset the
// object belongs to, Line is an optional grouping hint used for
// line-scoped filtering, ID is the object identity within the dataset.
type Key struct {
	Codespace string
	Line      string
	ID        string
}

// NewKey builds a key without a line grouping hint.
func NewKey(codespace, id string) Key {
	return Key{Codespace: codespace, ID: id}
}

// NewLineKey builds a key carrying a line grouping hint.
func NewLineKey(codespace, line, id string) Key {
	return Key{Codespace: codespace, Line: line, ID: id}
}

func (k Key) String() string {
	if k.Line == "" {
		return fmt.Sprintf("%s:%s", k.Codespace, k.ID)
	}
	return fmt.Sprintf("%s:%s:%s", k.Codespace, k.Line, k.ID)
}

// Predicate selects keys.
type Predicate func(Key) bool

// ByCodespace matches keys belonging to the given dataset. An empty
// codespace matches everything.
func ByCodespace(codespace string) Predicate {
	return func(k Key) bool {
		return codespace == "" || k.Codespace == codespace
	}
}

// ByLine matches keys whose line hint equals the given line reference.
func ByLine(line string) Predicate {
	return func(k Key) bool {
		return k.Line == line
	}
}

// Any matches every key.
func Any(Key) bool { return true }

// keySeparator cannot occur in SIRI references, so encoded keys stay
// unambiguous.
const keySeparator = "\x1f"

// KeyCodec encodes Keys for byte-oriented backends.
type KeyCodec struct{}

func (KeyCodec) Encode(k Key) []byte {
	return []byte(k.Codespace + keySeparator + k.Line + keySeparator + k.ID)
}

func (KeyCodec) Decode(b []byte) (Key, error) {
	parts := strings.SplitN(string(b), keySeparator, 3)
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("malformed storage key %q", string(b))
	}
	return Key{Codespace: parts[0], Line: parts[1], ID: parts[2]}, nil
}

// StringCodec encodes plain string keys, used by the bookkeeping maps.
type StringCodec struct{}

func (StringCodec) Encode(k string) []byte          { return []byte(k) }
func (StringCodec) Decode(b []byte) (string, error) { return string(b), nil }
