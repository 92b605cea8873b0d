package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cached query: a resource name followed by parameters.
// Keys compare structurally through their canonical JSON encoding, so
// ("schedules", map{"today": true}) built twice addresses the same slot.
type Key []any

// NewKey builds a Key from a resource name and optional parameters.
// Parameters must be JSON-encodable scalars, slices, maps or structs.
func NewKey(resource string, params ...any) Key {
	k := make(Key, 0, len(params)+1)
	k = append(k, resource)
	return append(k, params...)
}

// Resource returns the leading segment as a string, or "" for an empty key.
func (k Key) Resource() string {
	if len(k) == 0 {
		return ""
	}
	s, _ := k[0].(string)
	return s
}

// Hash returns the canonical encoding used as the cache slot identity.
// Map parameters encode with sorted field names.
func (k Key) Hash() string {
	segs := k.segments()
	return "[" + strings.Join(segs, ",") + "]"
}

// Equal reports whether k and other address the same cache slot.
func (k Key) Equal(other Key) bool {
	return k.Hash() == other.Hash()
}

// HasPrefix reports whether prefix matches the leading segments of k.
// A single-segment prefix matches every key under that resource.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	mine := k.segments()
	for i, seg := range prefix.segments() {
		if mine[i] != seg {
			return false
		}
	}
	return true
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	return k.Hash()
}

// segments encodes each segment independently so prefix checks can compare
// them one by one.
func (k Key) segments() []string {
	segs := make([]string, len(k))
	for i, v := range k {
		b, err := json.Marshal(v)
		if err != nil {
			// Unencodable parameters still need a stable identity.
			b = []byte(fmt.Sprintf("%q", fmt.Sprintf("%#v", v)))
		}
		segs[i] = string(b)
	}
	return segs
}
