package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexID is a node id that can be unmarshaled from either a JSON number or a JSON string.
type FlexID uint64

// ParseID parses a decimal node id. Zero is never a valid id.
func ParseID(s string) (FlexID, error) {
	val, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("FlexID: invalid id %q: %w", s, err)
	}
	if val == 0 {
		return 0, fmt.Errorf("FlexID: id must be greater than zero")
	}
	return FlexID(val), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		if n == 0 {
			return fmt.Errorf("FlexID: id must be greater than zero")
		}
		*f = FlexID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id, err := ParseID(s)
		if err != nil {
			return err
		}
		*f = id
		return nil
	}

	return fmt.Errorf("FlexID: unexpected type, expected number or string")
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(f))
}

// Uint64 converts FlexID back to uint64.
func (f FlexID) Uint64() uint64 {
	return uint64(f)
}

// OptionalID is a nullable parent reference in request bodies.
// Set reports whether the field was present at all, so that an explicit null
// (move to root) can be told apart from an omitted field.
type OptionalID struct {
	Set bool
	ID  *uint64
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.ID = nil
		return nil
	}
	var id FlexID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	v := id.Uint64()
	o.ID = &v
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.ID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.ID)
}
