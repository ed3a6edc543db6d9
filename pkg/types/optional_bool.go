package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// OptionalBool is a tri-state flag: unset, true, or false. Preference
// columns use it so that a user who never touched a toggle can be
// distinguished from one who switched it off.
type OptionalBool struct {
	Bool  bool
	Valid bool
}

func NewOptionalBool(value bool) OptionalBool {
	return OptionalBool{Bool: value, Valid: true}
}

// Effective resolves the flag against a default used when unset.
func (o OptionalBool) Effective(fallback bool) bool {
	if o.Valid {
		return o.Bool
	}
	return fallback
}

func (o OptionalBool) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Bool)
}

func (o *OptionalBool) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = OptionalBool{}
		return nil
	}
	var value bool
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*o = OptionalBool{Bool: value, Valid: true}
	return nil
}

func (o OptionalBool) Value() (driver.Value, error) {
	if !o.Valid {
		return nil, nil
	}
	return o.Bool, nil
}

func (o *OptionalBool) Scan(value interface{}) error {
	if value == nil {
		*o = OptionalBool{}
		return nil
	}
	switch v := value.(type) {
	case bool:
		*o = OptionalBool{Bool: v, Valid: true}
	case int64:
		*o = OptionalBool{Bool: v != 0, Valid: true}
	default:
		return fmt.Errorf("optional bool: unsupported scan type %T", value)
	}
	return nil
}
