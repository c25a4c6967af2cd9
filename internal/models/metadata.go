package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is the open key/value audit trail attached to a charge. It is
// stored as JSONB and only ever merged, never replaced wholesale, so keys
// written by earlier transitions survive later ones.
type Metadata map[string]any

// Merged returns a copy of m overlaid with other. m itself is untouched.
func (m Metadata) Merged(other Metadata) Metadata {
	out := make(Metadata, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}
	return json.Unmarshal(b, m)
}
