package money

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the amount as a JSON number with two decimals (12.95, not 12.950000762939453).
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number (12.95) or a decimal string ("12.95").
// The literal text is parsed as a decimal; it is never routed through float64.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
	}
	v, err := Parse(text)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
