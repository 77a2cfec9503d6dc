package product

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Number is a numeric field that tolerates the shapes the backend and HTML
// forms produce: JSON numbers, numeric strings and empty strings. Values
// that cannot be coerced decode as zero.
type Number float64

// ParseNumber coerces a raw form or cell value into a Number.
func ParseNumber(raw any) Number {
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	return Number(cast.ToFloat64(raw))
}

// Float64 returns the underlying value.
func (n Number) Float64() float64 {
	return float64(n)
}

// Int returns the value truncated toward zero.
func (n Number) Int() int64 {
	return int64(n)
}

// String renders the value without trailing zeros.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = ParseNumber(raw)
	return nil
}

// OptionalNumber distinguishes an absent value from an explicit zero.
type OptionalNumber struct {
	Value Number
	Valid bool
}

// Some wraps v as a present value.
func Some(v float64) OptionalNumber {
	return OptionalNumber{Value: Number(v), Valid: true}
}

// ParseOptionalNumber treats blank input as absent.
func ParseOptionalNumber(raw string) OptionalNumber {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OptionalNumber{}
	}
	if _, err := cast.ToFloat64E(raw); err != nil {
		return OptionalNumber{}
	}
	return OptionalNumber{Value: ParseNumber(raw), Valid: true}
}

// Or returns the value when present, otherwise fallback.
func (o OptionalNumber) Or(fallback float64) float64 {
	if !o.Valid {
		return fallback
	}
	return float64(o.Value)
}

// String renders the value or an empty string when absent.
func (o OptionalNumber) String() string {
	if !o.Valid {
		return ""
	}
	return o.Value.String()
}

// MarshalJSON implements json.Marshaler.
func (o OptionalNumber) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(float64(o.Value))
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalNumber) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*o = OptionalNumber{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*o = ParseOptionalNumber(v)
	case float64:
		*o = Some(v)
	default:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			*o = OptionalNumber{}
			return nil
		}
		*o = Some(f)
	}
	return nil
}
