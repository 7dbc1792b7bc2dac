package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimal is a fixed-point amount with two fractional digits, held as
// hundredths. Money and hour fields use it.
type Decimal int64

// maxWholeDigits keeps every parsed amount exactly representable in hundredths.
const maxWholeDigits = 13

// ParseDecimal accepts "12", "12.5" or "12.50".
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("A valid number is required.")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("A valid number is required.")
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > 2 {
		return 0, errors.New("Ensure that there are no more than 2 decimal places.")
	}
	if math.Abs(f) >= math.Pow10(maxWholeDigits) {
		return 0, fmt.Errorf("Ensure that there are no more than %d digits before the decimal point.", maxWholeDigits)
	}
	return DecimalFromFloat(f), nil
}

// DecimalFromFloat rounds f to hundredths, saturating at the int64 range.
func DecimalFromFloat(f float64) Decimal {
	v := math.Round(f * 100)
	switch {
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return Decimal(v)
}

// DecimalPtr is a convenience for optional decimal fields.
func DecimalPtr(d Decimal) *Decimal { return &d }

func (d Decimal) Float64() float64 { return float64(d) / 100 }

// Digits reports the number of integer digits.
func (d Decimal) Digits() int {
	whole := int64(d) / 100
	if whole < 0 {
		whole = -whole
	}
	return len(strconv.FormatInt(whole, 10))
}

func (d Decimal) String() string {
	sign := ""
	v := int64(d)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (Decimal) GormDataType() string { return "decimal" }

func (d Decimal) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Decimal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = 0
	case int64:
		*d = Decimal(v * 100)
	case float64:
		*d = DecimalFromFloat(v)
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("scan decimal: unsupported type %T", src)
	}
	return nil
}

func (d *Decimal) scanString(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("scan decimal %q: %w", s, err)
	}
	*d = DecimalFromFloat(f)
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON strings and numbers.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
