package rate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// NormalizeAmount coerces a requested trade amount into a non-negative integer.
//
// Accepted inputs:
//   - any Go integer kind holding a value >= 0
//   - float32/float64 with no fractional part (JSON numbers decode to float64)
//   - json.Number and decimal.Decimal holding a non-negative integer
//   - strings made only of ASCII digits ("5", "007")
//
// Everything else, including nil, fails with ErrInvalidAmount.
func NormalizeAmount(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return nonNegative(int64(x), v)
	case int8:
		return nonNegative(int64(x), v)
	case int16:
		return nonNegative(int64(x), v)
	case int32:
		return nonNegative(int64(x), v)
	case int64:
		return nonNegative(x, v)
	case uint:
		return fromUint(uint64(x), v)
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return fromUint(x, v)
	case float32:
		return fromFloat(float64(x), v)
	case float64:
		return fromFloat(x, v)
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return 0, invalidAmount(v)
		}
		return fromDecimal(d, v)
	case decimal.Decimal:
		return fromDecimal(x, v)
	case string:
		if !digitsOnly.MatchString(x) {
			return 0, invalidAmount(v)
		}
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, invalidAmount(v)
		}
		return n, nil
	default:
		return 0, invalidAmount(v)
	}
}

func invalidAmount(v any) error {
	return fmt.Errorf("%w: %v (%T)", ErrInvalidAmount, v, v)
}

func nonNegative(n int64, v any) (int64, error) {
	if n < 0 {
		return 0, invalidAmount(v)
	}
	return n, nil
}

func fromUint(n uint64, v any) (int64, error) {
	if n > math.MaxInt64 {
		return 0, invalidAmount(v)
	}
	return int64(n), nil
}

func fromFloat(f float64, v any) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, invalidAmount(v)
	}
	return int64(f), nil
}

func fromDecimal(d decimal.Decimal, v any) (int64, error) {
	if d.IsNegative() || !d.IsInteger() || d.GreaterThan(maxAmount) {
		return 0, invalidAmount(v)
	}
	return d.IntPart(), nil
}
