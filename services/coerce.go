package services

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Coercion helpers for the raw stored shapes. JSON decoding hands the
// normalizer float64 for every number, but blobs written by older clients
// may carry strings where numbers belong; all of these recover to the zero
// value rather than fail.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func asIntPtr(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int64:
		i := int(n)
		return &i
	case int:
		i := n
		return &i
	default:
		return nil
	}
}

func asDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	case int64:
		return decimal.NewFromInt(n)
	case int:
		return decimal.NewFromInt(int64(n))
	default:
		return decimal.Zero
	}
}
