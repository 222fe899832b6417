package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

// Floats beyond 2^53 may already have been rounded by the decoder.
const maxExactFloat = 1 << 53

// decodeAmounts reads deployment.amounts without weak typing: every entry must
// already be a base-10 integer. A string is an environment override holding a
// comma or space separated list.
func decodeAmounts(raw interface{}) ([]types.ReleaseAmount, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
		items := make([]interface{}, len(fields))
		for i, f := range fields {
			items[i] = f
		}
		return decodeAmountList(items)
	case []interface{}:
		return decodeAmountList(v)
	default:
		return nil, types.NewFieldError(types.ErrShapeMismatch, "amounts", fmt.Sprint(raw), "must be a list of integers")
	}
}

func decodeAmountList(items []interface{}) ([]types.ReleaseAmount, error) {
	out := make([]types.ReleaseAmount, len(items))
	for i, item := range items {
		n, msg := decodeAmount(item)
		if msg != "" {
			return nil, types.NewFieldError(types.ErrInvalidAmount, types.IndexField("amounts", i), fmt.Sprint(item), msg)
		}
		out[i] = types.ReleaseAmount(n)
	}
	return out, nil
}

// decodeAmount returns the integer value of raw, or a non-empty reason.
// Negative values pass; schedule.Builder reports them.
func decodeAmount(raw interface{}) (int64, string) {
	switch v := raw.(type) {
	case int:
		return int64(v), ""
	case int8:
		return int64(v), ""
	case int16:
		return int64(v), ""
	case int32:
		return int64(v), ""
	case int64:
		return v, ""
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return int64(v), ""
	case uint16:
		return int64(v), ""
	case uint32:
		return int64(v), ""
	case uint64:
		return fromUint(v)
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return 0, "out of int64 range"
		}
		if err != nil {
			return 0, "not a base-10 integer"
		}
		return n, ""
	default:
		return 0, fmt.Sprintf("not an integer (%T)", raw)
	}
}

func fromUint(v uint64) (int64, string) {
	if v > math.MaxInt64 {
		return 0, "out of int64 range"
	}
	return int64(v), ""
}

func fromFloat(f float64) (int64, string) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, "not an integer"
	}
	if math.Abs(f) > maxExactFloat {
		return 0, "out of exact integer range"
	}
	return int64(f), ""
}
