package signals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizeIndicators converts a heterogeneous indicator map into a
// JSON-serializable document. Timestamps become RFC3339 strings, typed
// numerics become primitives, everything else unknown becomes its string
// form. Deterministic so persisted documents are stable for assertions.
func NormalizeIndicators(indicators map[string]interface{}) map[string]interface{} {
	if indicators == nil {
		return nil
	}
	out := make(map[string]interface{}, len(indicators))
	for k, v := range indicators {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, float64, float32, int, int32, int64:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		f, _ := val.Float64()
		return f
	case *float64:
		if val == nil {
			return nil
		}
		return *val
	case map[string]interface{}:
		return NormalizeIndicators(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
