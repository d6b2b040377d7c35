package dbadapter

import "math/big"

// NormalizeValue maps a decoded column value into the deterministic
// form the guest sandbox sees, per spec §4.8: Postgres bigint and
// bigint[] columns become native integer forms (an int64 when the
// value fits, else a decimal string) rather than driver-specific
// wrapper types, so the same query produces the same guest-visible
// value regardless of the underlying driver's native mapping.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case *big.Int:
		return normalizeBigInt(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = NormalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func normalizeBigInt(v *big.Int) any {
	if v.IsInt64() {
		return v.Int64()
	}
	return v.String()
}
