package validator

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/Coinversable/validana-core/foundation/blockchain/crypto"
	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
)

// maxSafeFloat mirrors Number.MAX_SAFE_INTEGER (2^53 - 1) as a float64
// for the int/uint bounds checks.
const maxSafeFloat = float64(1<<53) - 1

// checkBaseType type-checks a single decoded JSON value against one
// base template tag, per spec §4.4. Unknown tags fall back to str.
func checkBaseType(tag string, raw json.RawMessage, validanaVersion int) string {
	switch tag {
	case "bool":
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return "Payload has invalid boolean."
		}
		return ""

	case "int":
		n, ok := asNumber(raw)
		if !ok || !isInteger(n) || math.Abs(n) > maxSafeFloat {
			return "Payload has invalid integer."
		}
		return ""

	case "uint":
		n, ok := asNumber(raw)
		if !ok || !isInteger(n) || n < 0 || n > maxSafeFloat {
			return "Payload has invalid unsigned integer."
		}
		return ""

	case "float":
		n, ok := asNumber(raw)
		if !ok || math.IsInf(n, 0) || math.IsNaN(n) {
			return "Payload has invalid float."
		}
		return ""

	case "addr":
		s, ok := asString(raw)
		if !ok || !keys.IsValidAddress(s) {
			return "Payload has invalid address."
		}
		return ""

	case "hex":
		s, ok := asString(raw)
		if !ok || !crypto.IsHex(s) {
			return "Payload has invalid hex."
		}
		return ""

	case "hash":
		s, ok := asString(raw)
		if !ok || len(s) != 64 || !crypto.IsHex(s) {
			return "Payload has invalid hash."
		}
		return ""

	case "base64":
		s, ok := asString(raw)
		if !ok || !crypto.IsBase64(s) {
			return "Payload has invalid base64."
		}
		return ""

	case "json":
		if validanaVersion == 1 {
			s, ok := asString(raw)
			if !ok || !json.Valid([]byte(s)) {
				return "Payload has invalid json field."
			}
			return ""
		}
		return ""

	case "id":
		if validanaVersion == 1 {
			if _, ok := asString(raw); !ok {
				return "Payload has invalid id."
			}
			return ""
		}
		s, ok := asString(raw)
		if !ok || len(s) != 32 || !crypto.IsHex(s) {
			return "Payload has invalid id."
		}
		return ""

	case "str":
		if _, ok := asString(raw); !ok {
			return "Payload has invalid string."
		}
		return ""

	default:
		if _, ok := asString(raw); !ok {
			return "Payload has invalid string."
		}
		return ""
	}
}

func asString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func asNumber(raw json.RawMessage) (float64, bool) {
	var n float64
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return 0, false
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func isInteger(n float64) bool {
	return n == math.Trunc(n)
}
