// Package validator implements the payload validator: typed template
// matching of decoded JSON transaction payloads against a contract's
// declared template, version-aware per spec §4.4.
package validator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field describes one template entry: {type, name, desc}.
type Field struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// Template maps a payload field name to its declared Field.
type Template map[string]Field

// Validate checks payload (raw decoded JSON) against tmpl for a
// contract at the given validanaVersion. It returns a non-empty reason
// string on failure and an empty string on success, mirroring the
// reference implementation's Option<String> return.
func Validate(payload json.RawMessage, tmpl Template, validanaVersion int) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "Payload is invalid json."
	}
	// A JSON array or a bare scalar already fails the Unmarshal above,
	// but `null` unmarshals into a nil map without error, so anything
	// that does not start with an object brace is rejected explicitly.
	trimmed := strings.TrimSpace(string(payload))
	if !strings.HasPrefix(trimmed, "{") {
		return "Payload is invalid json."
	}

	for key := range obj {
		if _, ok := tmpl[key]; !ok {
			return "Payload has extra key."
		}
	}

	for key, field := range tmpl {
		raw, present := obj[key]

		typ := field.Type
		optional := false
		if validanaVersion != 1 && strings.HasSuffix(typ, "?") {
			optional = true
			typ = strings.TrimSuffix(typ, "?")
		}

		if !present {
			if optional {
				continue
			}
			return fmt.Sprintf("Payload is missing key: %s.", key)
		}

		if strings.HasSuffix(typ, "Array") {
			base := strings.TrimSuffix(typ, "Array")
			var elements []json.RawMessage
			if err := json.Unmarshal(raw, &elements); err != nil || !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
				return checkBaseType(base, raw, validanaVersion) + " in array"
			}
			for _, elem := range elements {
				if reason := checkBaseType(base, elem, validanaVersion); reason != "" {
					return reason + " in array"
				}
			}
			continue
		}

		if reason := checkBaseType(typ, raw, validanaVersion); reason != "" {
			return reason
		}
	}

	return ""
}
