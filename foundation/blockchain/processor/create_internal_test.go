package processor

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeGuestSourcePrependsStrictPrologueForV2(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("return 1;"))

	source, reason := decodeGuestSource(encoded, 2)
	require.Empty(t, reason)
	require.Equal(t, strictModePrologue+"return 1;", source)

	source, reason = decodeGuestSource(encoded, 1)
	require.Empty(t, reason)
	require.Equal(t, "return 1;", source)
}

func TestDecodeGuestSourceRejectsBadBase64(t *testing.T) {
	_, reason := decodeGuestSource("not base64!!", 1)
	require.NotEmpty(t, reason)
}

func TestDecodeGuestSourceRejectsTryCatch(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`try { foo(); } catch (e) {}`))

	_, reason := decodeGuestSource(encoded, 1)
	require.Contains(t, reason, "try...catch")
}

func TestDecodeGuestSourceRejectsBareQueryCall(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`var r = query("SELECT 1", []);`))

	_, reason := decodeGuestSource(encoded, 1)
	require.Contains(t, reason, "await")
}

func TestDecodeGuestSourceAllowsAwaitedQueryCall(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`var r = await query("SELECT 1", []);`))

	_, reason := decodeGuestSource(encoded, 1)
	require.Empty(t, reason)
}

func TestHasBareQueryCallDetectsAwaitPrefix(t *testing.T) {
	require.False(t, hasBareQueryCall(`await query("SELECT 1", []);`))
	require.True(t, hasBareQueryCall(`query("SELECT 1", []);`))
	// Only the literal "await " immediately before query( counts.
	require.False(t, hasBareQueryCall(`xawait query("SELECT 1", []);`))
}

func TestParseCreateTemplateAcceptsEmptyObject(t *testing.T) {
	tmpl, reason := parseCreateTemplate(json.RawMessage("{}"))
	require.Empty(t, reason)
	require.Empty(t, tmpl)
}

func TestParseCreateTemplateRejectsArray(t *testing.T) {
	_, reason := parseCreateTemplate(json.RawMessage("[]"))
	require.NotEmpty(t, reason)
}

func TestParseCreateTemplateRejectsFieldWithExtraKey(t *testing.T) {
	raw := json.RawMessage(`{"amount":{"type":"uint","name":"amount","desc":"how much","extra":"nope"}}`)
	_, reason := parseCreateTemplate(raw)
	require.NotEmpty(t, reason)
}

func TestParseCreateTemplateRejectsFieldMissingKey(t *testing.T) {
	raw := json.RawMessage(`{"amount":{"type":"uint","name":"amount"}}`)
	_, reason := parseCreateTemplate(raw)
	require.NotEmpty(t, reason)
}

func TestParseCreateTemplateAcceptsWellFormedField(t *testing.T) {
	raw := json.RawMessage(`{"amount":{"type":"uint","name":"amount","desc":"how much"}}`)
	tmpl, reason := parseCreateTemplate(raw)
	require.Empty(t, reason)
	require.Equal(t, "uint", tmpl["amount"].Type)
	require.Equal(t, "amount", tmpl["amount"].Name)
	require.Equal(t, "how much", tmpl["amount"].Desc)
}
