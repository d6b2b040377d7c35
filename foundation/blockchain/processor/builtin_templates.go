package processor

import "github.com/Coinversable/validana-core/foundation/blockchain/validator"

// builtinValidanaVersion is the version passed to validator.Validate for
// the two built-in templates below. It only controls whether "?"-suffixed
// fields are treated as optional (see validator.Validate); it has no
// relation to a create-contract payload's own requested validanaVersion
// field, which governs how the deployed contract itself runs.
const builtinValidanaVersion = 2

// createContractTemplate is the built-in template spec §4.7's
// TemplateMatching step requires a transaction targeting
// registry.ReservedCreateHash to be checked against, applying the same
// generic S2 rules (extra/missing keys, per-field type checks) ordinary
// user-contract payloads are checked against via their own template.
var createContractTemplate = validator.Template{
	"type":            {Type: "str", Name: "type", Desc: "contract type"},
	"version":         {Type: "str", Name: "version", Desc: "contract version"},
	"description":     {Type: "str?", Name: "description", Desc: "contract description"},
	"template":        {Type: "json?", Name: "template", Desc: "payload template for calls to this contract"},
	"init":            {Type: "str?", Name: "init", Desc: "base64-encoded one-time init source"},
	"code":            {Type: "str?", Name: "code", Desc: "base64-encoded contract source"},
	"validanaVersion": {Type: "uint?", Name: "validanaVersion", Desc: "validana version the deployed contract runs under"},
}

// deleteContractTemplate is the built-in template a transaction
// targeting registry.ReservedDeleteHash is checked against.
var deleteContractTemplate = validator.Template{
	"hash": {Type: "hash", Name: "hash", Desc: "contract hash to delete"},
}
