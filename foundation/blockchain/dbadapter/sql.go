// Package dbadapter wraps a single persistent Postgres connection: the
// typed SQL client the sandbox's guest API and the create/delete
// contract handlers issue every query through. It enforces the
// restricted guest SQL grammar, translates the legacy positional query
// API, and classifies Postgres errors per spec §4.8/§6.
package dbadapter

import (
	"regexp"
	"strings"

	"github.com/Coinversable/validana-core/foundation/blockchain/crypto"
)

// ErrForbiddenQuery is returned when a guest query fails the grammar
// check before ever reaching Postgres.
type ErrForbiddenQuery struct {
	Reason string
}

func (e *ErrForbiddenQuery) Error() string {
	return "Invalid query: " + e.Reason
}

// forbiddenSubstrings block any reference to host time. Matched
// case-insensitively against the whole trimmed query.
var forbiddenSubstrings = []string{"localtime", "current_date", "current_time"}

// allowedFirstKeyword matches the first keyword (and, for a handful of
// forms, its immediately following qualifier) of a query the guest
// grammar accepts.
var allowedFirstKeyword = regexp.MustCompile(`(?is)^(` +
	`alter\s+(index|table|type)|` +
	`create\s+(unique\s+)?(index|table|type)|` +
	`delete|` +
	`drop\s+(index|table|type)|` +
	`insert|` +
	`select|` +
	`update|` +
	`with` +
	`)\b`)

// reservedRoleException matches the narrow set of SET LOCAL/SHOW
// statements only the reserved create/delete contract transaction may
// issue (spec §4.8.3).
var reservedRoleException = regexp.MustCompile(`(?is)^(` +
	`set\s+local\s+role\s+smartcontract(manager)?\s*;?$|` +
	`set\s+local\s+statement_timeout\s*=\s*\S+\s*;?$|` +
	`show\s+statement_timeout\s*;?$` +
	`)`)

// ValidateGuestQuery checks a trimmed, semicolon-terminated query
// against the restricted grammar of spec §4.8. isSpecialContract
// widens the grammar to the reserved SET LOCAL/SHOW exceptions used by
// the create/delete contract handlers.
func ValidateGuestQuery(query string, isSpecialContract bool) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &ErrForbiddenQuery{Reason: "empty query"}
	}
	if !strings.HasSuffix(trimmed, ";") {
		trimmed += ";"
	}

	body := strings.TrimSuffix(trimmed, ";")
	if strings.Contains(body, ";") {
		return &ErrForbiddenQuery{Reason: "multiple queries, comments or time request."}
	}
	if strings.Contains(body, "--") {
		return &ErrForbiddenQuery{Reason: "multiple queries, comments or time request."}
	}

	lower := strings.ToLower(body)
	for _, forbidden := range forbiddenSubstrings {
		if strings.Contains(lower, forbidden) {
			return &ErrForbiddenQuery{Reason: "multiple queries, comments or time request."}
		}
	}

	if isSpecialContract && reservedRoleException.MatchString(trimmed) {
		return nil
	}

	if !allowedFirstKeyword.MatchString(strings.TrimSpace(body)) {
		return &ErrForbiddenQuery{Reason: "unsupported statement."}
	}

	return nil
}

// NormalizeGuestQuery trims a guest query and appends a trailing ';'
// if missing, matching the canonical form ValidateGuestQuery checks.
func NormalizeGuestQuery(query string) string {
	trimmed := strings.TrimSpace(query)
	if !strings.HasSuffix(trimmed, ";") {
		trimmed += ";"
	}
	return trimmed
}

// returningClause matches a RETURNING clause anywhere in a statement.
var returningClause = regexp.MustCompile(`(?is)\breturning\b`)

// isRowReturningStatement reports whether a normalized guest query
// produces rows Client.Query should scan, as opposed to a bare
// INSERT/UPDATE/DELETE/DDL statement Client.Exec should run instead so
// its RowCount reflects rows affected rather than always 0.
func isRowReturningStatement(normalized string) bool {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(normalized), ";"))
	lower := strings.ToLower(body)
	if strings.HasPrefix(lower, "select") || strings.HasPrefix(lower, "with") {
		return true
	}
	return returningClause.MatchString(body)
}

// PrivateTableSuffix derives the "_<first-32-hex-of-contract-hash>"
// suffix the legacy v1 call surface appends to a table name when
// usePrivate is set, giving each contract its own private tables.
func PrivateTableSuffix(contractHash [32]byte) string {
	return "_" + crypto.HexEncode(contractHash[:])[:32]
}

// LegacyAction is the first element of the legacy 4/5-tuple call
// surface (action, table, info, params[, usePrivate]).
type LegacyAction string

const (
	LegacySelect LegacyAction = "select"
	LegacyInsert LegacyAction = "insert"
	LegacyUpdate LegacyAction = "update"
	LegacyDelete LegacyAction = "delete"
)

// TranslateLegacyQuery converts a legacy positional call into the
// canonical SQL string the guest grammar accepts. info holds
// action-specific SQL fragments (columns for select, "col=val, ..."
// assignments for update, condition text for select/update/delete).
func TranslateLegacyQuery(action LegacyAction, table, info string, contractHash [32]byte, usePrivate bool) (string, error) {
	if usePrivate {
		table += PrivateTableSuffix(contractHash)
	}

	switch action {
	case LegacySelect:
		return "SELECT " + info + " FROM " + table + ";", nil
	case LegacyInsert:
		return "INSERT INTO " + table + " " + info + ";", nil
	case LegacyUpdate:
		return "UPDATE " + table + " SET " + info + ";", nil
	case LegacyDelete:
		return "DELETE FROM " + table + " WHERE " + info + ";", nil
	default:
		return "", &ErrForbiddenQuery{Reason: "unknown legacy action."}
	}
}
