package database

import (
	"fmt"
	"strings"
	"unicode"
)

// Statements a read-only source will run. Anything that writes still gets
// stopped by the connection itself (query_only / READ ONLY transactions);
// this rejects ATTACH, PRAGMA and DDL before they reach the engine.
var readOnlyKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"VALUES":  true,
	"EXPLAIN": true,
}

// CheckReadOnly returns ErrNotAuthorized unless query starts with a
// read-only statement keyword
func CheckReadOnly(query string) error {
	kw := strings.ToUpper(leadingKeyword(query))
	if !readOnlyKeywords[kw] {
		if kw == "" {
			return fmt.Errorf("%w: no statement", ErrNotAuthorized)
		}
		return fmt.Errorf("%w: %s statements are not allowed", ErrNotAuthorized, kw)
	}
	return nil
}

// leadingKeyword skips whitespace, comments and opening parentheses and
// returns the first word of the statement
func leadingKeyword(q string) string {
	for {
		q = strings.TrimLeftFunc(q, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(q, "--"):
			i := strings.IndexByte(q, '\n')
			if i < 0 {
				return ""
			}
			q = q[i+1:]
		case strings.HasPrefix(q, "/*"):
			i := strings.Index(q, "*/")
			if i < 0 {
				return ""
			}
			q = q[i+2:]
		default:
			end := strings.IndexFunc(q, func(r rune) bool {
				return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
			})
			if end < 0 {
				return q
			}
			return q[:end]
		}
	}
}
