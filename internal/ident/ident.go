package ident

import (
	"strings"
)

// DefaultSchema is the schema SQL Server resolves unqualified names against.
const DefaultSchema = "dbo"

// SplitQualified splits a potentially schema-qualified identifier into its parts.
// Both [bracket] and "double quote" delimiters are understood.
func SplitQualified(ident string) []string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil
	}
	var parts []string
	var buf strings.Builder
	var closing rune
	runes := []rune(ident)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case closing != 0 && r == closing:
			if i+1 < len(runes) && runes[i+1] == closing {
				buf.WriteRune(r)
				i++
				continue
			}
			closing = 0
		case closing != 0:
			buf.WriteRune(r)
		case r == '[':
			closing = ']'
		case r == '"':
			closing = '"'
		case r == '.':
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	parts = append(parts, strings.TrimSpace(buf.String()))
	return parts
}

// Table returns the schema and table of a table identifier, falling back to
// DefaultSchema when no schema is given.
func Table(schema, table string) (string, string) {
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}
	return schema, table
}

// Quote safely quotes a single identifier part.
func Quote(part string) string {
	return "[" + strings.ReplaceAll(part, "]", "]]") + "]"
}

// QuoteQualified renders qualified identifier parts as a SQL identifier.
func QuoteQualified(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = Quote(p)
	}
	return strings.Join(quoted, ".")
}

// Literal renders s as a single-quoted string literal with quotes doubled.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// NLiteral renders s as a Unicode string literal, N'...'.
func NLiteral(s string) string {
	return "N" + Literal(s)
}

// ObjectLiteral produces the literal passed to OBJECT_ID, e.g. N'[dbo].[orders]'.
func ObjectLiteral(schema, table string) string {
	return NLiteral(QuoteQualified(schema, table))
}
