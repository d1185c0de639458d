// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"regexp"
	"strings"
)

// Classification is the destructive-operation verdict for a statement batch.
type Classification struct {
	Destructive     bool
	Operation       string
	AffectedObjects []string
	Warning         string
}

const (
	ident = `(?:"[^"]+"|\[[^\]]+\]|` + "`[^`]+`" + `|[\w$]+)`
	qname = ident + `(?:\s*\.\s*` + ident + `)*`
)

var (
	reQName     = regexp.MustCompile(qname)
	reDrop      = regexp.MustCompile(`(?is)\bDROP\s+(?:TABLE|DATABASE|SCHEMA|INDEX|VIEW)\s+(?:IF\s+EXISTS\s+)?(` + qname + `(?:\s*,\s*` + qname + `)*)`)
	reTruncate  = regexp.MustCompile(`(?is)\bTRUNCATE\b(?:\s+TABLE)?(?:\s+ONLY)?\s+(` + qname + `(?:\s*,\s*` + qname + `)*)`)
	reTruncKw   = regexp.MustCompile(`(?i)\bTRUNCATE\b`)
	reDelete    = regexp.MustCompile(`(?is)^DELETE\s+(?:FROM\s+)?(?:ONLY\s+)?(` + qname + `)`)
	reUpdate    = regexp.MustCompile(`(?is)^UPDATE\s+(?:ONLY\s+)?(` + qname + `)`)
	reAlter     = regexp.MustCompile(`(?is)^ALTER\s+\w+(?:\s+IF\s+EXISTS)?(?:\s+ONLY)?\s+(` + qname + `)`)
	reExec      = regexp.MustCompile(`(?is)^EXEC(?:UTE)?\s+(` + qname + `)`)
	reProcedure = regexp.MustCompile(`(?i)^(?:SP|XP)_\w+`)
	reWhere     = regexp.MustCompile(`(?i)\bWHERE\b`)
	reDotSpace  = regexp.MustCompile(`\s*\.\s*`)
	reLiteral   = regexp.MustCompile(`'(?:[^']|'')*'`)
	reNoTx      = regexp.MustCompile(`(?is)^(?:VACUUM\b|(?:CREATE|DROP)\s+(?:DATABASE|TABLESPACE)\b|ALTER\s+SYSTEM\b|ATTACH\b|DETACH\b|` +
		`REINDEX\s+(?:DATABASE|SYSTEM)\b|(?:CREATE\s+(?:UNIQUE\s+)?INDEX|DROP\s+INDEX|REINDEX\s+\w+)\s+CONCURRENTLY\b)`)
)

// Classify reports whether query contains a statement that needs explicit
// confirmation: DROP of a table, database, schema, index or view; TRUNCATE;
// DELETE or UPDATE without WHERE; ALTER; stored-procedure execution.
// The first destructive statement decides the operation and warning; affected
// objects are collected from every destructive statement.
func Classify(query string) Classification {
	var out Classification
	for _, stmt := range SplitStatements(query) {
		op, objects, warning := classifyStatement(stmt)
		if op == "" {
			continue
		}
		if !out.Destructive {
			out.Destructive = true
			out.Operation = op
			out.Warning = warning
		}
		out.AffectedObjects = appendUnique(out.AffectedObjects, objects...)
	}
	return out
}

func classifyStatement(stmt string) (op string, objects []string, warning string) {
	stmt = mainStatement(blankLiterals(stmt))
	if m := reDrop.FindStringSubmatch(stmt); m != nil {
		return "DROP", names(m[1]), "This query will permanently delete database objects"
	}
	if reTruncKw.MatchString(stmt) {
		var objs []string
		if m := reTruncate.FindStringSubmatch(stmt); m != nil {
			objs = names(m[1])
		}
		return "TRUNCATE", objs, "This query will delete all rows from the table"
	}
	if m := reDelete.FindStringSubmatch(stmt); m != nil && !reWhere.MatchString(stmt) {
		return "DELETE", names(m[1]), "DELETE without WHERE clause will delete all rows"
	}
	if m := reUpdate.FindStringSubmatch(stmt); m != nil && !reWhere.MatchString(stmt) {
		return "UPDATE", names(m[1]), "UPDATE without WHERE clause will modify all rows"
	}
	if m := reAlter.FindStringSubmatch(stmt); m != nil {
		return "ALTER", names(m[1]), "This query will modify database structure"
	}
	if m := reExec.FindStringSubmatch(stmt); m != nil {
		return "EXEC", names(m[1]), "Executing stored procedures requires confirmation"
	}
	if m := reProcedure.FindString(stmt); m != "" {
		return "EXEC", []string{m}, "Executing stored procedures requires confirmation"
	}
	return "", nil, ""
}

// blankLiterals empties single-quoted strings so their contents never match a rule.
func blankLiterals(stmt string) string {
	return reLiteral.ReplaceAllString(stmt, "''")
}

func names(list string) []string {
	var out []string
	for _, part := range splitTopLevel(list) {
		if n := reQName.FindString(part); n != "" {
			out = append(out, reDotSpace.ReplaceAllString(n, "."))
		}
	}
	return out
}

// splitTopLevel splits on commas outside quotes and brackets.
func splitTopLevel(s string) []string {
	var parts []string
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '`':
			quote = r
		case r == '[':
			quote = ']'
		case r == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, d := range dst {
			if d == it {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}

var readKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true, "EXPLAIN": true, "VALUES": true,
	"PRAGMA": true, "DESCRIBE": true, "DESC": true, "TABLE": true,
}

// IsRead reports whether the first statement of query returns a row set.
// A statement led by common table expressions is judged by the statement
// they feed.
func IsRead(query string) bool {
	stmts := SplitStatements(query)
	if len(stmts) == 0 {
		return false
	}
	return readKeywords[LeadingKeyword(mainStatement(stmts[0]))]
}

// NeedsNoTransaction reports whether stmt is refused inside a transaction
// block, such as VACUUM or CREATE DATABASE.
func NeedsNoTransaction(stmt string) bool {
	return reNoTx.MatchString(strings.TrimSpace(stmt))
}

var cteTargets = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"MERGE": true, "VALUES": true, "TABLE": true,
}

// mainStatement strips a leading WITH clause from stmt and returns the
// statement its common table expressions feed. Other statements are returned
// unchanged.
func mainStatement(stmt string) string {
	if LeadingKeyword(stmt) != "WITH" {
		return stmt
	}
	depth := 0
	var quote byte
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && isWordByte(c) && (i == 0 || !isWordByte(stmt[i-1])):
			end := i
			for end < len(stmt) && isWordByte(stmt[end]) {
				end++
			}
			if cteTargets[strings.ToUpper(stmt[i:end])] {
				return stmt[i:]
			}
			i = end - 1
		}
	}
	return stmt
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// LeadingKeyword returns the upper-cased first word of stmt.
func LeadingKeyword(stmt string) string {
	fields := strings.FieldsFunc(stmt, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' || r == ';'
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// SplitStatements splits query on semicolons, dropping comments and empty
// statements. Quoted strings, quoted identifiers and dollar-quoted bodies are
// kept intact.
func SplitStatements(query string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	src := query
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '-' && strings.HasPrefix(src[i:], "--"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
				continue
			}
			i += end
			cur.WriteByte(' ')
		case c == '/' && strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
				continue
			}
			i += end + 4
			cur.WriteByte(' ')
		case c == '\'' || c == '"' || c == '`':
			end := closing(src, i+1, c)
			cur.WriteString(src[i:end])
			i = end
		case c == '$':
			if tag, ok := dollarTag(src[i:]); ok {
				end := strings.Index(src[i+len(tag):], tag)
				if end < 0 {
					cur.WriteString(src[i:])
					i = len(src)
					continue
				}
				stop := i + len(tag) + end + len(tag)
				cur.WriteString(src[i:stop])
				i = stop
				continue
			}
			cur.WriteByte(c)
			i++
		case c == ';':
			flush()
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	return stmts
}

// closing returns the index just past the quote that closes one opened before from.
// Doubled quotes are escapes.
func closing(src string, from int, q byte) int {
	for i := from; i < len(src); i++ {
		if src[i] == q {
			if i+1 < len(src) && src[i+1] == q {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(src)
}

var reDollarTag = regexp.MustCompile(`^\$[A-Za-z_]*\$`)

func dollarTag(s string) (string, bool) {
	tag := reDollarTag.FindString(s)
	return tag, tag != ""
}
