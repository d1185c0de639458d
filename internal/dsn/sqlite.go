package dsn

import (
	"net/url"
	"strings"
)

// SQLiteResolver handles SQLite file paths and URIs.
type SQLiteResolver struct{}

// NewSQLiteResolver creates a new SQLite resolver
func NewSQLiteResolver() *SQLiteResolver {
	return &SQLiteResolver{}
}

// Parse accepts sqlite://path, sqlite3://path, file: URIs, bare paths and :memory:.
func (r *SQLiteResolver) Parse(dsn string) (*DSNInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a SQLite file path")
	}
	info := &DSNInfo{Type: DBTypeSQLite, Params: make(map[string]string), Original: dsn}

	rest := trimmed
	lower := strings.ToLower(rest)
	for _, prefix := range []string{"sqlite://", "sqlite3://", "file:"} {
		if strings.HasPrefix(lower, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	path, query, _ := strings.Cut(rest, "?")
	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, NewParseError(dsn, "invalid query parameters", "use key=value pairs separated by &")
		}
		for k, v := range values {
			if len(v) > 0 {
				info.Params[k] = v[0]
			}
		}
	}
	if path == "" {
		return nil, NewParseError(dsn, "missing database file", "use sqlite://path/to/file.db or :memory:")
	}
	info.Database = path
	return info, nil
}

// Normalize renders the file: URI modernc.org/sqlite accepts.
func (r *SQLiteResolver) Normalize(info *DSNInfo) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil DSN info", "")
	}
	if info.Database == ":memory:" && len(info.Params) == 0 {
		return ":memory:", nil
	}
	out := "file:" + info.Database
	if len(info.Params) > 0 {
		q := url.Values{}
		for k, v := range info.Params {
			q.Set(k, v)
		}
		out += "?" + q.Encode()
	}
	return out, nil
}

// Validate checks that the DSN names a database file.
func (r *SQLiteResolver) Validate(dsn string) error {
	_, err := r.Parse(dsn)
	return err
}
