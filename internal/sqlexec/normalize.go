package sqlexec

import (
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NormalizeRow converts driver values into JSON-friendly ones in place and returns the row.
func NormalizeRow(row []any) []any {
	for i, v := range row {
		row[i] = NormalizeValue(v)
	}
	return row
}

// NormalizeValue converts one driver value:
//   - 16-byte values that are not text become UUID strings
//   - other byte slices become text when valid UTF-8, else \x-prefixed hex
//   - time.Time becomes RFC 3339 with nanoseconds
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		if len(t) == 16 && !printable(t) {
			if id, err := uuid.FromBytes(t); err == nil {
				return id.String()
			}
		}
		if utf8.Valid(t) {
			return string(t)
		}
		return `\x` + hex.EncodeToString(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range string(b) {
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			return false
		}
	}
	return true
}
