package backend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sqlbench/cli/internal/model"
)

// executeResponse accepts every shape /api/execute is known to answer with:
// rows as arrays or as objects, rows_affected or row_count, and confirmation
// requests with or without the echoed query.
type executeResponse struct {
	Success              *bool           `json:"success"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	Columns              []string        `json:"columns"`
	Data                 json.RawMessage `json:"data"`
	RowsAffected         *int64          `json:"rows_affected"`
	RowCount             *int64          `json:"row_count"`
	ExecutionTime        float64         `json:"execution_time"`
	Query                string          `json:"query"`
	Message              string          `json:"message"`
	Error                string          `json:"error"`
	Detail               string          `json:"detail"`
	Operation            string          `json:"operation"`
	AffectedObjects      []string        `json:"affected_objects"`
	Warning              string          `json:"warning"`
}

func (r executeResponse) toResponse(submitted string) (model.Response, error) {
	if r.RequiresConfirmation {
		c := &model.Confirmation{
			Query:           r.Query,
			Operation:       r.Operation,
			AffectedObjects: r.AffectedObjects,
			Warning:         r.Warning,
		}
		if c.Query == "" {
			c.Query = submitted
		}
		if c.Operation == "" {
			c.Operation = leadingKeyword(c.Query)
		}
		return model.Response{Confirmation: c}, nil
	}

	res := &model.Result{
		Success:       r.Success == nil || *r.Success,
		ExecutionTime: r.ExecutionTime,
		Query:         r.Query,
		Message:       r.Message,
		Error:         r.Error,
	}
	if !res.Success && res.Error == "" {
		res.Error = r.Detail
	}
	if r.Success == nil && res.Error != "" {
		res.Success = false
	}

	data, columns, err := decodeRows(r.Data, r.Columns)
	if err != nil {
		return model.Response{}, err
	}
	res.Columns = columns
	res.Data = data

	switch {
	case r.RowsAffected != nil:
		res.RowsAffected = r.RowsAffected
	case r.RowCount != nil && len(columns) == 0:
		// row_count without a row set is an affected-row count.
		n := *r.RowCount
		res.RowsAffected = &n
	}
	return model.Response{Result: res}, nil
}

// decodeRows converts arrays of arrays as-is and arrays of objects by column order.
// When columns are absent for object rows, they are the sorted union of keys.
func decodeRows(raw json.RawMessage, columns []string) ([][]any, []string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, columns, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("decode data: %w", err)
	}
	if len(items) == 0 {
		return [][]any{}, columns, nil
	}

	if strings.HasPrefix(strings.TrimSpace(string(items[0])), "{") {
		objects := make([]map[string]any, len(items))
		for i, it := range items {
			if err := unmarshalNumbers(it, &objects[i]); err != nil {
				return nil, nil, fmt.Errorf("decode row %d: %w", i, err)
			}
		}
		if len(columns) == 0 {
			columns = unionKeys(objects)
		}
		rows := make([][]any, len(objects))
		for i, obj := range objects {
			row := make([]any, len(columns))
			for j, col := range columns {
				row[j] = obj[col]
			}
			rows[i] = row
		}
		return rows, columns, nil
	}

	rows := make([][]any, len(items))
	for i, it := range items {
		if err := unmarshalNumbers(it, &rows[i]); err != nil {
			return nil, nil, fmt.Errorf("decode row %d: %w", i, err)
		}
	}
	return rows, columns, nil
}

func unmarshalNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	return dec.Decode(v)
}

func unionKeys(objects []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, obj := range objects {
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func leadingKeyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
