package core

import (
	"context"
	"fmt"
	"strings"
)

type (
	// Record is a row of the remote tabular store.
	Record struct {
		ID          string                 `json:"id"`
		Fields      map[string]interface{} `json:"fields"`
		CreatedTime string                 `json:"createdTime,omitempty"`
	}

	// Ordering sorts list results on a remote column.
	Ordering struct {
		Field     string
		Ascending bool
	}

	ListOptions struct {
		Formula    string // remote filter expression, NOT url-encoded
		MaxRecords int    // 0 means no limit
		Sort       []Ordering
	}

	// RecordStore is the remote tabular store, addressed by table name and record id.
	RecordStore interface {
		ListRecords(ctx context.Context, table string, opts ListOptions) ([]Record, error)
		GetRecord(ctx context.Context, table, id string) (Record, error)
		CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (Record, error)
		UpdateRecord(ctx context.Context, table, id string, fields map[string]interface{}) (Record, error)
		DeleteRecord(ctx context.Context, table, id string) error
	}
)

func (ord Ordering) String() string {
	direction := "desc"
	if ord.Ascending {
		direction = "asc"
	}
	return fmt.Sprintf("%s %s", ord.Field, direction)
}

// ParseOrderings reads a comma separated list of column names, "-" prefixed for descending order.
func ParseOrderings(s string) []Ordering {
	var orderings []Ordering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = strings.TrimSpace(field[1:]) // drop "-"
		}
		if field == "" {
			continue
		}
		orderings = append(orderings, Ordering{Field: field, Ascending: !descending})
	}
	return orderings
}

var formulaEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// EqualsFormula builds the equality filter `{column}="value"`.
// The value is quoted here; url encoding is left to the transport, which encodes the whole formula once.
func EqualsFormula(column, value string) string {
	return fmt.Sprintf(`{%s}="%s"`, column, formulaEscaper.Replace(value))
}

// NonEmpty drops records with an empty field set.
func NonEmpty(records []Record) []Record {
	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		if len(rec.Fields) > 0 {
			kept = append(kept, rec)
		}
	}
	return kept
}

// StringField reads a column as a string. Lists are joined with ", ".
func (r Record) StringField(column string) string {
	switch val := r.Fields[column].(type) {
	case nil:
		return ""
	case string:
		return val
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}
