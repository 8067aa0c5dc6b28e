package merge

import (
	"fmt"
	"sort"
	"strings"
)

// Statement is a parameterized SQL statement ready for execution.
type Statement struct {
	SQL  string
	Args []any
}

// BuildUpsert renders the fill-only upsert for one record.
//
// The statement inserts a new row keyed by key, or on conflict fills each
// column whose stored value is NULL or a placeholder. Values missing from
// values, or holding a zero value, are bound as NULL and can never
// overwrite. The key column is never assigned. The statement returns the
// row id and whether the row was freshly inserted.
func BuildUpsert(schema Schema, key Key, values map[string]any) (Statement, error) {
	if !schema.IsKey(key.Column) {
		return Statement{}, fmt.Errorf("column %q is not a key of %s", key.Column, schema.Table)
	}
	if strings.TrimSpace(key.Value) == "" {
		return Statement{}, fmt.Errorf("empty %s key for %s", key.Column, schema.Table)
	}
	if err := checkColumns(schema, values); err != nil {
		return Statement{}, err
	}

	columns := make([]string, 0, len(schema.Fields))
	placeholders := make([]string, 0, len(schema.Fields))
	args := make([]any, 0, len(schema.Fields))
	sets := make([]string, 0, len(schema.Fields))

	columns = append(columns, key.Column)
	placeholders = append(placeholders, "$1")
	args = append(args, strings.TrimSpace(key.Value))

	for _, f := range schema.Fields {
		if f.Name == key.Column {
			continue
		}
		args = append(args, bindValue(f.Kind, values[f.Name]))
		columns = append(columns, f.Name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		sets = append(sets, fillClause(f, "EXCLUDED."+f.Name))
	}
	if len(sets) == 0 {
		// DO NOTHING would suppress RETURNING on conflict.
		sets = append(sets, fmt.Sprintf("%s = t.%s", key.Column, key.Column))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s AS t (%s) VALUES (%s) ",
		schema.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	fmt.Fprintf(&b, "ON CONFLICT (%s) DO UPDATE SET %s ",
		key.Column, strings.Join(sets, ", "))
	b.WriteString("RETURNING t.id, (t.xmax = 0) AS inserted")

	return Statement{SQL: b.String(), Args: args}, nil
}

// BuildFill renders a fill-only UPDATE of an existing row by id. Only
// columns with a non-zero value are included; a fill with nothing to set
// returns ok=false.
func BuildFill(schema Schema, id int64, values map[string]any) (stmt Statement, ok bool, err error) {
	if err := checkColumns(schema, values); err != nil {
		return Statement{}, false, err
	}

	args := []any{id}
	sets := make([]string, 0, len(values))
	for _, f := range schema.Fields {
		if schema.IsKey(f.Name) {
			continue
		}
		v := bindValue(f.Kind, values[f.Name])
		if v == nil {
			continue
		}
		args = append(args, v)
		sets = append(sets, fillClause(f, fmt.Sprintf("$%d", len(args))))
	}
	if len(sets) == 0 {
		return Statement{}, false, nil
	}

	sql := fmt.Sprintf("UPDATE %s AS t SET %s WHERE t.id = $1", schema.Table, strings.Join(sets, ", "))
	return Statement{SQL: sql, Args: args}, true, nil
}

func fillClause(f Field, incoming string) string {
	return fmt.Sprintf("%s = CASE WHEN t.%s IS NULL OR t.%s = %s THEN %s ELSE t.%s END",
		f.Name, f.Name, f.Name, f.Kind.Placeholder(), incoming, f.Name)
}

func checkColumns(schema Schema, values map[string]any) error {
	var unknown []string
	for name := range values {
		if _, ok := schema.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown %s columns: %s", schema.Table, strings.Join(unknown, ", "))
	}
	return nil
}

// bindValue maps absent and zero values to NULL.
func bindValue(kind Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
		return nil
	case *string:
		if x == nil {
			return nil
		}
		return bindValue(kind, *x)
	case int:
		return nonZero(x)
	case int32:
		return nonZero(x)
	case int64:
		return nonZero(x)
	case float64:
		return nonZero(x)
	case *int:
		if x == nil {
			return nil
		}
		return nonZero(*x)
	case *int64:
		if x == nil {
			return nil
		}
		return nonZero(*x)
	case *float64:
		if x == nil {
			return nil
		}
		return nonZero(*x)
	default:
		return v
	}
}

func nonZero[T int | int32 | int64 | float64](v T) any {
	if v == 0 {
		return nil
	}
	return v
}
