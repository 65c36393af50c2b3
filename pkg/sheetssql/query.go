// Package sheetssql maps structs to and from spreadsheet rows. Fields are
// bound to columns with an `ssql_header` tag naming the header cell.
package sheetssql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const headerTag = "ssql_header"

// Decode maps rows to structs of type T. The first row holds the headers;
// header matching ignores case and surrounding space. Every tagged field
// must have a column. Rows whose cells are all empty are skipped.
func Decode[T any](values [][]any) ([]T, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s must be a struct", t)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	columnIndexes := make(map[string]int)
	for i, header := range values[0] {
		if headerStr, ok := header.(string); ok {
			columnIndexes[normalise(headerStr)] = i
		}
	}

	fieldColumns := make(map[int]int)
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get(headerTag)
		if name == "" {
			continue
		}
		col, ok := columnIndexes[normalise(name)]
		if !ok {
			return nil, fmt.Errorf("missing required column in header: %s", name)
		}
		fieldColumns[i] = col
	}

	results := make([]T, 0, len(values)-1)
	for rowIdx, row := range values[1:] {
		if isBlank(row) {
			continue
		}

		result := reflect.New(t).Elem()
		for fieldIdx, colIdx := range fieldColumns {
			if colIdx >= len(row) || row[colIdx] == nil {
				continue
			}
			if err := setFieldValue(result.Field(fieldIdx), row[colIdx]); err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", rowIdx+2, t.Field(fieldIdx).Tag.Get(headerTag), err)
			}
		}
		results = append(results, result.Interface().(T))
	}

	return results, nil
}

// Headers returns the tagged column names of T in field order
func Headers[T any]() []any {
	t := reflect.TypeFor[T]()
	var headers []any
	for i := 0; i < t.NumField(); i++ {
		if name := t.Field(i).Tag.Get(headerTag); name != "" {
			headers = append(headers, name)
		}
	}
	return headers
}

// Encode renders structs as rows in Headers order.
// Slice fields of strings are joined with ", ".
func Encode[T any](models []T) [][]any {
	t := reflect.TypeFor[T]()
	rows := make([][]any, 0, len(models))
	for _, model := range models {
		v := reflect.ValueOf(model)
		row := make([]any, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Tag.Get(headerTag) == "" {
				continue
			}
			row = append(row, cellValue(v.Field(i)))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellValue(field reflect.Value) any {
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		parts := make([]string, field.Len())
		for i := range parts {
			parts[i] = field.Index(i).String()
		}
		return strings.Join(parts, ", ")
	}
	if field.Kind() == reflect.String {
		return field.String()
	}
	return field.Interface()
}

func normalise(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func isBlank(row []any) bool {
	for _, cell := range row {
		if cell == nil {
			continue
		}
		if s, ok := cell.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}

// setFieldValue converts a sheet cell value to the field's type
func setFieldValue(field reflect.Value, cellValue any) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	cellStr, ok := cellValue.(string)
	if !ok {
		cellStr = fmt.Sprint(cellValue)
	}
	cellStr = strings.TrimSpace(cellStr)

	switch field.Kind() {
	case reflect.String:
		field.SetString(cellStr)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if cellStr == "" {
			field.SetInt(0)
			return nil
		}
		intVal, err := strconv.ParseInt(cellStr, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse int: %w", err)
		}
		field.SetInt(intVal)

	case reflect.Bool:
		if cellStr == "" {
			field.SetBool(false)
			return nil
		}
		boolVal, err := strconv.ParseBool(cellStr)
		if err != nil {
			return fmt.Errorf("failed to parse bool: %w", err)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}
