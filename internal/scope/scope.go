package scope

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultColumn is the scope column of the bundled nodes table.
const DefaultColumn = "tree_id"

// DefaultTree is the tree name used when none is given.
const DefaultTree = "default"

// Scope maps scope column names to the values a node carries in them. Two
// nodes can only be related when their scopes are equal.
type Scope map[string]any

var (
	identPattern        = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	storageSanitizeExpr = regexp.MustCompile(`[@/\\:?*"<>|\s]`)
)

// NewTree returns the scope of a named tree in the bundled nodes table.
func NewTree(name string) Scope {
	return Scope{DefaultColumn: name}
}

// Of builds a scope from a single column value.
func Of(column string, value any) Scope {
	return Scope{column: value}
}

// With returns a copy of s extended with one more column value.
func (s Scope) With(column string, value any) Scope {
	out := make(Scope, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[column] = value
	return out
}

// Tree returns the tree name of a default-table scope.
func (s Scope) Tree() string {
	if v, ok := s[DefaultColumn]; ok {
		return valueString(v)
	}
	return ""
}

// IsIdentifier reports whether name is usable as a bare SQL identifier.
func IsIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Validate checks that s carries exactly the given scope columns.
func Validate(s Scope, columns []string) error {
	for _, col := range columns {
		if !IsIdentifier(col) {
			return fmt.Errorf("invalid scope column %q", col)
		}
		v, ok := s[col]
		if !ok {
			return fmt.Errorf("scope is missing column %q", col)
		}
		if str, isStr := v.(string); isStr {
			if err := ensureNonEmpty(fmt.Sprintf("scope column %q requires a value", col), str); err != nil {
				return err
			}
		}
	}
	if len(s) != len(columns) {
		for k := range s {
			if !contains(columns, k) {
				return fmt.Errorf("unknown scope column %q", k)
			}
		}
	}
	return nil
}

// Equal reports whether a and b agree on every scope column.
func Equal(a, b Scope, columns []string) bool {
	for _, col := range columns {
		if normalize(a[col]) != normalize(b[col]) {
			return false
		}
	}
	return true
}

// Predicate renders the SQL condition selecting rows of s. alias qualifies
// the columns when non-empty. An empty column list yields an empty condition.
func Predicate(s Scope, columns []string, alias string) (string, []any) {
	if len(columns) == 0 {
		return "", nil
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	parts := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		v := s[col]
		if v == nil {
			parts = append(parts, prefix+col+" IS NULL")
			continue
		}
		parts = append(parts, prefix+col+" = ?")
		args = append(args, v)
	}
	return strings.Join(parts, " AND "), args
}

// FormatScope renders s as "col=value" pairs in column order.
func FormatScope(s Scope, columns []string) string {
	if len(columns) == 0 {
		return "global"
	}
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col+"="+valueString(s[col]))
	}
	return strings.Join(parts, ",")
}

// FormatScopeShort renders only the values of s.
func FormatScopeShort(s Scope, columns []string) string {
	if len(columns) == 1 {
		return valueString(s[columns[0]])
	}
	return FormatScope(s, columns)
}

// ParseScope reads the "col=value,col=value" form produced by FormatScope.
// Values that look like integers are kept as int64.
func ParseScope(input string) (Scope, error) {
	out := Scope{}
	if strings.TrimSpace(input) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(input, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid scope pair %q (expected column=value)", pair)
		}
		if !IsIdentifier(key) {
			return nil, fmt.Errorf("invalid scope column %q", key)
		}
		value = strings.TrimSpace(value)
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			out[key] = n
		} else {
			out[key] = value
		}
	}
	return out, nil
}

// GetScopeStorageKey returns a stable key for the scope of a table, usable
// as a lock name.
func GetScopeStorageKey(table string, s Scope, columns []string) string {
	return sanitizeForFile(table + "@" + FormatScope(s, columns))
}

// Columns returns the column names carried by s in sorted order.
func Columns(s Scope) []string {
	cols := make([]string, 0, len(s))
	for k := range s {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func normalize(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00"
	case []byte:
		return string(t)
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func valueString(v any) string {
	if v == nil {
		return "null"
	}
	return normalize(v)
}

func sanitizeForFile(value string) string {
	return storageSanitizeExpr.ReplaceAllString(value, "-")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func ensureNonEmpty(msg, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(msg)
	}
	return nil
}
