package scope

import "fmt"

// ScopeOptions contains options for resolving a scope from CLI/MCP input
//
//nolint:revive // ScopeOptions is intentionally prefixed for clarity in external contexts
type ScopeOptions struct {
	Tree        string   // tree name for the default scope column
	Raw         string   // explicit "col=value,..." pairs
	Columns     []string // scope columns of the target table (nil = default table)
	DefaultTree string   // fallback tree when neither Tree nor Raw is set
}

// ResolveScope converts CLI/MCP-level scope options into a validated Scope.
// Without explicit pairs the scope falls back to the configured tree of the
// bundled nodes table.
func ResolveScope(opts ScopeOptions) (Scope, error) {
	columns := opts.Columns
	if columns == nil {
		columns = []string{DefaultColumn}
	}

	if opts.Raw != "" {
		if opts.Tree != "" {
			return nil, fmt.Errorf("--tree cannot be combined with --scope")
		}
		s, err := ParseScope(opts.Raw)
		if err != nil {
			return nil, err
		}
		return s, Validate(s, columns)
	}

	if len(columns) != 1 || columns[0] != DefaultColumn {
		return nil, fmt.Errorf("--scope is required for scope columns %v", columns)
	}

	tree := opts.Tree
	if tree == "" {
		tree = opts.DefaultTree
	}
	if tree == "" {
		tree = DefaultTree
	}
	s := NewTree(tree)
	return s, Validate(s, columns)
}
