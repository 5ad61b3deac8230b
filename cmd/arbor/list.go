package main

import (
	"context"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/arbor-db/arbor/internal/usecase"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls [node]",
		Aliases: []string{"list"},
		Short:   "List nodes of a tree as a table",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			nodes, err := a.nodes.Show(ctx, a.tree, ref)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), nodes, func(w io.Writer) error {
				outputTable(w, nodes, true)
				return nil
			})
		},
	}

	return cmd
}

// columnWidths holds the calculated widths for the variable columns
type columnWidths struct {
	name         int
	path         int
	useShortDate bool
}

// calculateColumnWidths fits the name and path columns into the terminal,
// shortening the date column first when space runs out.
func calculateColumnWidths(termWidth int, nodes []usecase.NodeView, withPath bool) columnWidths {
	numColumns := 7
	if withPath {
		numColumns = 8
	}
	// roughly 3 chars of border and padding per column
	availableWidth := termWidth - numColumns*3

	maxName, maxPath := 4, 4
	for _, n := range nodes {
		maxName = max(maxName, runewidth.StringWidth(n.Name))
		maxPath = max(maxPath, runewidth.StringWidth(n.Path))
	}

	// ID, Parent, Pos, Depth and Children rarely need more than 6 each
	fixed := 5 * 6
	createdWidth := 19 // "2006-01-02 15:04:05"
	useShortDate := false

	nameWidth := min(maxName, 40)
	pathWidth := 0
	if withPath {
		pathWidth = min(maxPath, 60)
	}

	if fixed+createdWidth+nameWidth+pathWidth > availableWidth {
		createdWidth = 11 // "01-02 15:04"
		useShortDate = true
	}
	if withPath {
		rest := availableWidth - fixed - createdWidth - nameWidth
		pathWidth = max(min(pathWidth, rest), 10)
	}
	rest := availableWidth - fixed - createdWidth - pathWidth
	nameWidth = max(min(nameWidth, rest), 10)

	return columnWidths{
		name:         nameWidth,
		path:         pathWidth,
		useShortDate: useShortDate,
	}
}

func outputTable(w io.Writer, nodes []usecase.NodeView, withPath bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	widths := calculateColumnWidths(getTerminalWidth(), nodes, withPath)

	// Cells are wrapped before they reach the table; go-pretty's WidthMax
	// miscounts multi-byte characters.
	header := table.Row{"ID", "Name", "Parent", "Pos", "Depth", "Children", "Updated"}
	if withPath {
		header = append(header, "Path")
	}
	t.AppendHeader(header)

	for _, n := range nodes {
		updated := n.UpdatedAt
		if ts, err := time.Parse(time.RFC3339, n.UpdatedAt); err == nil {
			if widths.useShortDate {
				updated = ts.Local().Format("01-02 15:04")
			} else {
				updated = ts.Local().Format("2006-01-02 15:04:05")
			}
		}

		row := table.Row{
			n.ID,
			wrapString(n.Name, widths.name),
			optionalID(n.ParentID),
			n.Position,
			n.Depth,
			n.ChildCount,
			updated,
		}
		if withPath {
			row = append(row, runewidth.Truncate(n.Path, widths.path, "..."))
		}
		t.AppendRow(row)
	}

	t.Render()
}
