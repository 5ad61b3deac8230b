package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <node>",
		Short: "Delete a node and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Delete '%s' and everything below it? (y/N) ", ref))
				if err != nil || !ok {
					return err
				}
			}

			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			removed, err := a.nodes.Delete(ctx, a.tree, ref)
			if err != nil {
				return err
			}

			out := struct {
				Node    string `json:"node" yaml:"node"`
				Removed int    `json:"removed" yaml:"removed"`
			}{ref, removed}
			return render(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if removed == 1 {
					_, err := fmt.Fprintf(w, "Deleted '%s'\n", ref)
					return err
				}
				_, err := fmt.Fprintf(w, "Deleted '%s' and %d descendants\n", ref, removed-1)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func confirm(cmd *cobra.Command, message string) (bool, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Fprint(cmd.ErrOrStderr(), message)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" {
		fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
		return false, nil
	}
	return true, nil
}
