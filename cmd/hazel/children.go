package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/cli"
)

var (
	childDB   string
	childKind string
)

var addChildCmd = &cobra.Command{
	Use:   "add-child <parent-ext-id> <child-ext-id>",
	Short: "Add a parent -> child edge within a DAG",
	Long:  `Add a parent -> child edge within the subject, object, or privilege DAG named by --kind. Rejects self-loops and edges that would close a cycle.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runChildMutation("added", func(eng *hazel.Engine, ctx context.Context, kind hazel.Kind, parent, child any) error { return eng.AddChild(ctx, kind, parent, child) }),
}

var removeChildCmd = &cobra.Command{
	Use:   "remove-child <parent-ext-id> <child-ext-id>",
	Short: "Remove a parent -> child edge within a DAG, if present",
	Args:  cobra.ExactArgs(2),
	RunE:  runChildMutation("removed", func(eng *hazel.Engine, ctx context.Context, kind hazel.Kind, parent, child any) error { return eng.RemoveChild(ctx, kind, parent, child) }),
}

func init() {
	for _, c := range []*cobra.Command{addChildCmd, removeChildCmd} {
		f := c.Flags()
		f.StringVar(&childDB, "db", "", "database URL")
		f.StringVar(&childKind, "kind", "", "DAG to edit: subject, object, or privilege (required)")
	}
}

func runChildMutation(verb string, mutate func(eng *hazel.Engine, ctx context.Context, kind hazel.Kind, parent, child any) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(childKind)
		if err != nil {
			return cli.ValidationError("parsing --kind", err)
		}

		dsn, err := resolveDSN(childDB)
		if err != nil {
			return err
		}

		db, eng, err := openEngine(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if err := mutate(eng, ctx, kind, args[0], args[1]); err != nil {
			return cli.ValidationError(fmt.Sprintf("%s edge %s -> %s", verb, args[0], args[1]), err)
		}

		fmt.Printf("%s edge: %s -> %s (%s)\n", verb, args[0], args[1], kind)
		return nil
	}
}

// parseKind maps a CLI --kind flag value to a hazel.Kind.
func parseKind(s string) (hazel.Kind, error) {
	switch hazel.Kind(s) {
	case hazel.Subject, hazel.Object, hazel.Privilege:
		return hazel.Kind(s), nil
	default:
		return "", fmt.Errorf("--kind must be one of subject, object, privilege (got %q)", s)
	}
}
