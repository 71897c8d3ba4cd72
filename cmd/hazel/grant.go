package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/cli"
)

var ruleDB string

// ruleMutator is one of Engine's Grant/Deny/Revoke/Allow methods.
type ruleMutator func(eng *hazel.Engine, ctx context.Context, subjectExtID, objectExtID, privilegeExtID any) error

var grantCmd = &cobra.Command{
	Use:   "grant <subject> <object> <permission>",
	Short: "Record a positive access rule",
	Args:  cobra.ExactArgs(3),
	RunE:  runRuleMutation("granted", func(eng *hazel.Engine, ctx context.Context, s, o, p any) error { return eng.Grant(ctx, s, o, p) }),
}

var denyCmd = &cobra.Command{
	Use:   "deny <subject> <object> <permission>",
	Short: "Record a negative access rule",
	Args:  cobra.ExactArgs(3),
	RunE:  runRuleMutation("denied", func(eng *hazel.Engine, ctx context.Context, s, o, p any) error { return eng.Deny(ctx, s, o, p) }),
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <subject> <object> <permission>",
	Short: "Remove a positive access rule, if present",
	Args:  cobra.ExactArgs(3),
	RunE:  runRuleMutation("revoked", func(eng *hazel.Engine, ctx context.Context, s, o, p any) error { return eng.Revoke(ctx, s, o, p) }),
}

var allowCmd = &cobra.Command{
	Use:   "allow <subject> <object> <permission>",
	Short: "Remove a negative access rule, if present",
	Args:  cobra.ExactArgs(3),
	RunE:  runRuleMutation("allowed", func(eng *hazel.Engine, ctx context.Context, s, o, p any) error { return eng.Allow(ctx, s, o, p) }),
}

func init() {
	for _, c := range []*cobra.Command{grantCmd, denyCmd, revokeCmd, allowCmd} {
		c.Flags().StringVar(&ruleDB, "db", "", "database URL")
	}
}

// runRuleMutation builds a RunE that opens an Engine, resolves the rule
// triple from args, and runs mutate, printing verb on success.
func runRuleMutation(verb string, mutate ruleMutator) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(ruleDB)
		if err != nil {
			return err
		}

		db, eng, err := openEngine(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if err := mutate(eng, ctx, args[0], args[1], args[2]); err != nil {
			return cli.ValidationError(fmt.Sprintf("%s %s/%s/%s", verb, args[0], args[1], args[2]), err)
		}

		fmt.Printf("%s: %s %s %s\n", verb, args[0], args[1], args[2])
		return nil
	}
}
