package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/cli"
)

var (
	rulesDB   string
	rulesKind string
)

var rulesCmd = &cobra.Command{
	Use:   "rules <ext-id>",
	Short: "List every rule naming ext-id as subject or object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseSubjectOrObject(rulesKind)
		if err != nil {
			return cli.ValidationError("parsing --kind", err)
		}

		dsn, err := resolveDSN(rulesDB)
		if err != nil {
			return err
		}

		db, eng, err := openEngine(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		views, err := eng.ListRules(context.Background(), kind, args[0])
		if err != nil {
			return cli.ValidationError(fmt.Sprintf("listing rules for %s %q", kind, args[0]), err)
		}

		if len(views) == 0 {
			fmt.Println("(no rules)")
			return nil
		}
		for _, v := range views {
			fmt.Printf("%s %s %s %s\n", v.Sign, v.SubjectExtID, v.ObjectExtID, v.PrivilegeExtID)
		}
		return nil
	},
}

func init() {
	f := rulesCmd.Flags()
	f.StringVar(&rulesDB, "db", "", "database URL")
	f.StringVar(&rulesKind, "kind", string(hazel.Subject), "look up ext-id as subject or object")
}

func parseSubjectOrObject(s string) (hazel.Kind, error) {
	switch hazel.Kind(s) {
	case hazel.Subject, hazel.Object:
		return hazel.Kind(s), nil
	default:
		return "", fmt.Errorf("--kind must be subject or object (got %q)", s)
	}
}
