package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/cli"
)

var (
	membersDB   string
	membersKind string
)

var membersCmd = &cobra.Command{
	Use:   "members <ext-id>",
	Short: "List every descendant of ext-id within a DAG",
	Long:  `List the external ids of every descendant of ext-id within the DAG named by --kind, excluding ext-id itself.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(membersKind)
		if err != nil {
			return cli.ValidationError("parsing --kind", err)
		}

		dsn, err := resolveDSN(membersDB)
		if err != nil {
			return err
		}

		db, eng, err := openEngine(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		names, err := eng.Members(context.Background(), kind, args[0])
		if err != nil {
			return cli.ValidationError(fmt.Sprintf("listing members of %s %q", kind, args[0]), err)
		}

		if len(names) == 0 {
			fmt.Println("(no members)")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	f := membersCmd.Flags()
	f.StringVar(&membersDB, "db", "", "database URL")
	f.StringVar(&membersKind, "kind", string(hazel.Subject), "DAG to query: subject, object, or privilege")
}
