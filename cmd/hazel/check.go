package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel/internal/cli"
)

var checkDB string

var checkCmd = &cobra.Command{
	Use:   "check <subject> <object> <permission>",
	Short: "Answer permission_granted?(subject, object, permission)",
	Long: `Run an authorization query and print "granted" or "denied". Exits 0
when granted, 1 when denied, and 5 (validation error) when the
identifiers don't resolve.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(checkDB)
		if err != nil {
			return err
		}

		db, eng, err := openEngine(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		decision, err := eng.PermissionGranted(context.Background(), args[0], args[1], args[2])
		if err != nil {
			return cli.ValidationError(fmt.Sprintf("checking %s/%s/%s", args[0], args[1], args[2]), err)
		}

		fmt.Println(decision)
		if !decision.Bool() {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkDB, "db", "", "database URL")
}
