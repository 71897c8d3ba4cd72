package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/cli"
)

var statusDB string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show entity counts and supremum presence per DAG",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(statusDB)
		if err != nil {
			return err
		}

		db, store, err := openStore(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		for _, kind := range []hazel.Kind{hazel.Subject, hazel.Object, hazel.Privilege} {
			count, err := hazel.CountEntities(ctx, store, kind)
			if err != nil {
				return cli.GeneralError(fmt.Sprintf("counting %s entities", kind), err)
			}

			supremumState := "present"
			if _, err := hazel.LookupEntity(ctx, store, kind, hazel.SupremumExtID); err != nil {
				supremumState = "missing"
			}

			fmt.Printf("%-10s  entities: %-6d supremum: %s\n", kind, count, supremumState)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDB, "db", "", "database URL")
}
