package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel/internal/cli"
	"github.com/hazelgraph/hazel/internal/doctor"
)

var doctorDB string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the authorization store",
	Long:  `Check that every DAG's supremum exists, that the closure index agrees with the edges table, and that no rule triple carries both signs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(doctorDB)
		if err != nil {
			return err
		}

		db, store, err := openStore(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := doctor.New(store).Run(context.Background())
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}

		report.Print(os.Stdout, verbose > 0)

		if report.HasErrors() {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().StringVar(&doctorDB, "db", "", "database URL")
}
