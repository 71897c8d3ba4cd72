package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel/internal/cli"
	"github.com/hazelgraph/hazel/internal/declare"
)

var (
	reconcileDB   string
	reconcilePath string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Converge static entities, edges, and rules to a declaration directory",
	Long: `Read every *.yaml/*.yml file in the declarations directory and
converge persisted static state to match: ensure supremums, sweep
entities no longer declared, register declared entities, rebuild static
rules, and reconcile edges. Dynamic (non-static) state is never touched.
Safe to run repeatedly.`,
	Example: `  hazel reconcile --declarations ./declarations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		declPath := resolveString(reconcilePath, cfg.Declarations.Path)

		src, err := declare.LoadYAMLDir(declPath)
		if err != nil {
			return cli.ReconcileError("loading declarations", err)
		}

		dsn, err := resolveDSN(reconcileDB)
		if err != nil {
			return err
		}

		db, eng, err := openEngine(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := eng.Reconcile(context.Background(), src); err != nil {
			return cli.ReconcileError("reconciling declarations", err)
		}

		fmt.Println("reconciliation complete")
		return nil
	},
}

func init() {
	f := reconcileCmd.Flags()
	f.StringVar(&reconcileDB, "db", "", "database URL")
	f.StringVar(&reconcilePath, "declarations", "", "directory of *.yaml declaration files")
}
