package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/cli"
)

var (
	registerDB          string
	registerDescription string
	registerStatic      bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a subject, object, or permission",
}

var registerSubjectCmd = &cobra.Command{
	Use:   "subject <ext-id>",
	Short: "Register a subject entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister(hazel.Subject),
}

var registerObjectCmd = &cobra.Command{
	Use:   "object <ext-id>",
	Short: "Register an object entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister(hazel.Object),
}

var registerPermissionCmd = &cobra.Command{
	Use:   "permission <ext-id>",
	Short: "Register a privilege entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister(hazel.Privilege),
}

func init() {
	for _, c := range []*cobra.Command{registerSubjectCmd, registerObjectCmd, registerPermissionCmd} {
		f := c.Flags()
		f.StringVar(&registerDB, "db", "", "database URL")
		f.StringVar(&registerDescription, "description", "", "human-readable description (required)")
		f.BoolVar(&registerStatic, "static", false, "mark this entity as owned by the declarative reconciler")
	}
	registerCmd.AddCommand(registerSubjectCmd, registerObjectCmd, registerPermissionCmd)
}

func runRegister(kind hazel.Kind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(registerDB)
		if err != nil {
			return err
		}

		db, eng, err := openEngine(dsn)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		var regErr error
		switch kind {
		case hazel.Subject:
			regErr = eng.RegisterSubject(ctx, args[0], registerDescription, registerStatic)
		case hazel.Object:
			regErr = eng.RegisterObject(ctx, args[0], registerDescription, registerStatic)
		case hazel.Privilege:
			regErr = eng.RegisterPermission(ctx, args[0], registerDescription, registerStatic)
		}
		if regErr != nil {
			return cli.ValidationError(fmt.Sprintf("registering %s %q", kind, args[0]), regErr)
		}

		fmt.Printf("registered %s %q\n", kind, args[0])
		return nil
	}
}
