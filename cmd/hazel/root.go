package main

import (
	"github.com/spf13/cobra"

	"github.com/hazelgraph/hazel/internal/cli"
)

var (
	// Global state set during PersistentPreRunE.
	cfg        *cli.Config
	configPath string

	// Persistent flags.
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "hazel",
	Short: "Hierarchical authorization engine",
	Long: `hazel - hierarchical authorization engine

hazel answers "is subject S permitted to perform privilege P on object O?"
over three independent hierarchies of subjects, objects, and privileges,
with explicit positive and negative access rules.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command group IDs.
const (
	groupData    = "data"
	groupQuery   = "query"
	groupOps     = "ops"
	groupUtility = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover hazel.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupData, Title: "Data:"},
		&cobra.Group{ID: groupQuery, Title: "Query:"},
		&cobra.Group{ID: groupOps, Title: "Ops:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	registerCmd.GroupID = groupData
	grantCmd.GroupID = groupData
	denyCmd.GroupID = groupData
	revokeCmd.GroupID = groupData
	allowCmd.GroupID = groupData
	addChildCmd.GroupID = groupData
	removeChildCmd.GroupID = groupData
	rootCmd.AddCommand(registerCmd, grantCmd, denyCmd, revokeCmd, allowCmd, addChildCmd, removeChildCmd)

	checkCmd.GroupID = groupQuery
	membersCmd.GroupID = groupQuery
	rulesCmd.GroupID = groupQuery
	rootCmd.AddCommand(checkCmd, membersCmd, rulesCmd)

	reconcileCmd.GroupID = groupOps
	statusCmd.GroupID = groupOps
	doctorCmd.GroupID = groupOps
	rootCmd.AddCommand(reconcileCmd, statusCmd, doctorCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd, versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from values, giving
// flag > config > default precedence when called in that order.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
