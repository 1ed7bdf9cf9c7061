package main

import (
	"os"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Inspect tables and indexes",
}

var showTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List every table and its row count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(configPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		printTables(os.Stdout, eng)
		return nil
	},
}

var showIndexesCmd = &cobra.Command{
	Use:   "indexes [table]",
	Short: "List indexes, optionally filtered to one table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(configPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		table := ""
		if len(args) == 1 {
			table = args[0]
		}
		printIndexes(os.Stdout, eng, table)
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Print a table's columns and indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(configPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		return printDescribe(os.Stdout, eng, args[0])
	},
}

func init() {
	showCmd.AddCommand(showTablesCmd)
	showCmd.AddCommand(showIndexesCmd)
	showCmd.AddCommand(describeCmd)
}
