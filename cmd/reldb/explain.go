package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corestore/reldb/internal/dispatcher"
)

var explainCmd = &cobra.Command{
	Use:   "explain <sql>",
	Short: "Run a SELECT/JOIN and print its recorded execution plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(configPath)
		if err != nil {
			return err
		}
		defer eng.Close()

		sql := args[0]
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "EXPLAIN") {
			sql = "EXPLAIN " + sql
		}
		stmt, err := dispatcher.Parse(sql)
		if err != nil {
			return err
		}
		return runStatement(eng, stmt, os.Stdout)
	},
}
